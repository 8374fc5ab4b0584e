package verify

import (
	"context"
	"sync"
	"time"

	"github.com/colorfulnotion/dexverify/dex"
	"github.com/colorfulnotion/dexverify/log"
)

// MethodResult pairs a method with its pre-analysis outcome. Exactly one of
// Result and Err is set.
type MethodResult struct {
	Method *dex.Method
	Result *Result
	Err    error
}

func (m MethodResult) Accepted() bool {
	return m.Err == nil
}

// AnalyzeMethods pre-analyzes methods on up to cfg.Workers goroutines. Each
// method gets its own flag table; results are returned in input order.
// Methods not yet started when ctx is cancelled get ctx.Err().
func AnalyzeMethods(ctx context.Context, methods []*dex.Method, cfg Config) []MethodResult {
	results := make([]MethodResult, len(methods))
	sem := make(chan struct{}, cfg.workers())
	var wg sync.WaitGroup

	start := time.Now()
	for i, meth := range methods {
		results[i].Method = meth
		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, meth *dex.Method) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return
			}
			// each goroutine writes only its own slot
			results[i].Result, results[i].Err = PreAnalyze(ctx, meth, cfg)
		}(i, meth)
	}
	wg.Wait()

	rejected := 0
	for _, r := range results {
		if r.Err != nil {
			rejected++
		}
	}
	log.Debug(log.ScanMonitoring, "batch done", "methods", len(methods), "rejected", rejected, "elapsed", time.Since(start))
	return results
}
