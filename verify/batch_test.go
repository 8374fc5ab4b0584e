package verify

import (
	"context"
	"fmt"
	"testing"

	"github.com/colorfulnotion/dexverify/dex"
	"github.com/colorfulnotion/dexverify/vfyerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeMethodsKeepsOrder(t *testing.T) {
	var methods []*dex.Method
	for i := 0; i < 64; i++ {
		var m *dex.Method
		if i%5 == 0 {
			m = testMethod(code(gotoOp(int8(i%7+3)), returnVoid()))
		} else {
			m = loopMethod()
		}
		m.Name = fmt.Sprintf("m%d", i)
		methods = append(methods, m)
	}

	results := AnalyzeMethods(context.Background(), methods, Config{Workers: 4, GenerateGcPoints: true})
	require.Len(t, results, len(methods))
	for i, r := range results {
		assert.Same(t, methods[i], r.Method)
		if i%5 == 0 {
			assert.False(t, r.Accepted(), r.Method.Name)
			assert.ErrorIs(t, r.Err, vfyerrors.ErrBInvalidTarget)
			assert.Nil(t, r.Result)
			continue
		}
		require.True(t, r.Accepted(), r.Method.Name)
		assert.Equal(t, 1, r.Result.NewInstanceCount)
		assert.Equal(t, []int{0, 4, 12, 16}, r.Result.BranchTargets())
	}
}

// Methods sharing the same instruction slice still get private flag tables.
func TestAnalyzeMethodsSharedCode(t *testing.T) {
	shared := loopMethod()
	methods := make([]*dex.Method, 16)
	for i := range methods {
		m := *shared
		methods[i] = &m
	}
	results := AnalyzeMethods(context.Background(), methods, Config{Workers: 8})
	for i, r := range results {
		require.NoError(t, r.Err)
		for j := i + 1; j < len(results); j++ {
			assert.NotSame(t, &r.Result.Flags[0], &results[j].Result.Flags[0])
		}
	}
}

func TestAnalyzeMethodsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := AnalyzeMethods(ctx, []*dex.Method{loopMethod(), loopMethod()}, Config{Workers: 1})
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestAnalyzeMethodsEmpty(t *testing.T) {
	assert.Empty(t, AnalyzeMethods(context.Background(), nil, DefaultConfig()))
}
