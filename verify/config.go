package verify

import "runtime"

// Config controls a pre-analysis run.
type Config struct {
	// GenerateGcPoints marks GC points in the flag table, needed when register
	// maps are generated downstream.
	GenerateGcPoints bool
	// Optimizing suppresses class resolution reports. See SetOptimizing.
	Optimizing bool
	// Workers bounds AnalyzeMethods concurrency. Values below 1 mean one
	// worker per CPU.
	Workers int
}

func DefaultConfig() Config {
	return Config{
		GenerateGcPoints: true,
		Workers:          runtime.NumCPU(),
	}
}

// ApplyGlobals pushes the process-wide settings of c into the package.
func (c Config) ApplyGlobals() {
	SetOptimizing(c.Optimizing)
}

func (c Config) workers() int {
	if c.Workers < 1 {
		return runtime.NumCPU()
	}
	return c.Workers
}
