package preflight

import (
	"context"

	"voxnote/internal/config"
	"voxnote/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Detail   string
	Optional bool
}

// RunAll executes every doctor check for cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		results = append(results, fromStatus(status))
	}
	results = append(results, CheckOllama(ctx, cfg.LLM))
	results = append(results, CheckFile("Denoise model", cfg.Processing.DenoiseModel))
	results = append(results,
		CheckDirectoryAccess("Input directory", cfg.Paths.Input),
		CheckDirectoryAccess("Output directory", cfg.Paths.Output),
		CheckDirectoryAccess("Archive directory", cfg.Paths.Archive),
		CheckDirectoryAccess("State directory", cfg.StateDir()),
	)
	return results
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

func fromStatus(s deps.Status) Result {
	r := Result{Name: s.Name, Passed: s.Available, Optional: s.Optional}
	if s.Available {
		r.Detail = s.Command
	} else {
		r.Detail = s.Detail
		if s.Description != "" {
			r.Detail += " (" + s.Description + ")"
		}
	}
	return r
}
