package brain

import (
	"context"
	"runtime"
	"sync"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

// RunOutcome pairs one pipeline execution with its error. Err carries
// the stage error for a FAILED run; Run is non-nil whenever a run was
// actually started.
type RunOutcome struct {
	Params contracts.RunParams
	Run    *contracts.Run
	Err    error
}

// ExecuteAll drives many independent runs through a worker pool, one
// worker per run. There is no intra-run parallelism — each worker walks
// its run's stages strictly in order — and runs share nothing but the
// store, so cross-run ordering is neither guaranteed nor needed.
//
// If workers <= 0 the pool sizes itself to runtime.NumCPU() * 2; the
// pipeline is I/O bound on its providers, so oversubscribing cores is
// the right default. Outcomes come back in request order.
func (o *Orchestrator) ExecuteAll(ctx context.Context, requests []contracts.RunParams, workers int) []RunOutcome {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if workers > len(requests) {
		workers = len(requests)
	}

	type work struct {
		idx    int
		params contracts.RunParams
	}

	workCh := make(chan work, len(requests))
	outcomes := make([]RunOutcome, len(requests))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				if ctx.Err() != nil {
					outcomes[w.idx] = RunOutcome{Params: w.params, Err: ctx.Err()}
					continue
				}
				run, err := o.Execute(ctx, w.params)
				outcomes[w.idx] = RunOutcome{Params: w.params, Run: run, Err: err}
			}
		}()
	}

	for i, params := range requests {
		workCh <- work{idx: i, params: params}
	}
	close(workCh)

	if o.metrics != nil {
		o.metrics.UpdatePool(len(requests), workers)
	}

	wg.Wait()

	if o.metrics != nil {
		o.metrics.UpdatePool(0, 0)
	}

	picks := 0
	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			continue
		}
		if out.Run != nil && out.Run.Pick != nil {
			picks++
		}
	}
	o.logger.WithFields(map[string]interface{}{
		"requested": len(requests),
		"picks":     picks,
		"failed":    failed,
		"workers":   workers,
	}).Info("Slate batch completed")

	return outcomes
}
