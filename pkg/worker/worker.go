// Package worker schedules a replica's per-epoch fork/join sweep over its
// variables: partitioning variable ids across workers and running them
// concurrently to a barrier with golang.org/x/sync/errgroup.
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jihwankim/gibbsfg/pkg/graph/compact"
	"github.com/jihwankim/gibbsfg/pkg/inference"
	"github.com/jihwankim/gibbsfg/pkg/model"
	"github.com/jihwankim/gibbsfg/pkg/rng"
	"github.com/jihwankim/gibbsfg/pkg/sampler"
)

// Partition returns worker i's half-open variable id range out of nvar
// variables split across nshards workers, the ceil-division split:
// chunk = ceil(nvar/nshards); start = chunk*i; end = min(nvar,
// chunk*(i+1)).
func Partition(nvar, nshards, i int) (start, end int) {
	if nshards <= 0 {
		nshards = 1
	}
	chunk := (nvar + nshards - 1) / nshards
	start = chunk * i
	end = chunk * (i + 1)
	if end > nvar {
		end = nvar
	}
	if start > nvar {
		start = nvar
	}
	return start, end
}

// Pool runs one replica's per-epoch fork/join sweep: NWorkers goroutines,
// each owning a disjoint variable range, launched and joined with errgroup.
type Pool struct {
	Graph    *compact.CompactFactorGraph
	Result   *inference.Result
	NWorkers int
	RunSeed  int64
}

// NewPool constructs a Pool bound to nworkers goroutines per epoch.
func NewPool(cfg *compact.CompactFactorGraph, result *inference.Result, nworkers int, runSeed int64) *Pool {
	if nworkers < 1 {
		nworkers = 1
	}
	return &Pool{Graph: cfg, Result: result, NWorkers: nworkers, RunSeed: runSeed}
}

// kernelFor builds the Kernel a single worker index uses for the epoch,
// seeded from this pool's run seed so the stream is reproducible but
// distinct per worker.
func (p *Pool) kernelFor(i int) *sampler.Kernel {
	w0, w1, w2 := rng.SeedTriplet(p.RunSeed, i)
	return &sampler.Kernel{Graph: p.Graph, Result: p.Result, Rand: rng.New(w0, w1, w2)}
}

// RunLearn fans out one learning epoch at stepsize eta across the pool and
// blocks until every worker's partition has been swept. A worker error
// aborts the whole epoch; the remaining
// workers keep running to completion (no mid-epoch cancellation of the
// intentional Hogwild! races), but the first error is what gets returned.
func (p *Pool) RunLearn(ctx context.Context, eta float64, learnNonEvidence, sampleEvidence bool) error {
	nvar := len(p.Graph.Variables)
	g, _ := errgroup.WithContext(ctx)
	for i := 0; i < p.NWorkers; i++ {
		i := i
		start, end := Partition(nvar, p.NWorkers, i)
		if start >= end {
			continue
		}
		g.Go(func() error {
			k := p.kernelFor(i)
			for vid := start; vid < end; vid++ {
				if err := k.Learn(model.VariableID(vid), eta, learnNonEvidence, sampleEvidence); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// RunInfer fans out one inference epoch across the pool and blocks until
// every worker's partition has been swept.
func (p *Pool) RunInfer(ctx context.Context, sampleEvidence bool) error {
	nvar := len(p.Graph.Variables)
	g, _ := errgroup.WithContext(ctx)
	for i := 0; i < p.NWorkers; i++ {
		i := i
		start, end := Partition(nvar, p.NWorkers, i)
		if start >= end {
			continue
		}
		g.Go(func() error {
			k := p.kernelFor(i)
			for vid := start; vid < end; vid++ {
				if err := k.Infer(model.VariableID(vid), sampleEvidence); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
