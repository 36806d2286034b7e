// Package orchestrator drives the learning and inference loops: fanning
// epochs out to every NUMA replica, merging weights between learning
// epochs, decaying the stepsize, and aggregating marginals after inference.
//
// Grounded on original_source/src/dimmwitted.cc's DimmWitted::learn /
// DimmWitted::inference for the loop bodies, expressed as a Go state
// machine: a state enum, a struct wiring every subsystem, a Run method
// driving the machine end to end with defer-based cleanup and a
// cancellation hook a caller can use to stop a run early.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jihwankim/gibbsfg/pkg/config"
	"github.com/jihwankim/gibbsfg/pkg/control"
	"github.com/jihwankim/gibbsfg/pkg/graph/compact"
	"github.com/jihwankim/gibbsfg/pkg/inference"
	"github.com/jihwankim/gibbsfg/pkg/metrics"
	"github.com/jihwankim/gibbsfg/pkg/numa"
	"github.com/jihwankim/gibbsfg/pkg/reporting"
)

// State is the orchestrator's run state machine.
type State int

const (
	StateInit State = iota
	StateBuildReplicas
	StateLearn
	StateInfer
	StateAggregate
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateBuildReplicas:
		return "BUILD_REPLICAS"
	case StateLearn:
		return "LEARN"
	case StateInfer:
		return "INFER"
	case StateAggregate:
		return "AGGREGATE"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// SyncFunc is the optional distributed-learning synchronization hook: given
// this process's weight deltas and the epoch just completed, it returns the
// weights to adopt and whether an external peer has asked the run to stop.
type SyncFunc func(ctx context.Context, epoch int, deltas []float64) (newWeights []float64, stop bool, err error)

// Orchestrator coordinates one compiled graph's learning and inference run
// across NUMA replicas.
type Orchestrator struct {
	opts   *config.Options
	logger *reporting.Logger
	prog   *reporting.ProgressReporter
	reg    *metrics.Registry
	coord  *numa.Coordinator
	ctrl   *control.Controller

	runID        string
	currentState State
	startTime    time.Time

	replicas []*Replica
	sync     SyncFunc
}

// New builds an Orchestrator for opts, logging through logger and
// (optionally) registering prometheus gauges under reg.
func New(opts *config.Options, logger *reporting.Logger, reg *metrics.Registry) *Orchestrator {
	runID := uuid.NewString()
	return &Orchestrator{
		opts:         opts,
		logger:       logger.WithField("run_id", runID),
		prog:         reporting.NewProgressReporter(reporting.FormatText, logger),
		reg:          reg,
		coord:        numa.NewCoordinator(logger),
		ctrl:         control.New(control.Config{EnableSignalHandlers: true, Logger: logger}),
		runID:        runID,
		currentState: StateInit,
	}
}

// WithSync installs the optional distributed-learning synchronization hook.
func (o *Orchestrator) WithSync(fn SyncFunc) *Orchestrator {
	o.sync = fn
	return o
}

func (o *Orchestrator) transition(s State) {
	o.logger.Debug("state transition", "from", o.currentState.String(), "to", s.String())
	o.currentState = s
}

// Run builds the NUMA replicas, runs the learning loop (if
// n_learning_epoch > 0), then the inference loop (if n_inference_epoch >
// 0), and returns the aggregated result plus a run summary.
func (o *Orchestrator) Run(ctx context.Context, source *compact.CompactFactorGraph) (*Replica, *reporting.RunSummary, error) {
	o.startTime = time.Now()
	summary := &reporting.RunSummary{
		RunID:              o.runID,
		StartTime:          o.startTime,
		NReplicas:          o.opts.NDataCopy,
		NThreadsPerReplica: o.opts.PerReplicaThreads(),
	}

	ctrlCtx, cancel := context.WithCancel(ctx)
	o.ctrl.Start(ctrlCtx)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			o.transition(StateFailed)
			summary.Status = reporting.StatusFailed
			summary.Success = false
			summary.Message = fmt.Sprintf("panic: %v", r)
			summary.Errors = append(summary.Errors, fmt.Sprintf("%v", r))
		}
	}()

	o.transition(StateBuildReplicas)
	if err := o.buildReplicas(source); err != nil {
		return o.fail(summary, err)
	}

	if o.opts.NLearningEpoch > 0 {
		o.transition(StateLearn)
		if err := o.learn(ctx, summary); err != nil {
			return o.fail(summary, err)
		}
	}

	if o.opts.NInferenceEpoch > 0 {
		o.transition(StateInfer)
		if err := o.infer(ctx, summary); err != nil {
			return o.fail(summary, err)
		}

		o.transition(StateAggregate)
		o.aggregate()
	}

	o.transition(StateCompleted)
	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime).String()
	summary.Status = reporting.StatusCompleted
	summary.Success = true
	summary.FinalWeights = o.weightSnapshot()

	o.prog.ReportRunCompleted(summary)
	return o.replicas[0], summary, nil
}

func (o *Orchestrator) fail(summary *reporting.RunSummary, err error) (*Replica, *reporting.RunSummary, error) {
	o.transition(StateFailed)
	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime).String()
	summary.Status = reporting.StatusFailed
	summary.Success = false
	summary.Message = err.Error()
	summary.Errors = append(summary.Errors, err.Error())
	return nil, summary, err
}

// buildReplicas allocates one Replica per memory domain, binding each
// replica's construction to its domain before allocating.
func (o *Orchestrator) buildReplicas(source *compact.CompactFactorGraph) error {
	perReplica := o.opts.PerReplicaThreads()
	domains := numa.Plan(o.opts.NDataCopy, o.opts.NThreads)
	replicas := make([]*Replica, len(domains))
	for i, d := range domains {
		r, err := BindAndBuild(o.coord, i, d, source, perReplica, int64(i)+1)
		if err != nil {
			return err
		}
		replicas[i] = r
	}
	o.replicas = replicas
	return nil
}

// learn runs the learning loop: each epoch, fan sample_sgd out to every
// replica, join, merge weights into replica 0, regularize, broadcast back,
// decay the stepsize.
func (o *Orchestrator) learn(ctx context.Context, summary *reporting.RunSummary) error {
	eta := o.opts.Stepsize
	nEpoch := perReplicaEpochs(o.opts.NLearningEpoch, len(o.replicas))

	for e := 0; e < nEpoch; e++ {
		select {
		case <-o.ctrl.StopChannel():
			o.logger.WithEpoch(e).Warn("learning loop stopped early")
			return nil
		default:
		}

		start := time.Now()
		if err := o.fanOutLearn(ctx, eta); err != nil {
			return err
		}

		prev := append([]float64(nil), o.replicas[0].Result.WeightValues...)
		o.mergeAndBroadcast(eta)
		lmax, l2 := weightDeltaNorms(prev, o.replicas[0].Result.WeightValues, eta)

		if o.sync != nil {
			deltas := make([]float64, len(prev))
			for i := range prev {
				deltas[i] = o.replicas[0].Result.WeightValues[i] - prev[i]
			}
			newWeights, stop, err := o.sync(ctx, e, deltas)
			if err != nil {
				return fmt.Errorf("orchestrator: distributed sync: %w", err)
			}
			if newWeights != nil {
				o.replicas[0].Result.WeightValues = newWeights
				for _, r := range o.replicas[1:] {
					o.replicas[0].Result.CopyWeightsTo(r.Result)
				}
			}
			if stop {
				o.logger.WithEpoch(e).Info("distributed peer requested stop")
				break
			}
		}

		stats := reporting.EpochStats{Epoch: e, Stepsize: eta, LMax: lmax, L2Norm: l2, Elapsed: time.Since(start)}
		summary.LearningEpochs = append(summary.LearningEpochs, stats)
		o.prog.ReportEpoch(stats)
		if o.reg != nil {
			o.reg.LearningEpoch.Set(float64(e))
			o.reg.Stepsize.Set(eta)
			o.reg.LMax.Set(lmax)
			o.reg.L2Norm.Set(l2)
		}

		eta *= o.opts.Decay
	}
	return nil
}

func (o *Orchestrator) fanOutLearn(ctx context.Context, eta float64) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range o.replicas {
		r := r
		g.Go(func() error {
			return r.Pool.RunLearn(gctx, eta, o.opts.ShouldLearnNonEvidence, o.opts.ShouldSampleEvidence)
		})
	}
	return g.Wait()
}

// mergeAndBroadcast sums every replica's weights into replica 0, averages,
// regularizes, then copies the result back out to the other replicas.
// Regularization runs after the average so every replica starts the next
// epoch from the same regularized weights rather than drifting apart.
func (o *Orchestrator) mergeAndBroadcast(eta float64) {
	base := o.replicas[0].Result
	for _, r := range o.replicas[1:] {
		base.MergeWeightsFrom(r.Result)
	}
	base.AverageWeights(len(o.replicas))

	base.Regularize(regularizationKind(o.opts.Regularization), o.opts.RegParam, eta)

	for _, r := range o.replicas[1:] {
		base.CopyWeightsTo(r.Result)
	}
}

// regularizationKind maps the config record's string enum to the
// inference package's Regularization constants.
func regularizationKind(r config.Regularization) inference.Regularization {
	switch r {
	case config.RegularizationL1:
		return inference.L1
	case config.RegularizationL2:
		return inference.L2
	default:
		return inference.NoRegularization
	}
}

// infer runs the inference loop: clear tallies, then fan sample out across
// every replica for its share of the inference-epoch budget, joining after
// each epoch.
func (o *Orchestrator) infer(ctx context.Context, summary *reporting.RunSummary) error {
	for _, r := range o.replicas {
		r.Result.ClearTallies()
	}

	nEpoch := perReplicaEpochs(o.opts.NInferenceEpoch, len(o.replicas))
	for e := 0; e < nEpoch; e++ {
		select {
		case <-o.ctrl.StopChannel():
			o.logger.WithEpoch(e).Warn("inference loop stopped early")
			return nil
		default:
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, r := range o.replicas {
			r := r
			g.Go(func() error {
				return r.Pool.RunInfer(gctx, o.opts.ShouldSampleEvidence)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		o.prog.ReportInferenceProgress(e, nEpoch)
	}
	summary.InferenceEpochs = nEpoch
	return nil
}

// aggregate folds every replica's sample tallies into replica 0's, the
// final inference-loop reduction.
func (o *Orchestrator) aggregate() {
	base := o.replicas[0].Result
	for _, r := range o.replicas[1:] {
		base.AggregateMarginalsFrom(r.Result)
	}
}

func (o *Orchestrator) weightSnapshot() []reporting.WeightSnapshot {
	r := o.replicas[0].Result
	out := make([]reporting.WeightSnapshot, len(r.WeightValues))
	for i := range r.WeightValues {
		out[i] = reporting.WeightSnapshot{ID: uint64(i), Value: r.WeightValues[i], IsFixed: r.WeightIsFixed[i]}
	}
	return out
}

// perReplicaEpochs computes ceil(total / replicas), the per-replica loop
// count a run's total epoch budget divides into across its replicas.
func perReplicaEpochs(total, replicas int) int {
	if replicas < 1 {
		replicas = 1
	}
	return int(math.Ceil(float64(total) / float64(replicas)))
}

func weightDeltaNorms(prev, curr []float64, stepsize float64) (lmax, l2 float64) {
	return inference.WeightDeltaNorms(prev, curr, stepsize)
}
