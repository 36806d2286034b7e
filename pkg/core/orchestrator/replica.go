package orchestrator

import (
	"github.com/jihwankim/gibbsfg/pkg/graph/compact"
	"github.com/jihwankim/gibbsfg/pkg/inference"
	"github.com/jihwankim/gibbsfg/pkg/model"
	"github.com/jihwankim/gibbsfg/pkg/numa"
	"github.com/jihwankim/gibbsfg/pkg/worker"
)

// Replica is one memory domain's independent copy of the factor graph and
// inference state. Its CompactFactorGraph is a deep copy of the source
// graph so that, once allocated while bound to its
// domain, the replica's pages actually live there under Linux's
// first-touch policy — grounded on original_source/src/dimmwitted.cc's
// DimmWitted constructor, which binds before calling the
// CompactFactorGraph copy constructor for each node.
type Replica struct {
	Index  int
	Graph  *compact.CompactFactorGraph
	Result *inference.Result
	Pool   *worker.Pool
}

// NewReplica allocates a replica's graph copy and inference state. Call
// this only while the calling goroutine is bound to the replica's target
// domain (numa.Coordinator.BindReplica).
func NewReplica(index int, source *compact.CompactFactorGraph, nworkers int, runSeed int64) *Replica {
	g := cloneGraph(source)
	result := inference.New(g)
	return &Replica{
		Index:  index,
		Graph:  g,
		Result: result,
		Pool:   worker.NewPool(g, result, nworkers, runSeed+int64(index)),
	}
}

// cloneGraph copies every top-level slice of a CompactFactorGraph so a
// replica never aliases another replica's variable, factor, weight or edge
// arrays. Each Variable's DomainMap/DomainValues and each Factor's WeightIDs
// are not copied: replicas share them, read-only.
func cloneGraph(src *compact.CompactFactorGraph) *compact.CompactFactorGraph {
	dst := &compact.CompactFactorGraph{
		Variables:          append([]model.Variable(nil), src.Variables...),
		Factors:            append([]model.Factor(nil), src.Factors...),
		Weights:            append([]model.Weight(nil), src.Weights...),
		Vifs:               append([]model.VariableInFactor(nil), src.Vifs...),
		VarFactorIDs:       append([]model.FactorID(nil), src.VarFactorIDs...),
		VarFactors:         append([]model.Factor(nil), src.VarFactors...),
		VarFactorWeightIDs: append([]model.WeightID(nil), src.VarFactorWeightIDs...),
		NumEdges:           src.NumEdges,
	}
	return dst
}

// BindAndBuild binds domain d through coord, builds a replica on it, then
// unbinds. The returned replica's graph/result pages were first-touched
// while the calling OS thread's affinity was restricted to d's CPU set.
func BindAndBuild(coord *numa.Coordinator, index int, d numa.Domain, source *compact.CompactFactorGraph, nworkers int, runSeed int64) (*Replica, error) {
	if err := coord.BindReplica(index, d); err != nil {
		return nil, err
	}
	defer coord.UnbindReplica(index)
	return NewReplica(index, source, nworkers, runSeed), nil
}
