// Package numa binds the OS thread that allocates a replica's
// CompactFactorGraph and InferenceResult to the replica's CPU set before
// the allocation, and keeps an audit log of each replica's bind/release
// steps. The worker goroutines that later sample the replica are not bound.
//
// Grounded on original_source/src/dimmwitted.cc's DimmWitted constructor,
// which calls numa_run_on_node(i)/numa_set_localalloc() before allocating
// each replica's CompactFactorGraph — the same "bind, then allocate"
// ordering this package enforces via golang.org/x/sys/unix.
package numa

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Domain is one memory-domain assignment: the set of logical CPUs a
// replica is bound to while it is allocated.
type Domain struct {
	Index int
	CPUs  []int
}

// Plan splits nthreads total worker threads evenly across nreplicas memory
// domains, assigning domain i logical CPUs [i*perDomain, (i+1)*perDomain),
// the same even split original_source/src/dimmwitted.cc's gibbs() derives
// from sysconf(_SC_NPROCESSORS_CONF)/n_numa_node.
func Plan(nreplicas, nthreads int) []Domain {
	if nreplicas < 1 {
		nreplicas = 1
	}
	perDomain := nthreads / nreplicas
	if perDomain < 1 {
		perDomain = 1
	}
	domains := make([]Domain, nreplicas)
	for i := 0; i < nreplicas; i++ {
		cpus := make([]int, 0, perDomain)
		for c := i * perDomain; c < (i+1)*perDomain; c++ {
			cpus = append(cpus, c)
		}
		domains[i] = Domain{Index: i, CPUs: cpus}
	}
	return domains
}

// Bind locks the calling goroutine to its OS thread and restricts that
// thread's scheduling affinity to the domain's CPU set. The orchestrator
// calls it on the goroutine that allocates the replica; LockOSThread keeps
// that goroutine on the restricted thread until Unbind. Goroutines started
// later, such as the replica's workers, are not restricted.
func Bind(d Domain) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	for _, cpu := range d.CPUs {
		set.Set(cpu)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("numa: bind domain %d to cpus %v: %w", d.Index, d.CPUs, err)
	}
	return nil
}

// Unbind drops the LockOSThread pin on the calling goroutine's OS thread.
// It does not reset the thread's affinity mask: the thread keeps the CPU set
// Bind gave it. Call this once graph
// construction for the bound replica is complete: NUMA affinity APIs are
// process-wide, so the orchestrator must unbind at the end of graph
// construction before the next replica binds.
func Unbind() {
	runtime.UnlockOSThread()
}
