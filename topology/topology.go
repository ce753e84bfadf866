// File: topology/topology.go
// Author: momentics <momentics@gmail.com>
//
// Immutable per-CPU topology facts consumed by the placement engine.
// Facts are sourced once from a Provider at partition init and never
// change afterwards.

package topology

import "github.com/momentics/lwksched/cpuset"

// Topology describes where one CPU sits in the machine. NUMAID is the
// NUMA node number; the core and cache identifiers follow the first-CPU
// convention: the id of a shared domain is the lowest CPU id belonging
// to it. Two CPUs share a domain iff the corresponding fields are
// equal. Unknown fields are -1.
type Topology struct {
	NUMAID      int
	CoreID      int
	L1CID       int
	L2CID       int
	L3CID       int
	ThreadIndex int
}

// Provider supplies topology facts for every present CPU.
type Provider interface {
	// NumCPUs returns the number of present CPUs.
	NumCPUs() int
	// CPU returns the facts for one CPU.
	CPU(cpu int) Topology
}

// Static is a Provider backed by a fixed table. It is the provider of
// choice for tests and simulations.
type Static struct {
	cpus []Topology
}

// NewStatic builds a Static provider from an explicit table.
func NewStatic(cpus []Topology) *Static {
	return &Static{cpus: cpus}
}

// NumCPUs implements Provider.
func (s *Static) NumCPUs() int { return len(s.cpus) }

// CPU implements Provider.
func (s *Static) CPU(cpu int) Topology {
	if cpu < 0 || cpu >= len(s.cpus) {
		return Topology{NUMAID: -1, CoreID: -1, L1CID: -1, L2CID: -1, L3CID: -1, ThreadIndex: -1}
	}
	return s.cpus[cpu]
}

// Uniform builds a Static provider for a synthetic machine: nodes NUMA
// domains, coresPerNode physical cores per domain, threadsPerCore
// hyperthreads per core. L1 is per core, L2 is shared by l2Span cores,
// L3 is per domain. NUMAID is the node number; core and cache
// identifiers follow the first-CPU convention.
func Uniform(nodes, coresPerNode, threadsPerCore, l2Span int) *Static {
	if l2Span <= 0 {
		l2Span = 1
	}
	total := nodes * coresPerNode * threadsPerCore
	cpus := make([]Topology, total)
	cpu := 0
	for n := 0; n < nodes; n++ {
		nodeFirst := cpu
		for c := 0; c < coresPerNode; c++ {
			coreFirst := cpu
			l2First := nodeFirst + (c/l2Span)*l2Span*threadsPerCore
			for t := 0; t < threadsPerCore; t++ {
				cpus[cpu] = Topology{
					NUMAID:      n,
					CoreID:      coreFirst,
					L1CID:       coreFirst,
					L2CID:       l2First,
					L3CID:       nodeFirst,
					ThreadIndex: t,
				}
				cpu++
			}
		}
	}
	return NewStatic(cpus)
}

// DomainSet returns the CPUs of the provider whose NUMA domain is id.
func DomainSet(p Provider, id int) cpuset.Set {
	var s cpuset.Set
	for c := 0; c < p.NumCPUs(); c++ {
		if p.CPU(c).NUMAID == id {
			s.Add(c)
		}
	}
	return s
}
