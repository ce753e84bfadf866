// File: api/enums.go
// Author: momentics <momentics@gmail.com>
//
// Enumerations shared by the run queue, the placement engine and the
// host bindings.

package api

// ThreadType classifies an LWK scheduling entity.
type ThreadType int

const (
	// ThreadNormal is a compute thread intended to monopolise a CPU.
	ThreadNormal ThreadType = iota
	// ThreadUtility is a service thread intended to share a CPU.
	ThreadUtility
	// ThreadGuest is a non-LWK task assimilated while visiting an LWK CPU.
	ThreadGuest
	// ThreadIdle is the per-CPU LWK idle task.
	ThreadIdle
)

func (t ThreadType) String() string {
	switch t {
	case ThreadNormal:
		return "normal"
	case ThreadUtility:
		return "utility"
	case ThreadGuest:
		return "guest"
	case ThreadIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// MatchType is a topology match request evaluated against a candidate
// CPU during placement.
type MatchType int

const (
	MatchFirstAvail MatchType = iota
	MatchSameCore
	MatchSameL1
	MatchSameL2
	MatchSameL3
	MatchSameDomain
	MatchOtherCore
	MatchOtherL1
	MatchOtherL2
	MatchOtherL3
	MatchOtherDomain
	MatchInNodeSet
)

func (m MatchType) String() string {
	switch m {
	case MatchFirstAvail:
		return "first-avail"
	case MatchSameCore:
		return "same-core"
	case MatchSameL1:
		return "same-l1"
	case MatchSameL2:
		return "same-l2"
	case MatchSameL3:
		return "same-l3"
	case MatchSameDomain:
		return "same-domain"
	case MatchOtherCore:
		return "other-core"
	case MatchOtherL1:
		return "other-l1"
	case MatchOtherL2:
		return "other-l2"
	case MatchOtherL3:
		return "other-l3"
	case MatchOtherDomain:
		return "other-domain"
	case MatchInNodeSet:
		return "in-node-set"
	default:
		return "unknown"
	}
}

// CommitScope selects which commit counters count as occupancy when
// searching for the least-committed CPU.
type CommitScope int

const (
	CommitAll CommitScope = iota
	CommitOnlyCompute
	CommitOnlyUtility
)

// SearchOrder controls the direction of the LWK CPU sequence walk.
type SearchOrder int

const (
	ForwardSearch SearchOrder = iota
	ReverseSearch
)

// CPUsPerUtil selects between wide and single-CPU affinity for utility
// threads placed on host CPUs.
type CPUsPerUtil int

const (
	// MultipleCPUsPerUtil includes every matching host CPU in the
	// allowed set.
	MultipleCPUsPerUtil CPUsPerUtil = iota
	// OneCPUPerUtil selects exactly one host CPU at the lowest
	// utility-commit level.
	OneCPUPerUtil
)

// SchedPolicy is the host-visible scheduling policy of a task.
type SchedPolicy int

const (
	PolicyNormal SchedPolicy = iota
	PolicyFIFO
	PolicyRR
	PolicyBatch
	PolicyIdle
	PolicyDeadline
)

func (p SchedPolicy) String() string {
	switch p {
	case PolicyNormal:
		return "normal"
	case PolicyFIFO:
		return "fifo"
	case PolicyRR:
		return "rr"
	case PolicyBatch:
		return "batch"
	case PolicyIdle:
		return "idle"
	case PolicyDeadline:
		return "deadline"
	default:
		return "unknown"
	}
}
