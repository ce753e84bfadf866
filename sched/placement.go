// File: sched/placement.go
// Author: momentics <momentics@gmail.com>
//
// Placement engine: topology matching with a relaxation ladder,
// compute-thread candidate search over the process CPU sequence,
// utility-thread placement on LWK or host CPUs, exclusive
// reservations, and the push-utility rebalancing that frees an LWK CPU
// for a new compute thread.

package sched

import (
	"github.com/momentics/lwksched/api"
	"github.com/momentics/lwksched/cpuset"
	"github.com/momentics/lwksched/topology"
	"github.com/rs/zerolog/log"
)

// locationMatch evaluates one topology match request against a
// candidate CPU.
func locationMatch(mt api.MatchType, id int, topo topology.Topology, nodes api.NodeSet) bool {
	switch mt {
	case api.MatchFirstAvail:
		return true
	case api.MatchSameDomain:
		return id == topo.NUMAID
	case api.MatchSameCore:
		return id == topo.CoreID
	case api.MatchSameL1:
		return id == topo.L1CID
	case api.MatchSameL2:
		return id == topo.L2CID
	case api.MatchSameL3:
		return id == topo.L3CID
	case api.MatchOtherDomain:
		return id != topo.NUMAID
	case api.MatchOtherCore:
		return id != topo.CoreID
	case api.MatchOtherL1:
		return id != topo.L1CID
	case api.MatchOtherL2:
		return id != topo.L2CID
	case api.MatchOtherL3:
		return id != topo.L3CID
	case api.MatchInNodeSet:
		return nodes.Has(topo.NUMAID)
	default:
		return false
	}
}

// matchAdjust tightens the match so that CPUs selected after the first
// one share the first CPU's topology attribute. Other-X requests flip
// to Same-X anchored at the first selection; keyed first selections
// re-anchor their Same-X id.
func matchAdjust(topo topology.Topology, mt *api.MatchType, id *int, firstKeyed bool) {
	if firstKeyed {
		switch *mt {
		case api.MatchSameDomain:
			*id = topo.NUMAID
		case api.MatchSameL3:
			*id = topo.L3CID
		case api.MatchSameL2:
			*id = topo.L2CID
		case api.MatchSameL1:
			*id = topo.L1CID
		case api.MatchSameCore:
			*id = topo.CoreID
		}
	}
	switch *mt {
	case api.MatchOtherDomain:
		*mt = api.MatchSameDomain
		*id = topo.NUMAID
	case api.MatchOtherL3:
		*mt = api.MatchSameL3
		*id = topo.L3CID
	case api.MatchOtherL2:
		*mt = api.MatchSameL2
		*id = topo.L2CID
	case api.MatchOtherL1:
		*mt = api.MatchSameL1
		*id = topo.L1CID
	case api.MatchOtherCore:
		*mt = api.MatchSameCore
		*id = topo.CoreID
	}
}

// relaxMatch widens a Same-X request to the next larger domain and
// narrows an Other-X request, both ending at FirstAvail.
func relaxMatch(mt api.MatchType) api.MatchType {
	switch mt {
	case api.MatchSameL1:
		return api.MatchSameL2
	case api.MatchSameL2:
		return api.MatchSameL3
	case api.MatchSameL3:
		return api.MatchSameDomain
	case api.MatchSameDomain:
		return api.MatchFirstAvail
	case api.MatchOtherDomain:
		return api.MatchOtherL3
	case api.MatchOtherL3:
		return api.MatchOtherL2
	case api.MatchOtherL2:
		return api.MatchOtherL1
	case api.MatchOtherL1:
		return api.MatchFirstAvail
	default:
		return api.MatchFirstAvail
	}
}

// selectCandidate walks the process's LWK CPU sequence for the least
// committed CPU satisfying the match, up to commitLimit. A CPU held
// exclusively by a different pid is skipped; when exclusive is
// non-zero the winning CPU is reserved by compare-and-swap before it
// is returned.
func (s *Scheduler) selectCandidate(t *Task, commitLimit int, order api.SearchOrder,
	mt api.MatchType, id int, nodes api.NodeSet, rangeLimit int,
	scope api.CommitScope, exclusive int) int {

	proc := t.Proc
	if proc == nil || rangeLimit == 0 {
		return -1
	}
	seq := proc.Sequence
	fpath := t.Allowed.Equal(proc.LWKCPUs)
	slots := len(seq)
	if rangeLimit > 0 && rangeLimit < slots {
		slots = rangeLimit
	}
	last := len(seq) - 1

	for commitment := 0; commitment <= commitLimit; commitment++ {
		match := false
		eligible := false

		for n := 0; n < slots; n++ {
			cpu := seq[n]
			if order == api.ReverseSearch {
				cpu = seq[last-n]
			}
			rq := s.rqs[cpu]

			// Racy inspection is fine; the reservation below re-checks.
			exclPID := rq.exclusivePID.Load()
			if exclPID != 0 && int64(exclusive) != exclPID {
				continue
			}
			if !locationMatch(mt, id, rq.topo, nodes) {
				continue
			}
			match = true
			if !fpath && !t.Allowed.Has(cpu) {
				continue
			}
			eligible = true

			var commits int
			switch scope {
			case api.CommitOnlyUtility:
				commits = int(rq.utilityCommits.Load())
			case api.CommitOnlyCompute:
				commits = int(rq.computeCommits.Load())
			default:
				c, u := rq.readCommits()
				commits = c + u
			}
			if commits != commitment {
				continue
			}
			if exclusive != 0 {
				if !rq.exclusivePID.CompareAndSwap(0, int64(t.PID)) &&
					rq.exclusivePID.Load() != int64(exclusive) {
					continue
				}
			}
			return cpu
		}
		// If the first pass matched nothing we will not match at any
		// commit level; without an eligible CPU higher levels cannot
		// help either.
		if !match || !eligible {
			break
		}
	}
	return -1
}

// SelectCPUCandidate finds a home for a compute thread: an entirely
// uncommitted CPU first; then a CPU free of other compute threads
// (sharing with a utility thread beats sharing with compute); finally
// the least-committed CPU up to limit.
func (s *Scheduler) SelectCPUCandidate(t *Task, limit int) int {
	cpu := s.selectCandidate(t, 0, api.ForwardSearch,
		api.MatchFirstAvail, 0, 0, -1, api.CommitAll, 0)
	if cpu >= 0 || limit == 0 {
		return cpu
	}
	cpu = s.selectCandidate(t, 0, api.ForwardSearch,
		api.MatchFirstAvail, 0, 0, -1, api.CommitOnlyCompute, 0)
	if cpu >= 0 {
		return cpu
	}
	return s.selectCandidate(t, limit, api.ForwardSearch,
		api.MatchFirstAvail, 0, 0, -1, api.CommitAll, 0)
}

// selectMainThreadHome gives the process's initial thread a
// deterministic home: the first CPU of the sequence, when it is
// allowed and free of compute commits. OMP-style topology probes rely
// on the initial thread returning there.
func (s *Scheduler) selectMainThreadHome(t *Task) int {
	if t.PID != t.TGID || t.Proc == nil || len(t.Proc.Sequence) == 0 {
		return -1
	}
	first := t.Proc.Sequence[0]
	if !t.Allowed.Has(first) {
		return -1
	}
	if c := s.rqs[first].ComputeCommits(); c != 0 {
		return -1
	}
	return first
}

// selectHostUtilityCPUs searches the process's shared utility-CPU set.
// In OneCPUPerUtil mode it scans commit levels upward and returns the
// first CPU whose utility commits sit at the current level; otherwise
// it collects every matching CPU, tightening the match after the first
// so later CPUs share the same topology attribute.
func (s *Scheduler) selectHostUtilityCPUs(t *Task, mt api.MatchType, id int,
	nodes api.NodeSet, firstKeyed bool) (int, cpuset.Set) {

	proc := t.Proc
	var mask cpuset.Set

	if proc.AllowedCPUsPerUtil == api.OneCPUPerUtil {
		mtEff := mt
		if firstKeyed {
			mtEff = api.MatchFirstAvail
		}
		for commit := 0; commit < CommitMax; commit++ {
			match := false
			found := false
			for cpu := proc.UtilCPUs.First(); cpu >= 0; cpu = proc.UtilCPUs.Next(cpu) {
				rq := s.rqs[cpu]
				if !locationMatch(mtEff, id, rq.topo, nodes) {
					continue
				}
				match = true
				if rq.UtilityCommits() == commit {
					mask.Add(cpu)
					found = true
					break
				}
			}
			// A pass that matched nothing will not match at any
			// commit level.
			if !match || found {
				break
			}
		}
		return mask.First(), mask
	}

	adjusted := false
	for cpu := proc.UtilCPUs.First(); cpu >= 0; cpu = proc.UtilCPUs.Next(cpu) {
		rq := s.rqs[cpu]
		mtEff := mt
		if firstKeyed {
			mtEff = api.MatchFirstAvail
		}
		if locationMatch(mtEff, id, rq.topo, nodes) {
			mask.Add(cpu)
			// Tighten the remaining matches to the first selection's
			// topology attribute.
			if !adjusted {
				matchAdjust(rq.topo, &mt, &id, firstKeyed)
				adjusted = true
			}
		}
		firstKeyed = false
	}
	return mask.First(), mask
}

// setUtilityCPUsAllowed places a new utility thread according to the
// staged clone hints: resolve the topology anchor (possibly through
// the utility-group registry), then run the bounded search over LWK
// and host CPUs, relaxing the match or raising the allowed commit
// level until a CPU is found.
func (s *Scheduler) setUtilityCPUsAllowed(parent, t *Task, hints *CloneHints) {
	proc := t.Proc

	var (
		anchor     topology.Topology
		keyPending bool
	)
	if hints.Key != 0 {
		found := false
		anchor, found, keyPending = s.utilGrp.lookupOrBegin(hints.Key)
		if found {
			t.LWK.ActiveHints.Key = hints.Key
		}
	} else {
		// The parent may be running on a host syscall CPU, so its
		// committed LWK home — not its current CPU — anchors the match.
		home := parent.LWK.CPUHome
		if home >= 0 {
			anchor = s.rqs[home].topo
		} else {
			first := proc.LWKCPUs.First()
			if first >= 0 {
				anchor = s.rqs[first].topo
			}
			log.Warn().Int("pid", parent.PID).
				Msg("lwk-sched: expected a valid cpu home for utility placement")
		}
	}

	mt := api.MatchFirstAvail
	locID := -1
	var nodes api.NodeSet
	switch {
	case hints.Location&api.AttrSameL1Cache != 0:
		mt, locID = api.MatchSameL1, anchor.L1CID
	case hints.Location&api.AttrSameL2Cache != 0:
		mt, locID = api.MatchSameL2, anchor.L2CID
	case hints.Location&api.AttrSameL3Cache != 0:
		mt, locID = api.MatchSameL3, anchor.L3CID
	case hints.Location&api.AttrDiffL1Cache != 0:
		mt, locID = api.MatchOtherL1, anchor.L1CID
	case hints.Location&api.AttrDiffL2Cache != 0:
		mt, locID = api.MatchOtherL2, anchor.L2CID
	case hints.Location&api.AttrDiffL3Cache != 0:
		mt, locID = api.MatchOtherL3, anchor.L3CID
	case hints.Location&api.AttrSameDomain != 0:
		mt, locID = api.MatchSameDomain, anchor.NUMAID
	case hints.Location&api.AttrDiffDomain != 0:
		mt, locID = api.MatchOtherDomain, anchor.NUMAID
	case hints.Location&api.AttrUseNodeSet != 0:
		mt = api.MatchInNodeSet
		nodes = hints.Nodes
	}

	// Exclusive use forbids overcommit outright. Explicit placement is
	// prioritised over commit level; otherwise the per-CPU utility
	// threshold applies.
	exclusive := 0
	var commitLimit int
	switch {
	case hints.Behavior&api.AttrExcl != 0:
		commitLimit = 0
		exclusive = t.PID
	case hints.Location != 0 || proc.MaxUtilThreadsPerCPU < 0:
		commitLimit = CommitMax
	default:
		commitLimit = proc.MaxUtilThreadsPerCPU - 1
	}
	scope := proc.Overcommit
	if exclusive != 0 {
		scope = api.CommitAll
	}

	var (
		utilCPU          = -1
		onHost           bool
		placementHonored = true
		newMask          cpuset.Set
	)
	for i := 0; i < utilPlacementRetries; i++ {
		if hints.Location&api.AttrHostCPU == 0 {
			mtEff := mt
			if keyPending {
				mtEff = api.MatchFirstAvail
			}
			utilCPU = s.selectCandidate(t, commitLimit, api.ReverseSearch,
				mtEff, locID, nodes, proc.MaxCPUsForUtil, scope, exclusive)
			if utilCPU >= 0 {
				onHost = false
				newMask = cpuset.Of(utilCPU)
				s.adjustUtilBehavior(t, hints.Behavior)
				break
			}
		}
		if hints.Location&api.AttrLWKCPU == 0 {
			first, mask := s.selectHostUtilityCPUs(t, mt, locID, nodes, keyPending)
			if first >= 0 {
				// The thread will share a host CPU with host tasks, so
				// it must play by host rules from here on.
				onHost = true
				utilCPU = first
				newMask = mask
				s.moveToHostScheduler(t, hints.Behavior)
				break
			}
		}
		if mt == api.MatchFirstAvail {
			if hints.Location&api.AttrLWKCPU == 0 || commitLimit == CommitMax {
				// FirstAvail with host CPUs allowed should always find
				// a CPU; surface the failure on exit.
				utilCPU = -1
				break
			}
			if exclusive != 0 {
				placementHonored = false
			}
			commitLimit++
		} else {
			mt = relaxMatch(mt)
			placementHonored = false
		}
	}

	if utilCPU < 0 {
		if keyPending {
			s.utilGrp.abort()
		}
		log.Warn().Int("pid", t.PID).Msg("lwk-sched: utility cpu selection failure")
		return
	}

	s.SetCPUsAllowed(t, newMask)
	// Keep the thread where it belongs for syscall return.
	t.SavedMask = newMask
	t.LWK.Type = api.ThreadUtility

	if keyPending {
		if s.utilGrp.complete(hints.Key, s.rqs[utilCPU].topo) {
			t.LWK.ActiveHints.Key = hints.Key
		} else {
			placementHonored = false
		}
	}

	// A moveable utility thread chains onto the process list, head
	// first. Utility threads are allocated from the end of the
	// sequence, so a later push clears the CPU that is next in the
	// sequence for the worker threads.
	if !onHost && hints.Behavior&api.AttrExcl == 0 && hints.Location == 0 {
		proc.utilMu.Lock()
		s.commitCPU(t, utilCPU)
		proc.utilAddFront(t)
		proc.utilMu.Unlock()
	} else {
		s.commitCPU(t, utilCPU)
	}

	placementResult := api.CloneResultAccepted
	if placementHonored {
		t.LWK.ActiveHints.Location = hints.Location
	} else {
		t.LWK.ActiveHints.Location = 0
		placementResult = api.CloneResultRejected
	}
	behaviorResult := api.CloneResultAccepted
	if acceptableBehavior(hints.Behavior) {
		t.LWK.ActiveHints.Behavior = hints.Behavior
	} else {
		t.LWK.ActiveHints.Behavior = 0
		behaviorResult = api.CloneResultRejected
	}
	t.LWK.ActiveHints.Nodes = hints.Nodes
	if hints.Result != nil {
		hints.Result.Placement = placementResult
		hints.Result.Behavior = behaviorResult
	}
}

// pushUtilityThreads makes room for a new compute thread: while no LWK
// CPU is fully uncommitted and moveable utility threads remain, pop
// the head of the list and relocate it onto a host CPU, honouring only
// a NodeSet hint from its original request.
func (s *Scheduler) pushUtilityThreads(t *Task) {
	proc := t.Proc

	if cpu := s.selectCandidate(t, 0, api.ForwardSearch,
		api.MatchFirstAvail, 0, 0, -1, api.CommitAll, 0); cpu >= 0 {
		return
	}

	proc.utilMu.Lock()
	defer proc.utilMu.Unlock()

	for {
		ut := proc.utilFirst()
		if ut == nil {
			return
		}
		proc.utilRemove(ut)

		mt := api.MatchFirstAvail
		locID := 0
		var nodes api.NodeSet
		if ut.LWK.ActiveHints.Location&api.AttrUseNodeSet != 0 {
			mt = api.MatchInNodeSet
			nodes = ut.LWK.ActiveHints.Nodes
		}

		utilCPU := -1
		newMask := ut.Allowed
		for {
			first, mask := s.selectHostUtilityCPUs(ut, mt, locID, nodes, false)
			if first >= 0 {
				utilCPU = first
				newMask = mask
				s.pushToHostScheduler(ut)
				break
			}
			if mt == api.MatchFirstAvail {
				// No host CPU even unconditionally: keep the thread in
				// place but off the moveable list.
				utilCPU = ut.LWK.CPUHome
				warnOnce("push-nohost",
					"lwk-sched: no host cpu available while pushing utility thread", ut.PID)
				break
			}
			mt = relaxMatch(mt)
		}

		fromCPU := ut.LWK.CPUHome
		s.uncommitCPU(ut)
		s.commitCPU(ut, utilCPU)
		s.SetCPUsAllowed(ut, newMask)

		if fromCPU >= 0 {
			rq := s.rqs[fromCPU]
			rq.commitMu.Lock()
			rq.stats.Pushed++
			rq.commitMu.Unlock()
		}

		if cpu := s.selectCandidate(t, 0, api.ForwardSearch,
			api.MatchFirstAvail, 0, 0, -1, api.CommitAll, 0); cpu >= 0 {
			// An LWK CPU is free again; the work is done.
			return
		}
	}
}
