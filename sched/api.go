// File: sched/api.go
// Author: momentics <momentics@gmail.com>
//
// User-space facing calls: staging clone attributes, yield, and the
// setaffinity surface with its per-process veto.

package sched

import (
	"fmt"
	"math/bits"

	"github.com/momentics/lwksched/api"
	"github.com/momentics/lwksched/cpuset"
)

// maxNodeBits bounds the node bitmap a caller may pass.
const maxNodeBits = 64

// SetCloneAttr validates and stages clone attributes on the calling
// task. The staged record is consumed exactly once by the next fork.
// A nil attr is a fault; conflicting placement or behavior bits are
// invalid arguments and leave no hints recorded.
func (s *Scheduler) SetCloneAttr(t *Task, attr *api.CloneAttr, maxNodes uint,
	nodes api.NodeSet, result *api.CloneResult, key uint64) error {

	if attr == nil {
		return api.ErrFault
	}
	if attr.Size != api.CloneAttrSize {
		// Interface record layout mismatch between caller and core.
		return api.ErrInvalidArgument
	}
	if maxNodes > maxNodeBits {
		return api.ErrInvalidArgument
	}
	if maxNodes > 0 && maxNodes < maxNodeBits {
		// Bits beyond maxNodes must be clear.
		if nodes&^((api.NodeSet(1)<<maxNodes)-1) != 0 {
			return api.ErrInvalidArgument
		}
	}

	hints := &t.LWK.CloneHints

	if attr.Flags&api.AttrClear != 0 {
		// Wipe all previously staged clone attributes.
		*hints = CloneHints{}
		return nil
	}

	if placementConflict(attr.Placement, attr.Behavior, key) {
		return api.ErrInvalidArgument
	}
	if attr.Placement&api.AttrUseNodeSet != 0 && nodes.Empty() {
		return api.ErrInvalidArgument
	}
	if attr.Behavior&api.AttrHighPrio != 0 && attr.Behavior&api.AttrLowPrio != 0 {
		return api.ErrInvalidArgument
	}

	placement := attr.Placement
	if placement&api.AttrFabricInt != 0 {
		// Fabric interrupt handling lives on the host side.
		placement |= api.AttrHostCPU
	}
	if placement&api.AttrLWKCPU != 0 && placement&api.AttrHostCPU != 0 {
		return api.ErrInvalidArgument
	}

	if key != 0 {
		hints.Key = key
	}
	if result != nil {
		if attr.Behavior != 0 {
			result.Behavior = api.CloneResultRequested
		} else {
			result.Behavior = api.CloneResultNone
		}
		if placement != 0 {
			result.Placement = api.CloneResultRequested
		} else {
			result.Placement = api.CloneResultNone
		}
	}

	hints.Nodes = nodes
	hints.Flags = attr.Flags
	hints.Behavior = attr.Behavior
	hints.Location = placement
	hints.Result = result
	return nil
}

// placementConflict rejects more than one topology directive, an
// exclusive reservation on a host CPU, and a grouping key combined
// with an explicit node set.
func placementConflict(place, behavior uint32, key uint64) bool {
	if bits.OnesCount32(place&api.PlacementConflicts) > 1 {
		return true
	}
	if behavior&api.AttrExcl != 0 && place&api.AttrHostCPU != 0 {
		return true
	}
	if key != 0 && place&api.AttrUseNodeSet != 0 {
		return true
	}
	return false
}

// Yield gives up the CPU to other threads of equal priority. The
// common HPC case — the caller alone in its slot on its LWK CPU —
// returns immediately without touching the queue.
func (s *Scheduler) Yield(t *Task) {
	cpu := t.CPU
	if cpu < 0 || cpu >= s.nrCPUs {
		return
	}
	rq := s.rqs[cpu]

	// Are we the only thread at this priority? In most HPC
	// environments this will be true.
	if rq.IsLWK() && rq.singularAtPrio(t) {
		return
	}

	rq.Lock()
	s.YieldTask(rq)
	rq.Unlock()
	s.reschedCurr(rq)
}

// SchedSetAffinity is the setaffinity surface for LWK tasks: the
// per-process veto may turn it into an errno, otherwise the mask is
// applied and a migration target chosen.
func (s *Scheduler) SchedSetAffinity(t *Task, mask cpuset.Set) (int, error) {
	if proc := t.Proc; proc != nil && proc.DisableSetaffinity > 0 {
		return -1, fmt.Errorf("setaffinity disabled, errno %d: %w",
			proc.DisableSetaffinity-1, api.ErrNotSupported)
	}
	if mask.Empty() {
		return -1, api.ErrInvalidArgument
	}
	if home := t.LWK.CPUHome; home >= 0 && home < s.nrCPUs {
		rq := s.rqs[home]
		rq.commitMu.Lock()
		rq.stats.Setaffinity++
		rq.commitMu.Unlock()
	}
	s.SetCPUsAllowed(t, mask)
	return s.SelectMigrationTarget(t, mask), nil
}
