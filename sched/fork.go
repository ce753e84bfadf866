// File: sched/fork.go
// Author: momentics <momentics@gmail.com>
//
// The fork hook. Called with the child not yet visible to the host
// scheduler, from the parent's context. Consumes the parent's staged
// clone hints exactly once.

package sched

import "github.com/momentics/lwksched/api"

// TaskFork wires a new child into the LWK world. Thread creations stay
// inside the process's LWK partition (or become utility threads);
// full-process forks are returned to the host scheduler with the
// pre-LWK affinity restored.
func (s *Scheduler) TaskFork(parent, child *Task, cloneThread bool) {
	proc := parent.Proc
	hints := parent.LWK.CloneHints

	child.Prio = parent.Prio
	child.NormalPrio = parent.Prio
	child.LWK.Type = api.ThreadNormal
	child.LWK.CPUHome = -1

	if proc == nil {
		clearCloneHints(parent, child)
		return
	}

	if cloneThread {
		child.Proc = proc
		threadCount := int(proc.threadsCreated.Add(1))

		// Heuristically-assigned utility threads come first; after
		// that, compute threads unless the hints say otherwise.
		if threadCount > proc.NumUtilThreads && hints.Flags&api.AttrUtil == 0 {
			s.SetCPUsAllowed(child, proc.LWKCPUs)

			// If needed, make room so the worker can run alone on an
			// LWK CPU. The fork-path CPU selection follows.
			s.pushUtilityThreads(child)
		} else {
			s.setUtilityCPUsAllowed(parent, child, &hints)
		}
	} else {
		// A full process fork returns to host defaults.
		child.Proc = nil
		s.moveToHostScheduler(child, 0)
		s.SetCPUsAllowed(child, proc.OriginalAllowed)
		child.SavedMask = proc.OriginalAllowed
	}

	clearCloneHints(parent, child)
}
