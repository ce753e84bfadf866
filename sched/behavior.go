// File: sched/behavior.go
// Author: momentics <momentics@gmail.com>
//
// Behavior transfer: priority banding for utility threads kept on LWK
// CPUs, and the hand-off that returns a thread to the host scheduler.

package sched

import "github.com/momentics/lwksched/api"

// adjustUtilBehavior applies the behavior word to a utility thread
// staying under LWK control. High priority lifts it above every other
// LWK band; a non-cooperative thread is forcibly time-sliced so it
// cannot starve its slot.
func (s *Scheduler) adjustUtilBehavior(t *Task, behavior uint32) {
	if behavior&api.AttrHighPrio != 0 {
		t.Prio = PrioHigh
		t.NormalPrio = PrioHigh
	} else if behavior&api.AttrLowPrio != 0 {
		t.Prio = PrioLow
		t.NormalPrio = PrioLow
	}
	if behavior&api.AttrNonCoop != 0 {
		t.Policy = api.PolicyRR
	}
}

// moveToHostScheduler reassigns the task to the host's fair class.
// All subsequent scheduling of the task is outside the core's control.
func (s *Scheduler) moveToHostScheduler(t *Task, behavior uint32) {
	var nice int
	switch {
	case behavior&api.AttrHighPrio != 0:
		nice = -20
	case behavior&api.AttrLowPrio != 0:
		nice = 19
	default:
		nice = -10
	}

	t.Policy = api.PolicyNormal
	t.StaticPrio = NiceToPrio(nice)
	t.RTPriority = 0
	t.Prio = t.StaticPrio
	t.NormalPrio = t.StaticPrio
	t.Class = ClassFair

	s.host.MoveToFair(t, nice)
}

// pushToHostScheduler transfers an already-running utility thread back
// to the host, dequeueing it from its LWK run queue first.
func (s *Scheduler) pushToHostScheduler(t *Task) {
	cpu := t.CPU
	if cpu >= 0 && cpu < s.nrCPUs {
		rq := s.rqs[cpu]
		rq.Lock()
		queued := t.LWK.onRQ()
		if queued {
			rq.dequeueTask(t)
		}
		s.moveToHostScheduler(t, t.LWK.ActiveHints.Behavior)
		rq.Unlock()
		return
	}
	s.moveToHostScheduler(t, t.LWK.ActiveHints.Behavior)
}
