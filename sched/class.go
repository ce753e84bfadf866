// File: sched/class.go
// Author: momentics <momentics@gmail.com>
//
// The hook set the host scheduler invokes on the LWK class. Unless
// stated otherwise the host holds the CPU's run-queue lock around
// every call, per the binding contract.

package sched

import (
	"github.com/momentics/lwksched/api"
	"github.com/momentics/lwksched/cpuset"
)

// SelectReason tells SelectTaskRQ why a CPU is being chosen.
type SelectReason int

const (
	SelectWake SelectReason = iota
	SelectFork
	SelectExec
)

// updateCurr charges the elapsed host task clock to the current task.
// Tasks outside the LWK class and the idle entity are skipped.
func (rq *RunQueue) updateCurr() {
	curr := rq.curr
	if curr == nil || curr.Class != ClassLWK {
		return
	}
	if curr.LWK.Type == api.ThreadIdle {
		return
	}
	now := rq.sched.host.NowTask(rq.cpu)
	delta := now - curr.ExecStart
	if delta <= 0 {
		return
	}
	if delta > curr.ExecMax {
		curr.ExecMax = delta
	}
	curr.SumExecRuntime += delta
	curr.ExecStart = now
}

// EnqueueTask adds a task to the CPU's LWK run queue.
func (s *Scheduler) EnqueueTask(rq *RunQueue, t *Task, head bool) {
	rq.enqueueTask(t, head)
}

// DequeueTask removes a task from the CPU's LWK run queue.
func (s *Scheduler) DequeueTask(rq *RunQueue, t *Task) {
	rq.dequeueTask(t)
}

// YieldTask rotates the current task to the tail of its slot. No
// priority demotion.
func (s *Scheduler) YieldTask(rq *RunQueue) {
	if rq.curr != nil {
		rq.requeueTask(rq.curr, false)
	}
}

// CheckPreemptCurr reschedules iff the newly runnable task occupies a
// strictly lower queue index than the running one.
func (s *Scheduler) CheckPreemptCurr(rq *RunQueue, t *Task) {
	if rq.curr == nil {
		return
	}
	if rqIndex(t.Prio) < rqIndex(rq.curr.Prio) {
		s.reschedCurr(rq)
	}
}

// PickNextTask returns the first entity of the lowest non-empty slot,
// or nil so the host continues its own class walk.
func (s *Scheduler) PickNextTask(rq *RunQueue, prev *Task) *Task {
	if prev != nil && prev.Class == ClassLWK {
		rq.updateCurr()
	}
	t := rq.pickNext()
	if t == nil {
		return nil
	}
	if t.LWK.Type != api.ThreadIdle {
		t.ExecStart = s.host.NowTask(rq.cpu)
	}
	if t.LWK.Type == api.ThreadGuest {
		rq.stats.GuestDispatch++
	}
	return t
}

// PutPrevTask closes out the departing task's runtime accounting.
func (s *Scheduler) PutPrevTask(rq *RunQueue, t *Task) {
	if t.LWK.Type != api.ThreadIdle {
		rq.updateCurr()
	}
}

// SetCurrTask is invoked after the host switches to a task of this
// class.
func (s *Scheduler) SetCurrTask(rq *RunQueue) {
	if rq.curr != nil {
		rq.curr.ExecStart = s.host.NowTask(rq.cpu)
	}
}

// TaskTick drives round-robin time-slicing. On an LWK CPU only tasks
// carrying the RR policy are sliced; a task whose slice expires while
// sharing its slot rotates to the tail.
func (s *Scheduler) TaskTick(rq *RunQueue, t *Task) {
	rq.updateCurr()
	if rq.IsLWK() {
		rq.stats.TimerPop++
	}
	if rq.IsLWK() && t.Policy != api.PolicyRR {
		return
	}
	t.LWK.TimeSlice--
	if t.LWK.TimeSlice > 0 {
		return
	}
	t.LWK.TimeSlice = t.LWK.OrigTimeSlice

	if !rq.singularAtPrio(t) {
		rq.requeueTask(t, false)
		s.reschedCurr(rq)
	}
}

// GetRRInterval reports the task's timeslice, zero when it is not
// round-robin sliced.
func (s *Scheduler) GetRRInterval(t *Task) int {
	if t.Policy == api.PolicyRR {
		return t.LWK.OrigTimeSlice
	}
	return 0
}

// PrioChanged re-evaluates the queue ordering after a priority change.
func (s *Scheduler) PrioChanged(rq *RunQueue, t *Task, oldPrio int) {
	if !t.LWK.onRQ() {
		return
	}
	if rq.curr == t {
		// Reschedule on drop of priority.
		if rqIndex(oldPrio) < rqIndex(t.Prio) {
			s.reschedCurr(rq)
		}
	} else if rq.curr != nil && rqIndex(t.Prio) < rqIndex(rq.curr.Prio) {
		s.reschedCurr(rq)
	}
}

// SwitchedTo re-evaluates ordering when a task joins the LWK class.
func (s *Scheduler) SwitchedTo(rq *RunQueue, t *Task) {
	if t.LWK.onRQ() && rq.curr != t && rq.curr != nil {
		if rqIndex(t.Prio) < rqIndex(rq.curr.Prio) {
			s.reschedCurr(rq)
		}
	}
}

// SwitchedFrom is a no-op: the core never pulls.
func (s *Scheduler) SwitchedFrom(rq *RunQueue, t *Task) {}

// TaskWoken is a no-op: the core never pushes on wakeup.
func (s *Scheduler) TaskWoken(rq *RunQueue, t *Task) {}

// SetCPUsAllowed copies the mask and recomputes its weight.
func (s *Scheduler) SetCPUsAllowed(t *Task, mask cpuset.Set) {
	t.Allowed = mask
	t.NrCPUsAllowed = mask.Weight()
}

// SelectTaskRQ chooses the CPU a waking or forking task should run on.
func (s *Scheduler) SelectTaskRQ(t *Task, cpu int, reason SelectReason) int {
	if t.Proc == nil {
		return cpu
	}
	ncpu := cpu

	switch reason {
	case SelectWake:
		if home := t.LWK.CPUHome; home >= 0 && t.Allowed.Has(home) {
			ncpu = home
		}
	case SelectFork:
		return s.SelectCPUCandidate(t, CommitMax)
	}

	// Waking on the LWK side?
	if t.Allowed.Intersects(s.lwkCPUs) {
		if t.Allowed.Has(ncpu) {
			if s.isOvercommitted(ncpu) {
				if result := s.SelectCPUCandidate(t, 0); result >= 0 {
					ncpu = result
				}
			}
		} else {
			ncpu = s.SelectCPUCandidate(t, CommitMax)
		}
	}
	return ncpu
}

// reschedCurr flags the CPU for reschedule, kicks a sleeping idle task
// and notifies the host.
func (s *Scheduler) reschedCurr(rq *RunQueue) {
	rq.needResched.Store(true)
	if rq.sleeper != nil {
		rq.sleeper.Wake()
	}
	s.host.Resched(rq.cpu)
}
