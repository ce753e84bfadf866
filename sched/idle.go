// File: sched/idle.go
// Author: momentics <momentics@gmail.com>
//
// The LWK idle driver. Each LWK CPU gets a dedicated idle task that
// sits permanently at the lowest slot of the run queue; its loop picks
// a shallow hint while the CPU has an owning process and a deep one
// otherwise, and exits cooperatively when the CPU is handed back.

package sched

import (
	"fmt"

	"github.com/momentics/lwksched/api"
	"github.com/momentics/lwksched/cpuset"
	"github.com/rs/zerolog/log"
)

// prepareIdleTask sets up and launches the idle task of one CPU. When
// the task already exists it is only woken, so a deep-sleeping CPU
// re-evaluates its state for the incoming process.
func (s *Scheduler) prepareIdleTask(cpu int) {
	rq := s.rqs[cpu]

	if rq.idle != nil {
		rq.sleeper.Wake()
		return
	}

	pid := int(s.nextIdlePID.Add(1))
	t := NewTask(pid, pid, fmt.Sprintf("lwkidle/%d", cpu))
	t.Prio = PrioIdle
	t.NormalPrio = PrioIdle
	t.CPU = cpu
	s.SetCPUsAllowed(t, cpuset.Of(cpu))

	rq.Lock()
	rq.idle = t
	rq.idlePID = pid
	rq.idleDone = make(chan struct{})
	// The wakeup on the designated CPU sends the task through the
	// assimilation flow; it wedges itself in as the new idle task.
	s.AssimilateTask(rq, t)
	rq.enqueueTask(t, false)
	rq.Unlock()

	go s.idleMain(cpu, t)
}

// idleMain is the cooperative idle loop.
func (s *Scheduler) idleMain(cpu int, t *Task) {
	rq := s.rqs[cpu]

	for rq.lwk.Load() {
		for !rq.needResched.Load() && rq.lwk.Load() {
			var hint uint32
			if rq.owner.Load() != 0 {
				hint = rq.shallowSleep
			} else {
				hint = rq.deepSleep
			}
			// Double-check between arming the monitor and the wait.
			if rq.needResched.Load() {
				break
			}
			rq.sleeper.Sleep(hint)
		}
		if !rq.lwk.Load() {
			break
		}
		// Runnable work exists; hand the CPU to the host dispatcher
		// until it would fall idle again.
		s.host.Schedule(cpu)
	}

	// Remove the special idle treatment so the task can exit normally.
	t.LWK.Type = api.ThreadGuest
	close(rq.idleDone)
	log.Info().Int("cpu", cpu).Msg("lwk-sched: idle task exiting")
}
