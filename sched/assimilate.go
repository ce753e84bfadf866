// File: sched/assimilate.go
// Author: momentics <momentics@gmail.com>
//
// Assimilation: any task enqueued on an LWK CPU is taken over by the
// LWK class and abides by its rules from then on; a Guest landing back
// on a host CPU is given back to its original class. Called by the
// host with the run-queue lock held, just before the enqueue hook.

package sched

import (
	"strings"

	"github.com/momentics/lwksched/api"
	"github.com/rs/zerolog/log"
)

// expectedGuests are host tasks that routinely visit LWK CPUs and do
// not deserve a warning.
var expectedGuests = []string{"ksoftirqd", "cpuhp", "lwkidle"}

func expectedGuest(comm string) bool {
	for _, p := range expectedGuests {
		if strings.HasPrefix(comm, p) {
			return true
		}
	}
	return false
}

// AssimilateTask converts a task arriving on an LWK CPU into an
// LWK-scheduled one, or gives an assimilated Guest back to its
// original class when it arrives on a host CPU.
func (s *Scheduler) AssimilateTask(rq *RunQueue, t *Task) {
	// The common post-launch path: already ours, already on an LWK CPU.
	if t.LWK.Assimilated {
		if rq.IsLWK() {
			return
		}
		if t.LWK.Type == api.ThreadGuest {
			// LWK CPUs are being returned to the host, or a stray
			// kthread was re-affinitized away. Give it back.
			t.Class = t.LWK.origClass
			t.Policy = t.LWK.origPolicy
			t.LWK.Assimilated = false
			rq.stats.Givebacks++
			return
		}
	}
	if !rq.IsLWK() {
		return
	}

	// A new LWK process thread launching on an LWK CPU for the first
	// time.
	if proc := t.Proc; proc != nil {
		if proc.EnableRR > 0 {
			t.Policy = api.PolicyRR
		} else {
			t.Policy = api.PolicyFIFO
		}
		t.Prio = PrioDefault
		t.NormalPrio = PrioDefault
		t.RTPriority = DefaultUserRTPrio
		t.Class = ClassLWK
		t.LWK.Assimilated = true
		t.LWK.Type = api.ThreadNormal
		slice := defaultTimeslice
		if proc.EnableRR > 0 {
			slice = proc.EnableRR
		}
		t.LWK.TimeSlice = slice
		t.LWK.OrigTimeSlice = slice
		t.LWK.MoveSyscallsDisable = proc.MoveSyscallsDisable
		return
	}

	// Stop and host-idle tasks keep their own queues.
	if t.Class == ClassStop || t.Class == ClassHostIdle {
		return
	}

	if !expectedGuest(t.Comm) {
		log.Warn().Str("comm", t.Comm).Str("allowed", t.Allowed.String()).
			Msg("lwk-sched: unexpected assimilation of task")
	}

	t.LWK.origClass = t.Class
	t.LWK.origPolicy = t.Policy

	switch t.Class {
	case ClassDeadline, ClassRT, ClassFair:
		t.LWK.Assimilated = true
	default:
		warnOnce("assim-class", "lwk-sched: unrecognized scheduling class, policy", int(t.Policy))
	}
	if !t.LWK.Assimilated {
		return
	}

	t.Class = ClassLWK
	t.LWK.TimeSlice = defaultTimeslice
	t.LWK.OrigTimeSlice = defaultTimeslice
	if t == rq.idle {
		t.LWK.Type = api.ThreadIdle
	} else {
		t.LWK.Type = api.ThreadGuest
		rq.stats.Guests++
	}
}
