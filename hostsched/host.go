// File: hostsched/host.go
// Author: momentics <momentics@gmail.com>
//
// A minimal host-side scheduler binding: per-CPU fair FIFO queues that
// receive tasks the LWK core gives back, reschedule signalling, and
// the host task clock. Real deployments replace this with their own
// binding; the contract is the sched.Host interface.

package hostsched

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog/log"

	"github.com/momentics/lwksched/sched"
)

// Host implements sched.Host over simple per-CPU fair queues.
type Host struct {
	start time.Time
	cpus  int

	fair []*fairRQ

	reschedPending []atomic.Bool

	core *sched.Scheduler
}

type fairRQ struct {
	mu sync.Mutex
	q  *queue.Queue
}

// NewHost builds a host binding for the given CPU count.
func NewHost(cpus int) *Host {
	h := &Host{
		start:          time.Now(),
		cpus:           cpus,
		fair:           make([]*fairRQ, cpus),
		reschedPending: make([]atomic.Bool, cpus),
	}
	for i := range h.fair {
		h.fair[i] = &fairRQ{q: queue.New()}
	}
	return h
}

// Bind attaches the LWK core once it exists. NewHost cannot take the
// core directly because the core takes the host.
func (h *Host) Bind(core *sched.Scheduler) { h.core = core }

// MoveToFair implements sched.Host: install the weight tables and
// queue the task on the fair side of an allowed CPU.
func (h *Host) MoveToFair(t *sched.Task, nice int) {
	t.LoadWeight, t.InvWeight = weightsForNice(nice)

	cpu := t.CPU
	if cpu < 0 || cpu >= h.cpus || !t.Allowed.Has(cpu) {
		cpu = t.Allowed.First()
	}
	if cpu < 0 || cpu >= h.cpus {
		log.Warn().Int("pid", t.PID).Str("allowed", t.Allowed.String()).
			Msg("hostsched: no usable cpu for transferred task")
		return
	}
	t.CPU = cpu

	rq := h.fair[cpu]
	rq.mu.Lock()
	rq.q.Add(t)
	rq.mu.Unlock()
}

// Resched implements sched.Host.
func (h *Host) Resched(cpu int) {
	if cpu >= 0 && cpu < h.cpus {
		h.reschedPending[cpu].Store(true)
	}
}

// Schedule implements sched.Host: acknowledge the reschedule request.
// The dispatcher owning the CPU picks next at its own pace.
func (h *Host) Schedule(cpu int) {
	if cpu < 0 || cpu >= h.cpus {
		return
	}
	h.reschedPending[cpu].Store(false)
	if h.core != nil {
		h.core.RQ(cpu).ClearNeedResched()
	}
}

// NowTask implements sched.Host.
func (h *Host) NowTask(cpu int) int64 {
	return time.Since(h.start).Nanoseconds()
}

// ReschedPending reports and clears a CPU's pending reschedule flag.
func (h *Host) ReschedPending(cpu int) bool {
	if cpu < 0 || cpu >= h.cpus {
		return false
	}
	return h.reschedPending[cpu].Swap(false)
}

// FairNext pops the next fair task of a CPU, nil when empty.
func (h *Host) FairNext(cpu int) *sched.Task {
	if cpu < 0 || cpu >= h.cpus {
		return nil
	}
	rq := h.fair[cpu]
	rq.mu.Lock()
	defer rq.mu.Unlock()
	if rq.q.Length() == 0 {
		return nil
	}
	return rq.q.Remove().(*sched.Task)
}

// FairLen returns the number of queued fair tasks on a CPU.
func (h *Host) FairLen(cpu int) int {
	if cpu < 0 || cpu >= h.cpus {
		return 0
	}
	rq := h.fair[cpu]
	rq.mu.Lock()
	defer rq.mu.Unlock()
	return rq.q.Length()
}
