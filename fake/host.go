// File: fake/host.go
// Author: momentics <momentics@gmail.com>
//
// Deterministic sched.Host test double: a manual task clock, recorded
// give-backs and reschedule requests, no real dispatching.

package fake

import (
	"sync"

	"github.com/momentics/lwksched/sched"
)

// Host records every interaction the core has with the host side.
type Host struct {
	// Core, when set, lets Schedule honor the contract of clearing
	// the need-resched flag.
	Core *sched.Scheduler

	mu sync.Mutex

	clock int64

	// MovedToFair lists tasks given back to the host, in order.
	MovedToFair []*sched.Task
	// NiceOf records the nice value each give-back carried.
	NiceOf map[int]int
	// Rescheds counts reschedule requests per CPU.
	Rescheds map[int]int
	// Schedules counts dispatcher hand-offs per CPU.
	Schedules map[int]int
}

// NewHost returns an empty recording host.
func NewHost() *Host {
	return &Host{
		NiceOf:    make(map[int]int),
		Rescheds:  make(map[int]int),
		Schedules: make(map[int]int),
	}
}

// MoveToFair implements sched.Host.
func (h *Host) MoveToFair(t *sched.Task, nice int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.MovedToFair = append(h.MovedToFair, t)
	h.NiceOf[t.PID] = nice
}

// Resched implements sched.Host.
func (h *Host) Resched(cpu int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Rescheds[cpu]++
}

// Schedule implements sched.Host.
func (h *Host) Schedule(cpu int) {
	h.mu.Lock()
	h.Schedules[cpu]++
	h.mu.Unlock()
	if h.Core != nil {
		h.Core.RQ(cpu).ClearNeedResched()
	}
}

// NowTask implements sched.Host.
func (h *Host) NowTask(cpu int) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clock
}

// Advance moves the manual task clock forward.
func (h *Host) Advance(d int64) {
	h.mu.Lock()
	h.clock += d
	h.mu.Unlock()
}

// MovedCount returns how many tasks were given back so far.
func (h *Host) MovedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.MovedToFair)
}
