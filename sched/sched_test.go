// File: sched/sched_test.go
// Author: momentics <momentics@gmail.com>
//
// Shared fixtures for the white-box scheduler tests.

package sched

import (
	"sync"

	"github.com/momentics/lwksched/cpuset"
	"github.com/momentics/lwksched/idle"
	"github.com/momentics/lwksched/topology"
)

// testHost is a minimal in-package sched.Host.
type testHost struct {
	mu       sync.Mutex
	clock    int64
	rescheds map[int]int
	moved    []*Task
	core     *Scheduler
}

func newTestHost() *testHost {
	return &testHost{rescheds: make(map[int]int)}
}

func (h *testHost) MoveToFair(t *Task, nice int) {
	h.mu.Lock()
	h.moved = append(h.moved, t)
	h.mu.Unlock()
}

func (h *testHost) Resched(cpu int) {
	h.mu.Lock()
	h.rescheds[cpu]++
	h.mu.Unlock()
}

func (h *testHost) Schedule(cpu int) {
	if h.core != nil {
		h.core.RQ(cpu).ClearNeedResched()
	}
}

func (h *testHost) NowTask(cpu int) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clock
}

func (h *testHost) advance(d int64) {
	h.mu.Lock()
	h.clock += d
	h.mu.Unlock()
}

func (h *testHost) movedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.moved)
}

// newTestScheduler builds a core over a synthetic machine with halt
// sleepers for determinism.
func newTestScheduler(nodes, coresPerNode, threadsPerCore, l2Span int) (*Scheduler, *testHost) {
	topo := topology.Uniform(nodes, coresPerNode, threadsPerCore, l2Span)
	host := newTestHost()
	s := New(host, topo, WithSleeperFactory(func(cpu int) idle.Sleeper {
		return idle.NewHaltSleeper()
	}))
	host.core = s
	return s, host
}

// newLWKProcess activates the partition and returns a started process
// plus its leader task.
func newLWKProcess(s *Scheduler, tgid int, lwk cpuset.Set, seq []int, util cpuset.Set) (*Process, *Task) {
	s.Activate(lwk)
	p := s.NewProcess(tgid, lwk, seq, util)
	leader := NewTask(tgid, tgid, "app")
	s.SetCPUsAllowed(leader, lwk)
	p.Start(leader)
	return p, leader
}

// launchOn assimilates and enqueues a task on an LWK CPU, mimicking
// the launch wakeup.
func launchOn(s *Scheduler, t *Task, cpu int) {
	rq := s.RQ(cpu)
	rq.Lock()
	s.AssimilateTask(rq, t)
	rq.enqueueTask(t, false)
	rq.SetCurr(t)
	rq.Unlock()
	s.SetTaskCPU(t, cpu)
	t.CPU = cpu
}

// forkThread runs the clone path for one child, returning the child
// after CPU selection and commit.
func forkThread(s *Scheduler, parent *Task, pid int) *Task {
	child := NewTask(pid, parent.TGID, parent.Comm)
	s.SetCPUsAllowed(child, parent.Allowed)
	s.TaskFork(parent, child, true)

	if cpu := s.SelectTaskRQ(child, parent.CPU, SelectFork); cpu >= 0 && s.RQ(cpu).IsLWK() {
		s.SetTaskCPU(child, cpu)
		child.CPU = cpu
	}
	return child
}
