// File: sched/process.go
// Author: momentics <momentics@gmail.com>
//
// Per-process LWK state: the ceded CPU set, the placement sequence,
// the shared utility-CPU pool, policy knobs from the boot channel, and
// the moveable-utility list. Lifecycle mirrors the process itself:
// init, start (launch onto the partition), per-thread exit, exit.

package sched

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/lwksched/api"
	"github.com/momentics/lwksched/cpuset"
	"github.com/rs/zerolog/log"
)

// Process is the LWK process record.
type Process struct {
	TGID int

	// LWKCPUs is the ceded partition; Sequence orders it for
	// placement (typically end-loaded for utility threads); UtilCPUs
	// are host CPUs usable for utility threads.
	LWKCPUs  cpuset.Set
	Sequence []int
	UtilCPUs cpuset.Set

	// OriginalAllowed is the affinity the process had before entering
	// the LWK world, restored on full-process forks.
	OriginalAllowed cpuset.Set

	// Policy knobs accepted from the boot channel.
	MaxCPUsForUtil       int
	MaxUtilThreadsPerCPU int
	Overcommit           api.CommitScope
	AllowedCPUsPerUtil   api.CPUsPerUtil
	EnableRR             int // timeslice in ticks, 0 disables
	DisableSetaffinity   int // errno+1 to return, 0 allows
	MoveSyscallsDisable  bool
	SchedStats           int
	NumUtilThreads       int

	threadsCreated atomic.Int32

	// moveable-utility list; never touched from interrupt context.
	utilMu   sync.Mutex
	utilHead *Task

	sched *Scheduler
}

// NewProcess creates the record for a process that has reserved the
// given LWK CPUs. The sequence is the placement preference order; an
// empty one defaults to ascending CPU ids.
func (s *Scheduler) NewProcess(tgid int, lwkcpus cpuset.Set, sequence []int, utilcpus cpuset.Set) *Process {
	if len(sequence) == 0 {
		lwkcpus.ForEach(func(cpu int) { sequence = append(sequence, cpu) })
	}
	p := &Process{
		TGID:                 tgid,
		LWKCPUs:              lwkcpus,
		Sequence:             sequence,
		UtilCPUs:             utilcpus,
		MaxCPUsForUtil:       -1,
		MaxUtilThreadsPerCPU: 1,
		Overcommit:           api.CommitOnlyUtility,
		AllowedCPUsPerUtil:   api.MultipleCPUsPerUtil,
		sched:                s,
	}
	return p
}

// ThreadsCreated returns the number of threads cloned so far.
func (p *Process) ThreadsCreated() int { return int(p.threadsCreated.Load()) }

// Start prepares the partition for the process now owning its CPUs and
// launches the per-CPU idle tasks. The owner is published before any
// idle task can observe it.
func (p *Process) Start(leader *Task) {
	s := p.sched
	leader.Proc = p

	p.LWKCPUs.ForEach(func(cpu int) {
		rq := s.rqs[cpu]
		rq.commitMu.Lock()
		rq.computeCommits.Store(0)
		rq.utilityCommits.Store(0)
		rq.stats.prepareLaunch()
		rq.stats.PID = p.TGID
		rq.commitMu.Unlock()
		rq.exclusivePID.Store(0)
		rq.owner.Store(int64(p.TGID))
	})

	p.LWKCPUs.ForEach(func(cpu int) {
		s.prepareIdleTask(cpu)
	})

	p.OriginalAllowed = leader.Allowed
	log.Info().Int("pid", p.TGID).Str("cpus", p.LWKCPUs.String()).
		Msg("lwk-sched: process launched")
}

// ThreadExit releases a thread's commit, its moveable-list linkage and
// its utility-group reference.
func (p *Process) ThreadExit(t *Task) {
	s := p.sched
	s.uncommitCPU(t)

	p.utilMu.Lock()
	if t.LWK.onUtilList {
		p.utilRemove(t)
	}
	p.utilMu.Unlock()

	if key := t.LWK.ActiveHints.Key; key != 0 {
		s.utilGrp.put(key)
	}
}

// Exit tears the process down: the utility pool is cleared, the LWK
// CPUs drop into their deep low-power state, and the end-of-job
// statistics are summarized.
func (p *Process) Exit() {
	s := p.sched

	p.UtilCPUs = cpuset.Set{}

	p.LWKCPUs.ForEach(func(cpu int) {
		s.rqs[cpu].owner.Store(0)
	})
	// Kick the idle tasks so they re-evaluate their sleep state.
	p.LWKCPUs.ForEach(func(cpu int) {
		if sl := s.rqs[cpu].sleeper; sl != nil {
			sl.Wake()
		}
	})

	p.summarizeStats()
}

// --- moveable-utility list, caller holds utilMu ---

func (p *Process) utilAddFront(t *Task) {
	t.LWK.utilPrev = nil
	t.LWK.utilNext = p.utilHead
	if p.utilHead != nil {
		p.utilHead.LWK.utilPrev = t
	}
	p.utilHead = t
	t.LWK.onUtilList = true
}

func (p *Process) utilFirst() *Task { return p.utilHead }

func (p *Process) utilRemove(t *Task) {
	if t.LWK.utilPrev != nil {
		t.LWK.utilPrev.LWK.utilNext = t.LWK.utilNext
	} else {
		p.utilHead = t.LWK.utilNext
	}
	if t.LWK.utilNext != nil {
		t.LWK.utilNext.LWK.utilPrev = t.LWK.utilPrev
	}
	t.LWK.utilNext, t.LWK.utilPrev = nil, nil
	t.LWK.onUtilList = false
}
