// File: sched/scheduler.go
// Author: momentics <momentics@gmail.com>
//
// Partition-level state: one run queue per present CPU, the utility
// group registry, the probed low-power hint words and the host bridge.

package sched

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/lwksched/control"
	"github.com/momentics/lwksched/cpuset"
	"github.com/momentics/lwksched/idle"
	"github.com/momentics/lwksched/topology"
	"github.com/rs/zerolog/log"
)

// Host is the narrow surface of the host scheduler the core consumes.
// Implementations must not call back into core hooks synchronously
// from these methods.
type Host interface {
	// MoveToFair hands a task back to the host fair class; the host
	// installs its weight tables and requeues the task on its side.
	MoveToFair(t *Task, nice int)
	// Resched requests a reschedule on a CPU.
	Resched(cpu int)
	// Schedule lets the host dispatcher run runnable work on a CPU;
	// the idle loop calls it and expects it to return when the CPU
	// would fall idle again, with the need-resched flag cleared.
	Schedule(cpu int)
	// NowTask returns the task clock of a CPU in nanoseconds.
	NowTask(cpu int) int64
}

// Option configures a Scheduler at construction.
type Option func(*Scheduler)

// WithSleeperFactory overrides how per-CPU idle sleepers are built.
func WithSleeperFactory(f func(cpu int) idle.Sleeper) Option {
	return func(s *Scheduler) { s.sleeperFor = f }
}

// Scheduler is the LWK companion scheduler core for one machine.
type Scheduler struct {
	host   Host
	topo   topology.Provider
	nrCPUs int
	rqs    []*RunQueue

	// lwkCPUs mirrors the union of active per-CPU lwk flags.
	lwkMu   sync.Mutex
	lwkCPUs cpuset.Set

	utilGrp utilGroupTable

	shallowSleep uint32
	deepSleep    uint32

	sleeperFor func(cpu int) idle.Sleeper

	metrics *control.MetricsRegistry

	nextIdlePID atomic.Int64
}

// New builds the per-CPU run queues from the topology facts and probes
// the low-power capabilities once.
func New(host Host, topo topology.Provider, opts ...Option) *Scheduler {
	s := &Scheduler{
		host:   host,
		topo:   topo,
		nrCPUs: topo.NumCPUs(),
	}
	s.sleeperFor = func(cpu int) idle.Sleeper { return idle.NewSleeper() }
	s.metrics = control.NewMetricsRegistry()
	for _, o := range opts {
		o(s)
	}

	s.shallowSleep, s.deepSleep = idle.ProbeHints()

	s.rqs = make([]*RunQueue, s.nrCPUs)
	for cpu := 0; cpu < s.nrCPUs; cpu++ {
		rq := &RunQueue{
			cpu:          cpu,
			topo:         topo.CPU(cpu),
			shallowSleep: s.shallowSleep,
			deepSleep:    s.deepSleep,
			sleeper:      s.sleeperFor(cpu),
			sched:        s,
		}
		s.rqs[cpu] = rq
	}
	s.nextIdlePID.Store(1 << 20)
	return s
}

// NumCPUs returns the number of present CPUs.
func (s *Scheduler) NumCPUs() int { return s.nrCPUs }

// Metrics exposes the registry end-of-job summaries are published to.
func (s *Scheduler) Metrics() *control.MetricsRegistry { return s.metrics }

// RQ returns the run queue of one CPU.
func (s *Scheduler) RQ(cpu int) *RunQueue { return s.rqs[cpu] }

// LWKCPUs returns the CPUs currently ceded to the LWK side.
func (s *Scheduler) LWKCPUs() cpuset.Set {
	s.lwkMu.Lock()
	defer s.lwkMu.Unlock()
	return s.lwkCPUs
}

// Activate cedes a set of CPUs to the LWK side. The store of the flag
// is the activation event the idle driver observes.
func (s *Scheduler) Activate(set cpuset.Set) {
	s.lwkMu.Lock()
	s.lwkCPUs = s.lwkCPUs.Or(set)
	s.lwkMu.Unlock()
	set.ForEach(func(cpu int) {
		s.rqs[cpu].lwk.Store(true)
	})
	log.Info().Str("cpus", set.String()).Msg("lwk-sched: cpus activated")
}

// Deactivate returns CPUs to the host: flip the flag, wake each idle
// task, and wait for its loop to exit before reclaiming the CPU.
func (s *Scheduler) Deactivate(set cpuset.Set) {
	s.lwkMu.Lock()
	s.lwkCPUs = s.lwkCPUs.AndNot(set)
	s.lwkMu.Unlock()

	set.ForEach(func(cpu int) {
		rq := s.rqs[cpu]
		// The flag store is sequenced before the wake so the idle loop
		// observes the new value.
		rq.lwk.Store(false)
		if rq.sleeper != nil {
			rq.sleeper.Wake()
		}
	})
	set.ForEach(func(cpu int) {
		rq := s.rqs[cpu]
		if rq.idleDone != nil {
			<-rq.idleDone
			rq.idleDone = nil
		}
		rq.Lock()
		if rq.idle != nil {
			rq.dequeueIdle(rq.idle)
			rq.idle = nil
			rq.idlePID = 0
		}
		rq.Unlock()
	})
	log.Info().Str("cpus", set.String()).Msg("lwk-sched: cpus deactivated")
}

// Exit reports partition-lifetime assimilation totals.
func (s *Scheduler) Exit() {
	var guests, givebacks uint64
	for _, rq := range s.rqs {
		st := rq.StatsSnapshot()
		guests += st.Guests
		givebacks += st.Givebacks
	}
	log.Info().Uint64("givebacks", givebacks).Uint64("guests", guests).
		Msg("lwk-sched: giving back assimilated tasks")
}

// SetTaskCPU maintains commit accounting when the host migrates a
// task. Called before the host updates the task's current CPU.
func (s *Scheduler) SetTaskCPU(t *Task, newCPU int) {
	if newCPU < 0 || newCPU >= s.nrCPUs {
		return
	}
	if t.CPU == newCPU || t.Proc == nil {
		return
	}
	if !s.rqs[newCPU].IsLWK() {
		return
	}
	home := t.LWK.CPUHome
	if newCPU == home {
		// Returning from a host syscall CPU to the committed home.
		if t.CPU >= 0 && t.CPU < s.nrCPUs && !s.rqs[t.CPU].IsLWK() {
			rq := s.rqs[home]
			rq.commitMu.Lock()
			rq.stats.SyscMigr++
			rq.commitMu.Unlock()
		}
		return
	}
	s.uncommitCPU(t)
	s.commitCPU(t, newCPU)
}

// SelectMigrationTarget picks the CPU a task should migrate to when
// its allowed mask changes.
func (s *Scheduler) SelectMigrationTarget(t *Task, newMask cpuset.Set) int {
	if cpu := s.selectMainThreadHome(t); cpu >= 0 {
		return cpu
	}
	if newMask.Has(t.CPU) {
		return t.CPU
	}
	if home := t.LWK.CPUHome; home >= 0 && newMask.Has(home) {
		return home
	}
	if t.Proc != nil && newMask.Subset(t.Proc.LWKCPUs) {
		return s.SelectCPUCandidate(t, CommitMax)
	}
	return newMask.First()
}

// SelectLaunchCPU handles the wakeup that launches a new LWK process:
// the setaffinity to the LWK partition has happened, but the task is
// not assimilated yet.
func (s *Scheduler) SelectLaunchCPU(t *Task, cpu int) int {
	if t.Proc == nil {
		return cpu
	}
	if !t.Allowed.Has(cpu) && t.Allowed.Subset(t.Proc.LWKCPUs) {
		return s.SelectCPUCandidate(t, CommitMax)
	}
	return cpu
}
