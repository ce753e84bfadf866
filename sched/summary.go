// File: sched/summary.go
// Author: momentics <momentics@gmail.com>
//
// End-of-job statistics. CPUs that never held a compute commit are
// skipped. Detail level 1 logs only CPUs (and the process line) that
// saw compute overcommit; level 2 always logs the process line and the
// live utility groups; level 3 and above also log every remaining CPU.
// At any level above 0 the totals are published into the metrics
// registry for external export.

package sched

import (
	"github.com/rs/zerolog/log"

	"github.com/momentics/lwksched/control"
)

func (p *Process) summarizeStats() {
	detail := p.SchedStats
	if detail <= 0 {
		return
	}
	s := p.sched

	var total Stats
	cpus := 0
	p.LWKCPUs.ForEach(func(cpu int) {
		st := s.rqs[cpu].StatsSnapshot()
		cpus++
		if st.MaxComputeLevel == 0 {
			return
		}
		total.merge(&st)
		if (detail == 1 && st.MaxComputeLevel > 1) || detail > 2 {
			log.Info().
				Int("pid", p.TGID).
				Int("cpu", cpu).
				Int("max_compute", st.MaxComputeLevel).
				Int("max_util", st.MaxUtilLevel).
				Int("max_running", st.MaxRunning).
				Uint64("guest_dispatch", st.GuestDispatch).
				Uint64("timer_pop", st.TimerPop).
				Uint64("setaffinity", st.Setaffinity).
				Uint64("sysc_migr", st.SyscMigr).
				Uint64("pushed", st.Pushed).
				Msg("lwk-sched: cpu stats")
		}
	})

	if (detail == 1 && total.MaxComputeLevel > 1) || detail > 1 {
		log.Info().
			Int("pid", p.TGID).
			Int("threads", p.ThreadsCreated()+1).
			Int("cpus", cpus).
			Int("max_compute", total.MaxComputeLevel).
			Int("max_util", total.MaxUtilLevel).
			Int("max_running", total.MaxRunning).
			Uint64("guest_dispatch", total.GuestDispatch).
			Uint64("timer_pop", total.TimerPop).
			Uint64("setaffinity", total.Setaffinity).
			Uint64("sysc_migr", total.SyscMigr).
			Uint64("pushed", total.Pushed).
			Msg("lwk-sched: process stats")
	}
	if detail > 1 {
		s.utilGrp.logLive()
	}

	s.metrics.Publish(control.ProcessSummary{
		TGID:            p.TGID,
		Threads:         p.ThreadsCreated() + 1,
		CPUs:            cpus,
		MaxComputeLevel: total.MaxComputeLevel,
		MaxUtilLevel:    total.MaxUtilLevel,
		MaxRunning:      total.MaxRunning,
		GuestDispatch:   total.GuestDispatch,
		TimerPop:        total.TimerPop,
		SyscMigr:        total.SyscMigr,
		Setaffinity:     total.Setaffinity,
		Pushed:          total.Pushed,
	})
}
