// File: sched/commits.go
// Author: momentics <momentics@gmail.com>
//
// CPU-commit accounting. Every placement decision reads these
// counters; commit/uncommit write them while a process runs (process
// launch resets them) and every writer takes the per-CPU commit lock
// across the read-modify-write. Lone counter reads during
// candidate walks are deliberately racy; the caller re-checks whatever
// matters under the proper lock.

package sched

import (
	"github.com/momentics/lwksched/api"
	"github.com/rs/zerolog/log"
)

// readCommits returns a (compute, utility) pair consistent with
// respect to any concurrent commit on the same CPU.
func (rq *RunQueue) readCommits() (compute, utility int) {
	rq.commitMu.Lock()
	compute = int(rq.computeCommits.Load())
	utility = int(rq.utilityCommits.Load())
	rq.commitMu.Unlock()
	return compute, utility
}

// ComputeCommits returns the current compute-commit count.
func (rq *RunQueue) ComputeCommits() int { return int(rq.computeCommits.Load()) }

// UtilityCommits returns the current utility-commit count.
func (rq *RunQueue) UtilityCommits() int { return int(rq.utilityCommits.Load()) }

// commitCPU credits the task's thread type against cpu and records the
// task's home. Saturation is flagged, not wrapped.
func (s *Scheduler) commitCPU(t *Task, cpu int) {
	if cpu < 0 || cpu >= s.nrCPUs {
		return
	}
	rq := s.rqs[cpu]
	overflow := false

	rq.commitMu.Lock()
	switch t.LWK.Type {
	case api.ThreadNormal:
		if v := rq.computeCommits.Load(); v < CommitMax {
			rq.computeCommits.Store(v + 1)
			if int(v+1) > rq.stats.MaxComputeLevel {
				rq.stats.MaxComputeLevel = int(v + 1)
			}
		} else {
			overflow = true
			rq.stats.CommitOverflow++
		}
	case api.ThreadUtility:
		if v := rq.utilityCommits.Load(); v < CommitMax {
			rq.utilityCommits.Store(v + 1)
			if int(v+1) > rq.stats.MaxUtilLevel {
				rq.stats.MaxUtilLevel = int(v + 1)
			}
		} else {
			overflow = true
			rq.stats.CommitOverflow++
		}
	}
	rq.commitMu.Unlock()

	t.LWK.CPUHome = cpu
	if overflow {
		log.Warn().Int("cpu", cpu).Int("pid", t.PID).
			Msg("lwk-sched: commit counter saturated")
	}
}

// uncommitCPU releases the task's commit, if any. Underflow is counted
// and otherwise ignored.
func (s *Scheduler) uncommitCPU(t *Task) {
	cpu := t.LWK.CPUHome
	if cpu < 0 || cpu >= s.nrCPUs {
		return
	}
	rq := s.rqs[cpu]
	t.LWK.CPUHome = -1

	rq.commitMu.Lock()
	switch t.LWK.Type {
	case api.ThreadNormal:
		if v := rq.computeCommits.Load(); v > 0 {
			rq.computeCommits.Store(v - 1)
		} else {
			rq.stats.CommitUnderflow++
		}
	case api.ThreadUtility:
		if v := rq.utilityCommits.Load(); v > 0 {
			rq.utilityCommits.Store(v - 1)
		} else {
			rq.stats.CommitUnderflow++
		}
	}
	rq.commitMu.Unlock()
}

// isOvercommitted reports whether more than one commit is charged to
// the CPU.
func (s *Scheduler) isOvercommitted(cpu int) bool {
	compute, utility := s.rqs[cpu].readCommits()
	return compute+utility > 1
}
