// File: sched/stats.go
// Author: momentics <momentics@gmail.com>
//
// Per-CPU scheduling statistics. Maxima are recorded under the lock
// that already guards the mutated counter, so nothing here touches the
// pick path.

package sched

// Stats is the per-CPU statistics block.
type Stats struct {
	PID             int
	MaxComputeLevel int
	MaxUtilLevel    int
	MaxRunning      int
	GuestDispatch   uint64
	TimerPop        uint64
	SyscMigr        uint64
	Setaffinity     uint64
	Pushed          uint64
	Guests          uint64
	Givebacks       uint64
	CommitUnderflow uint64
	CommitOverflow  uint64
}

// prepareLaunch clears the per-process statistics while preserving the
// partition-lifetime guest counters.
func (s *Stats) prepareLaunch() {
	guests, givebacks := s.Guests, s.Givebacks
	*s = Stats{Guests: guests, Givebacks: givebacks}
}

// merge folds one CPU's statistics into a process-wide summary.
func (s *Stats) merge(o *Stats) {
	if o.MaxComputeLevel > s.MaxComputeLevel {
		s.MaxComputeLevel = o.MaxComputeLevel
	}
	if o.MaxUtilLevel > s.MaxUtilLevel {
		s.MaxUtilLevel = o.MaxUtilLevel
	}
	if o.MaxRunning > s.MaxRunning {
		s.MaxRunning = o.MaxRunning
	}
	s.GuestDispatch += o.GuestDispatch
	s.TimerPop += o.TimerPop
	s.SyscMigr += o.SyscMigr
	s.Setaffinity += o.Setaffinity
	s.Pushed += o.Pushed
	s.CommitUnderflow += o.CommitUnderflow
	s.CommitOverflow += o.CommitOverflow
}
