// File: sched/process_test.go
// Author: momentics <momentics@gmail.com>

package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/lwksched/cpuset"
)

func TestProcessStartResetsPartition(t *testing.T) {
	s, _ := newTestScheduler(1, 4, 1, 2)
	lwk := cpuset.Of(0, 1)
	_, leader := newLWKProcess(s, 100, lwk, []int{0, 1}, cpuset.Set{})

	// Dirty the partition, then relaunch.
	stale := NewTask(101, 100, "t")
	stale.Proc = leader.Proc
	s.commitCPU(stale, 0)
	s.RQ(0).exclusivePID.Store(777)

	next := s.NewProcess(200, lwk, []int{0, 1}, cpuset.Set{})
	leader2 := NewTask(200, 200, "app2")
	s.SetCPUsAllowed(leader2, lwk)
	next.Start(leader2)

	compute, utility := s.RQ(0).readCommits()
	assert.Zero(t, compute)
	assert.Zero(t, utility)
	assert.Zero(t, s.RQ(0).exclusivePID.Load())
	assert.Equal(t, 200, s.RQ(0).Owner())
	assert.Equal(t, lwk, next.OriginalAllowed)
}

func TestProcessExitPublishesSummary(t *testing.T) {
	s, _ := newTestScheduler(1, 4, 1, 2)
	lwk := cpuset.Of(0, 1, 2, 3)
	proc, leader := newLWKProcess(s, 100, lwk, []int{0, 1, 2, 3}, cpuset.Set{})
	require.NoError(t, proc.SetOption("lwksched-stats", "2"))

	for i := 0; i < 5; i++ {
		forkThread(s, leader, 101+i)
	}
	proc.Exit()

	summary, ok := s.Metrics().Summary(100)
	require.True(t, ok, "exit publishes a summary")
	assert.Equal(t, 2, summary.MaxComputeLevel, "one cpu was double committed")
	assert.Equal(t, 6, summary.Threads)
	assert.Equal(t, 4, summary.CPUs)
	assert.Zero(t, s.RQ(0).Owner(), "owner cleared so idle drops to deep sleep")
}

func TestProcessExitWithoutStatsStaysQuiet(t *testing.T) {
	s, _ := newTestScheduler(1, 2, 1, 1)
	lwk := cpuset.Of(0)
	proc, _ := newLWKProcess(s, 100, lwk, []int{0}, cpuset.Set{})

	proc.Exit()
	assert.Zero(t, s.Metrics().Len())
}
