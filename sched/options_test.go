// File: sched/options_test.go
// Author: momentics <momentics@gmail.com>

package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/lwksched/api"
	"github.com/momentics/lwksched/cpuset"
)

func testProcess(t *testing.T) *Process {
	t.Helper()
	s, _ := newTestScheduler(1, 2, 1, 1)
	return s.NewProcess(100, cpuset.Of(0, 1), []int{0, 1}, cpuset.Set{})
}

func TestOptionDefaults(t *testing.T) {
	p := testProcess(t)
	assert.Equal(t, -1, p.MaxCPUsForUtil)
	assert.Equal(t, 1, p.MaxUtilThreadsPerCPU)
	assert.Equal(t, api.CommitOnlyUtility, p.Overcommit)
	assert.Equal(t, api.MultipleCPUsPerUtil, p.AllowedCPUsPerUtil)
	assert.Zero(t, p.EnableRR)
	assert.Zero(t, p.DisableSetaffinity)
}

func TestOptionEnableRR(t *testing.T) {
	p := testProcess(t)
	require.NoError(t, p.SetOption("lwksched-enable-rr", "250"))
	assert.Equal(t, 25, p.EnableRR)

	// Zero disables without error.
	p2 := testProcess(t)
	require.NoError(t, p2.SetOption("lwksched-enable-rr", "0"))
	assert.Zero(t, p2.EnableRR)

	// Below one tick is rejected.
	assert.ErrorIs(t, p.SetOption("lwksched-enable-rr", "5"), api.ErrInvalidArgument)
	assert.ErrorIs(t, p.SetOption("lwksched-enable-rr", "junk"), api.ErrInvalidArgument)
}

func TestOptionUtilThreshold(t *testing.T) {
	p := testProcess(t)
	require.NoError(t, p.SetOption("util-threshold", "4:2"))
	assert.Equal(t, 4, p.MaxCPUsForUtil)
	assert.Equal(t, 2, p.MaxUtilThreadsPerCPU)

	assert.ErrorIs(t, p.SetOption("util-threshold", "4"), api.ErrInvalidArgument)
	assert.ErrorIs(t, p.SetOption("util-threshold", "a:b"), api.ErrInvalidArgument)
}

func TestOptionOvercommitBehavior(t *testing.T) {
	p := testProcess(t)
	require.NoError(t, p.SetOption("overcommit-behavior", "1"))
	assert.Equal(t, api.CommitOnlyCompute, p.Overcommit)
	assert.ErrorIs(t, p.SetOption("overcommit-behavior", "9"), api.ErrInvalidArgument)
}

func TestOptionMisc(t *testing.T) {
	p := testProcess(t)
	require.NoError(t, p.SetOption("move-syscalls-disable", ""))
	assert.True(t, p.MoveSyscallsDisable)

	require.NoError(t, p.SetOption("one-cpu-per-util", ""))
	assert.Equal(t, api.OneCPUPerUtil, p.AllowedCPUsPerUtil)

	require.NoError(t, p.SetOption("lwksched-stats", "3"))
	assert.Equal(t, 3, p.SchedStats)
	assert.ErrorIs(t, p.SetOption("lwksched-stats", "-1"), api.ErrInvalidArgument)

	require.NoError(t, p.SetOption("lwksched-disable-setaffinity", "1"))
	assert.Equal(t, 2, p.DisableSetaffinity)
	assert.ErrorIs(t, p.SetOption("lwksched-disable-setaffinity", "-5"), api.ErrInvalidArgument)

	require.NoError(t, p.SetOption("lwksched-num-util-threads", "2"))
	assert.Equal(t, 2, p.NumUtilThreads)

	assert.ErrorIs(t, p.SetOption("no-such-option", "1"), api.ErrInvalidArgument)
}
