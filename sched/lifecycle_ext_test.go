// File: sched/lifecycle_ext_test.go
// Author: momentics <momentics@gmail.com>
//
// Black-box partition lifecycle coverage over the fake host binding.

package sched_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/lwksched/api"
	"github.com/momentics/lwksched/cpuset"
	"github.com/momentics/lwksched/fake"
	"github.com/momentics/lwksched/idle"
	"github.com/momentics/lwksched/sched"
	"github.com/momentics/lwksched/topology"
)

func newCore(t *testing.T, nodes, cores int) (*sched.Scheduler, *fake.Host) {
	t.Helper()
	topo := topology.Uniform(nodes, cores, 1, 2)
	host := fake.NewHost()
	core := sched.New(host, topo, sched.WithSleeperFactory(func(cpu int) idle.Sleeper {
		return idle.NewHaltSleeper()
	}))
	host.Core = core
	return core, host
}

func TestPartitionLifecycle(t *testing.T) {
	core, _ := newCore(t, 1, 4)
	lwk := cpuset.Of(2, 3)

	core.Activate(lwk)
	assert.True(t, core.RQ(2).IsLWK())
	assert.True(t, core.RQ(3).IsLWK())
	assert.Equal(t, lwk, core.LWKCPUs())

	proc := core.NewProcess(500, lwk, []int{2, 3}, cpuset.Of(0))
	leader := sched.NewTask(500, 500, "app")
	core.SetCPUsAllowed(leader, lwk)
	proc.Start(leader)

	// Each LWK CPU has a live idle task wedged at the lowest slot.
	for _, cpu := range []int{2, 3} {
		rq := core.RQ(cpu)
		assert.Equal(t, 500, rq.Owner())
		picked := core.PickNextTask(rq, nil)
		require.NotNil(t, picked)
		assert.Equal(t, api.ThreadIdle, picked.LWK.Type)
	}

	proc.Exit()
	assert.Zero(t, core.RQ(2).Owner())

	core.Deactivate(lwk)
	assert.False(t, core.RQ(2).IsLWK())
	assert.Nil(t, core.PickNextTask(core.RQ(2), nil),
		"no candidate once the idle task is reclaimed")
	core.Exit()
}

func TestForkFullProcessReturnsToHost(t *testing.T) {
	core, host := newCore(t, 1, 4)
	lwk := cpuset.Of(2, 3)
	core.Activate(lwk)

	proc := core.NewProcess(500, lwk, []int{2, 3}, cpuset.Set{})
	leader := sched.NewTask(500, 500, "app")
	original := cpuset.Of(0, 1, 2, 3)
	core.SetCPUsAllowed(leader, original)
	proc.Start(leader)
	core.SetCPUsAllowed(leader, lwk)

	child := sched.NewTask(600, 600, "app")
	core.TaskFork(leader, child, false)

	assert.Nil(t, child.Proc)
	assert.Equal(t, sched.ClassFair, child.Class)
	assert.Equal(t, original, child.Allowed, "pre-LWK affinity restored")
	require.Equal(t, 1, host.MovedCount())
	assert.Equal(t, -10, host.NiceOf[600], "default transfer nice")
}

func TestForkConsumesHintsExactlyOnce(t *testing.T) {
	core, _ := newCore(t, 1, 4)
	lwk := cpuset.Of(0, 1, 2, 3)
	core.Activate(lwk)

	proc := core.NewProcess(500, lwk, []int{0, 1, 2, 3}, cpuset.Set{})
	leader := sched.NewTask(500, 500, "app")
	core.SetCPUsAllowed(leader, lwk)
	proc.Start(leader)

	attr := &api.CloneAttr{Size: api.CloneAttrSize, Flags: api.AttrUtil}
	require.NoError(t, core.SetCloneAttr(leader, attr, 0, 0, nil, 0))

	first := sched.NewTask(501, 500, "app")
	core.SetCPUsAllowed(first, lwk)
	core.TaskFork(leader, first, true)
	assert.Equal(t, api.ThreadUtility, first.LWK.Type, "hints applied")

	second := sched.NewTask(502, 500, "app")
	core.SetCPUsAllowed(second, lwk)
	core.TaskFork(leader, second, true)
	assert.Equal(t, api.ThreadNormal, second.LWK.Type,
		"staged hints were consumed by the first fork")
}

func TestNumUtilThreadsHeuristic(t *testing.T) {
	core, _ := newCore(t, 1, 4)
	lwk := cpuset.Of(0, 1, 2, 3)
	core.Activate(lwk)

	proc := core.NewProcess(500, lwk, []int{0, 1, 2, 3}, cpuset.Set{})
	require.NoError(t, proc.SetOption("lwksched-num-util-threads", "1"))
	leader := sched.NewTask(500, 500, "app")
	core.SetCPUsAllowed(leader, lwk)
	proc.Start(leader)

	// First clone is heuristically a utility thread, no hints needed.
	first := sched.NewTask(501, 500, "app")
	core.SetCPUsAllowed(first, lwk)
	core.TaskFork(leader, first, true)
	assert.Equal(t, api.ThreadUtility, first.LWK.Type)

	second := sched.NewTask(502, 500, "app")
	core.SetCPUsAllowed(second, lwk)
	core.TaskFork(leader, second, true)
	assert.Equal(t, api.ThreadNormal, second.LWK.Type)
	assert.Equal(t, 2, proc.ThreadsCreated())
}

func TestDeactivateGivesIdleBack(t *testing.T) {
	core, _ := newCore(t, 1, 2)
	lwk := cpuset.Of(0)
	core.Activate(lwk)

	proc := core.NewProcess(500, lwk, []int{0}, cpuset.Set{})
	leader := sched.NewTask(500, 500, "app")
	core.SetCPUsAllowed(leader, lwk)
	proc.Start(leader)

	rq := core.RQ(0)
	idleTask := core.PickNextTask(rq, nil)
	require.NotNil(t, idleTask)
	require.Equal(t, api.ThreadIdle, idleTask.LWK.Type)

	core.Deactivate(lwk)
	assert.Equal(t, api.ThreadGuest, idleTask.LWK.Type,
		"idle task demotes itself so it can be terminated normally")
}
