// File: sched/placement_test.go
// Author: momentics <momentics@gmail.com>
//
// Placement engine coverage: the compute candidate walk, the
// relaxation ladder, utility placement on LWK and host CPUs, grouped
// anchors and exclusive reservations.

package sched

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/lwksched/api"
	"github.com/momentics/lwksched/cpuset"
	"github.com/momentics/lwksched/topology"
)

func TestRelaxLadder(t *testing.T) {
	assert.Equal(t, api.MatchSameL2, relaxMatch(api.MatchSameL1))
	assert.Equal(t, api.MatchSameL3, relaxMatch(api.MatchSameL2))
	assert.Equal(t, api.MatchSameDomain, relaxMatch(api.MatchSameL3))
	assert.Equal(t, api.MatchFirstAvail, relaxMatch(api.MatchSameDomain))
	assert.Equal(t, api.MatchOtherL3, relaxMatch(api.MatchOtherDomain))
	assert.Equal(t, api.MatchOtherL2, relaxMatch(api.MatchOtherL3))
	assert.Equal(t, api.MatchOtherL1, relaxMatch(api.MatchOtherL2))
	assert.Equal(t, api.MatchFirstAvail, relaxMatch(api.MatchOtherL1))
}

func TestLocationMatch(t *testing.T) {
	topo := topology.Topology{NUMAID: 1, CoreID: 4, L1CID: 4, L2CID: 4, L3CID: 0}
	assert.True(t, locationMatch(api.MatchFirstAvail, -1, topo, 0))
	assert.True(t, locationMatch(api.MatchSameDomain, 1, topo, 0))
	assert.False(t, locationMatch(api.MatchSameDomain, 0, topo, 0))
	assert.True(t, locationMatch(api.MatchOtherL2, 8, topo, 0))
	assert.False(t, locationMatch(api.MatchOtherL2, 4, topo, 0))
	assert.True(t, locationMatch(api.MatchInNodeSet, 0, topo, api.NodeSet(0).Set(1)))
	assert.False(t, locationMatch(api.MatchInNodeSet, 0, topo, api.NodeSet(0).Set(0)))
}

// Four compute threads on a fresh partition land one per CPU in
// sequence order.
func TestComputePlacementOnePerCPU(t *testing.T) {
	s, _ := newTestScheduler(2, 8, 1, 2)
	lwk := cpuset.Of(8, 9, 10, 11)
	_, leader := newLWKProcess(s, 1000, lwk, []int{8, 9, 10, 11}, cpuset.Set{})

	homes := make(map[int]bool)
	for i := 0; i < 4; i++ {
		child := forkThread(s, leader, 1001+i)
		require.GreaterOrEqual(t, child.LWK.CPUHome, 8)
		homes[child.LWK.CPUHome] = true
	}
	assert.Len(t, homes, 4, "one thread per CPU")
	lwk.ForEach(func(cpu int) {
		compute, utility := s.RQ(cpu).readCommits()
		assert.Equal(t, 1, compute, "cpu %d", cpu)
		assert.Zero(t, utility, "cpu %d", cpu)
	})
}

// A fifth thread overcommits the least-committed CPU, ties broken by
// sequence order.
func TestComputePlacementOvercommitTieBreak(t *testing.T) {
	s, _ := newTestScheduler(2, 8, 1, 2)
	lwk := cpuset.Of(8, 9, 10, 11)
	_, leader := newLWKProcess(s, 1000, lwk, []int{8, 9, 10, 11}, cpuset.Set{})

	for i := 0; i < 4; i++ {
		forkThread(s, leader, 1001+i)
	}
	fifth := forkThread(s, leader, 1005)
	assert.Equal(t, 8, fifth.LWK.CPUHome)
	compute, _ := s.RQ(8).readCommits()
	assert.Equal(t, 2, compute)
}

// Compute placement prefers sharing with a utility thread over sharing
// with another compute thread.
func TestComputePrefersUtilitySharing(t *testing.T) {
	s, _ := newTestScheduler(1, 2, 1, 1)
	lwk := cpuset.Of(0, 1)
	_, leader := newLWKProcess(s, 1000, lwk, []int{0, 1}, cpuset.Set{})
	launchOn(s, leader, 0)

	compute := NewTask(1001, 1000, "c")
	compute.Proc = leader.Proc
	s.commitCPU(compute, 0)

	util := NewTask(1002, 1000, "u")
	util.Proc = leader.Proc
	util.LWK.Type = api.ThreadUtility
	s.commitCPU(util, 1)

	child := NewTask(1003, 1000, "n")
	child.Proc = leader.Proc
	s.SetCPUsAllowed(child, lwk)
	assert.Equal(t, 1, s.SelectCPUCandidate(child, CommitMax),
		"cpu 1 has only a utility commit")
}

// SAME_L2 placement: CPUs 0/1 share an L2, 2/3 share another; a
// utility thread anchored at CPU 0 must land on CPU 1.
func TestUtilityPlacementSameL2(t *testing.T) {
	s, _ := newTestScheduler(1, 4, 1, 2)
	lwk := cpuset.Of(0, 1, 2, 3)
	proc, leader := newLWKProcess(s, 1000, lwk, []int{0, 1, 2, 3}, cpuset.Set{})
	launchOn(s, leader, 0)
	proc.NumUtilThreads = 0

	var result api.CloneResult
	attr := &api.CloneAttr{
		Size:      api.CloneAttrSize,
		Flags:     api.AttrUtil,
		Placement: api.AttrSameL2Cache,
	}
	require.NoError(t, s.SetCloneAttr(leader, attr, 0, 0, &result, 0))

	child := forkThread(s, leader, 1001)
	assert.Equal(t, 1, child.LWK.CPUHome)
	assert.Equal(t, api.ThreadUtility, child.LWK.Type)
	_, utility := s.RQ(1).readCommits()
	assert.Equal(t, 1, utility)
	assert.Equal(t, api.CloneResultAccepted, result.Placement)
	assert.Equal(t, cpuset.Of(1), child.Allowed)
}

// An unsatisfiable DIFF_DOMAIN request relaxes down the ladder: the
// thread is still placed but the placement result is rejected.
func TestUtilityPlacementRelaxationRejects(t *testing.T) {
	s, _ := newTestScheduler(1, 2, 1, 1)
	lwk := cpuset.Of(0, 1)
	_, leader := newLWKProcess(s, 1000, lwk, []int{0, 1}, cpuset.Set{})
	launchOn(s, leader, 0)

	var result api.CloneResult
	attr := &api.CloneAttr{
		Size:      api.CloneAttrSize,
		Flags:     api.AttrUtil,
		Placement: api.AttrDiffDomain, // single-node machine: impossible
	}
	require.NoError(t, s.SetCloneAttr(leader, attr, 0, 0, &result, 0))

	child := forkThread(s, leader, 1001)
	assert.GreaterOrEqual(t, child.LWK.CPUHome, 0, "still placed somewhere")
	assert.Equal(t, api.CloneResultRejected, result.Placement)
	assert.Zero(t, child.LWK.ActiveHints.Location)
}

// Exclusive placement reserves the CPU by CAS; a second exclusive
// thread of the same process must pick a different CPU.
func TestExclusiveReservation(t *testing.T) {
	s, _ := newTestScheduler(1, 4, 1, 2)
	lwk := cpuset.Of(0, 1, 2, 3)
	_, leader := newLWKProcess(s, 1000, lwk, []int{0, 1, 2, 3}, cpuset.Set{})
	launchOn(s, leader, 0)

	attr := &api.CloneAttr{
		Size:     api.CloneAttrSize,
		Flags:    api.AttrUtil,
		Behavior: api.AttrExcl,
	}
	require.NoError(t, s.SetCloneAttr(leader, attr, 0, 0, nil, 0))
	first := forkThread(s, leader, 1001)
	require.GreaterOrEqual(t, first.LWK.CPUHome, 0)
	assert.Equal(t, int64(first.PID), s.RQ(first.LWK.CPUHome).exclusivePID.Load())

	require.NoError(t, s.SetCloneAttr(leader, attr, 0, 0, nil, 0))
	second := forkThread(s, leader, 1002)
	require.GreaterOrEqual(t, second.LWK.CPUHome, 0)
	assert.NotEqual(t, first.LWK.CPUHome, second.LWK.CPUHome)
}

// A grouped utility thread reuses the remembered anchor; concurrent
// first uses of the same key create exactly one entry.
func TestUtilityGroupConcurrentCreation(t *testing.T) {
	s, _ := newTestScheduler(1, 4, 1, 2)
	lwk := cpuset.Of(0, 1, 2, 3)
	_, leader := newLWKProcess(s, 1000, lwk, []int{0, 1, 2, 3}, cpuset.Set{})
	launchOn(s, leader, 0)

	second := NewTask(2000, 1000, "app")
	second.Proc = leader.Proc
	s.SetCPUsAllowed(second, lwk)
	s.commitCPU(second, 1)
	second.CPU = 1

	const key = 0xfeed
	attr := &api.CloneAttr{Size: api.CloneAttrSize, Flags: api.AttrUtil}
	require.NoError(t, s.SetCloneAttr(leader, attr, 0, 0, nil, key))
	require.NoError(t, s.SetCloneAttr(second, attr, 0, 0, nil, key))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		forkThread(s, leader, 3001)
	}()
	go func() {
		defer wg.Done()
		forkThread(s, second, 3002)
	}()
	wg.Wait()

	live := s.utilGrp.snapshot()
	require.Len(t, live, 1, "exactly one registry entry")
	assert.Equal(t, uint64(key), live[0].key)
	assert.Equal(t, 2, live[0].refcount)
}

// ThreadExit drops the group reference and frees the slot at zero.
func TestUtilityGroupReleaseOnExit(t *testing.T) {
	s, _ := newTestScheduler(1, 4, 1, 2)
	lwk := cpuset.Of(0, 1, 2, 3)
	proc, leader := newLWKProcess(s, 1000, lwk, []int{0, 1, 2, 3}, cpuset.Set{})
	launchOn(s, leader, 0)

	attr := &api.CloneAttr{Size: api.CloneAttrSize, Flags: api.AttrUtil}
	require.NoError(t, s.SetCloneAttr(leader, attr, 0, 0, nil, 0xbeef))
	child := forkThread(s, leader, 1001)
	require.Len(t, s.utilGrp.snapshot(), 1)

	proc.ThreadExit(child)
	assert.Empty(t, s.utilGrp.snapshot())
	assert.Equal(t, -1, child.LWK.CPUHome)
}

// OneCPUPerUtil host placement picks a single CPU at the lowest
// utility-commit level.
func TestHostUtilityOneCPUMode(t *testing.T) {
	s, _ := newTestScheduler(1, 4, 1, 2)
	lwk := cpuset.Of(0, 1)
	util := cpuset.Of(2, 3)
	proc, leader := newLWKProcess(s, 1000, lwk, []int{0, 1}, util)
	launchOn(s, leader, 0)
	proc.AllowedCPUsPerUtil = api.OneCPUPerUtil

	// Pre-commit a utility thread on CPU 2 so level 0 is on CPU 3.
	busy := NewTask(900, 1000, "u")
	busy.Proc = proc
	busy.LWK.Type = api.ThreadUtility
	s.commitCPU(busy, 2)

	first, mask := s.selectHostUtilityCPUs(leader, api.MatchFirstAvail, 0, 0, false)
	assert.Equal(t, 3, first)
	assert.Equal(t, 1, mask.Weight(), "single-CPU affinity in this mode")
}

// Multiple mode collects all matching CPUs and tightens subsequent
// matches to the first selection's attribute.
func TestHostUtilityMultipleModeTightens(t *testing.T) {
	s, _ := newTestScheduler(2, 2, 1, 1)
	// Node 0: cpus 0,1. Node 1: cpus 2,3.
	lwk := cpuset.Of(0)
	util := cpuset.Of(1, 2, 3)
	_, leader := newLWKProcess(s, 1000, lwk, []int{0}, util)
	launchOn(s, leader, 0)

	// Other-domain relative to node 0 selects cpu 2 first, then
	// tightens to same-domain-as-cpu-2, keeping cpu 3 and excluding
	// cpu 1.
	first, mask := s.selectHostUtilityCPUs(leader, api.MatchOtherDomain, 0, 0, false)
	assert.Equal(t, 2, first)
	assert.Equal(t, cpuset.Of(2, 3), mask)
}

// Pushing utility threads frees an LWK CPU for a compute thread.
func TestPushUtilityThreadsFreesCPU(t *testing.T) {
	s, host := newTestScheduler(1, 4, 1, 2)
	lwk := cpuset.Of(0, 1)
	util := cpuset.Of(2, 3)
	_, leader := newLWKProcess(s, 1000, lwk, []int{0, 1}, util)
	launchOn(s, leader, 0)

	// Two moveable utility threads fill the partition.
	attr := &api.CloneAttr{Size: api.CloneAttrSize, Flags: api.AttrUtil}
	require.NoError(t, s.SetCloneAttr(leader, attr, 0, 0, nil, 0))
	u1 := forkThread(s, leader, 1001)
	require.NoError(t, s.SetCloneAttr(leader, attr, 0, 0, nil, 0))
	u2 := forkThread(s, leader, 1002)
	require.GreaterOrEqual(t, u1.LWK.CPUHome, 0)
	require.GreaterOrEqual(t, u2.LWK.CPUHome, 0)
	require.True(t, u1.LWK.onUtilList)
	require.True(t, u2.LWK.onUtilList)
	fromCPU := u2.LWK.CPUHome

	// A compute thread arrives; at least one utility thread must be
	// pushed to a host CPU.
	compute := forkThread(s, leader, 1003)
	require.GreaterOrEqual(t, compute.LWK.CPUHome, 0)
	assert.True(t, lwk.Has(compute.LWK.CPUHome))
	compute1, _ := s.RQ(compute.LWK.CPUHome).readCommits()
	assert.Equal(t, 1, compute1)

	assert.GreaterOrEqual(t, host.movedCount(), 1, "a utility thread moved to the host")
	pushed := s.RQ(fromCPU).StatsSnapshot().Pushed
	assert.Equal(t, uint64(1), pushed, "originating cpu counts the push")
	assert.True(t, util.Has(u2.LWK.CPUHome), "pushed thread now lives on a host cpu")
}

// The main thread returns to the first CPU of the sequence when it is
// allowed and uncommitted.
func TestMainThreadHome(t *testing.T) {
	s, _ := newTestScheduler(1, 4, 1, 2)
	lwk := cpuset.Of(0, 1, 2, 3)
	_, leader := newLWKProcess(s, 1000, lwk, []int{2, 3, 0, 1}, cpuset.Set{})

	assert.Equal(t, 2, s.selectMainThreadHome(leader))

	// A compute commit on the first sequence CPU disables the
	// optimisation.
	other := NewTask(1001, 1000, "t")
	other.Proc = leader.Proc
	s.commitCPU(other, 2)
	assert.Equal(t, -1, s.selectMainThreadHome(leader))

	// Non-initial threads never qualify.
	child := NewTask(1002, 1000, "t")
	child.Proc = leader.Proc
	s.SetCPUsAllowed(child, lwk)
	assert.Equal(t, -1, s.selectMainThreadHome(child))
}
