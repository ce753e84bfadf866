// File: sched/runqueue.go
// Author: momentics <momentics@gmail.com>
//
// Per-CPU priority-array run queue with an O(1) first-runnable lookup
// over a slot bitmap. The host acquires the queue lock before calling
// any hook that touches it.

package sched

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/momentics/lwksched/api"
	"github.com/momentics/lwksched/idle"
	"github.com/momentics/lwksched/topology"
)

const bitmapWords = (numSlots + 63) / 64

// prioArray is the slot array plus its non-empty bitmap. An empty bit
// with a non-empty slot (or the reverse) is queue corruption and is
// fatal.
type prioArray struct {
	queue  [numSlots]taskList
	bitmap [bitmapWords]uint64
}

func (a *prioArray) setBit(i int)   { a.bitmap[i/64] |= 1 << uint(i%64) }
func (a *prioArray) clearBit(i int) { a.bitmap[i/64] &^= 1 << uint(i%64) }

// findFirst returns the lowest set slot index, or -1.
func (a *prioArray) findFirst() int {
	for w, word := range a.bitmap {
		if word != 0 {
			return w*64 + bits.TrailingZeros64(word)
		}
	}
	return -1
}

// RunQueue is the per-CPU LWK run queue.
type RunQueue struct {
	cpu  int
	topo topology.Topology

	mu sync.Mutex

	lwk atomic.Bool

	active      prioArray
	nrRunning   int // excludes the idle entity
	rrNrRunning int

	// curr is the task the host currently runs on this CPU.
	curr        *Task
	needResched atomic.Bool

	idle     *Task
	idlePID  int
	idleDone chan struct{}
	sleeper  idle.Sleeper

	commitMu       sync.Mutex
	computeCommits atomic.Int32
	utilityCommits atomic.Int32
	exclusivePID   atomic.Int64
	owner          atomic.Int64

	shallowSleep uint32
	deepSleep    uint32

	stats Stats

	sched *Scheduler
}

// Lock acquires the run-queue lock. Part of the host contract: taken
// before any enqueue/dequeue/pick hook.
func (rq *RunQueue) Lock() { rq.mu.Lock() }

// Unlock releases the run-queue lock.
func (rq *RunQueue) Unlock() { rq.mu.Unlock() }

// CPU returns the CPU id this queue belongs to.
func (rq *RunQueue) CPU() int { return rq.cpu }

// IsLWK reports whether the CPU is currently ceded to the LWK side.
func (rq *RunQueue) IsLWK() bool { return rq.lwk.Load() }

// Topology returns the CPU's immutable topology facts.
func (rq *RunQueue) Topology() topology.Topology { return rq.topo }

// Owner returns the tgid of the owning LWK process, or 0.
func (rq *RunQueue) Owner() int { return int(rq.owner.Load()) }

// Curr returns the host-maintained current task.
func (rq *RunQueue) Curr() *Task { return rq.curr }

// SetCurr records the task the host switched to. Host contract: called
// under the run-queue lock.
func (rq *RunQueue) SetCurr(t *Task) { rq.curr = t }

// NrRunning returns the number of queued entities excluding the idle
// entity.
func (rq *RunQueue) NrRunning() int { return rq.nrRunning }

// NeedResched reports a pending reschedule request for this CPU.
func (rq *RunQueue) NeedResched() bool { return rq.needResched.Load() }

// ClearNeedResched is called by the host once it re-enters pick.
func (rq *RunQueue) ClearNeedResched() { rq.needResched.Store(false) }

// StatsSnapshot copies the statistics block. Commit maxima are guarded
// by the commit lock, queue maxima by the queue lock; a snapshot is
// advisory and takes only the commit lock.
func (rq *RunQueue) StatsSnapshot() Stats {
	rq.commitMu.Lock()
	s := rq.stats
	rq.commitMu.Unlock()
	return s
}

// rqIndex converts an internal priority into a queue slot index.
func rqIndex(prio int) int {
	switch {
	case prio >= 0 && prio < maxRTPrio:
		return prio
	case prio < 0:
		// deadline-class guests
		return dlIndex
	case prio >= fairBase && prio < fairMax:
		return fairIndex
	case prio == PrioIdle:
		return idleIndex
	default:
		warnOnce("rqindex", "lwk-sched: unexpected priority", prio)
		return idleIndex
	}
}

// enqueueTask places the entity at the head or tail of its slot.
// Caller holds the run-queue lock.
func (rq *RunQueue) enqueueTask(t *Task, head bool) {
	e := &t.LWK
	if e.onRQ() {
		warnOnce("enqueue", "lwk-sched: double enqueue of pid", t.PID)
		return
	}
	qindex := rqIndex(t.Prio)
	if head {
		rq.active.queue[qindex].addHead(t)
	} else {
		rq.active.queue[qindex].addTail(t)
	}
	e.slot = qindex
	rq.active.setBit(qindex)

	if e.Type != api.ThreadIdle {
		rq.nrRunning++
		if rq.nrRunning > rq.stats.MaxRunning {
			rq.stats.MaxRunning = rq.nrRunning
		}
		if t.Policy == api.PolicyRR {
			rq.rrNrRunning++
		}
	}
}

// dequeueTask removes the entity; a no-op for the idle entity, which
// is never dequeued. Caller holds the run-queue lock.
func (rq *RunQueue) dequeueTask(t *Task) {
	e := &t.LWK
	if e.Type == api.ThreadIdle {
		return
	}
	if !e.onRQ() {
		return
	}
	rq.updateCurr()

	qindex := e.slot
	rq.active.queue[qindex].remove(t)
	e.slot = -1
	if rq.active.queue[qindex].empty() {
		rq.active.clearBit(qindex)
	}
	rq.nrRunning--
	if t.Policy == api.PolicyRR {
		rq.rrNrRunning--
	}
}

// dequeueIdle removes the idle entity during partition teardown. The
// idle entity was never counted in nrRunning, so the regular dequeue
// path does not apply.
func (rq *RunQueue) dequeueIdle(t *Task) {
	e := &t.LWK
	if !e.onRQ() {
		return
	}
	qindex := e.slot
	rq.active.queue[qindex].remove(t)
	e.slot = -1
	if rq.active.queue[qindex].empty() {
		rq.active.clearBit(qindex)
	}
}

// requeueTask rotates the entity within its current slot.
func (rq *RunQueue) requeueTask(t *Task, head bool) {
	e := &t.LWK
	if !e.onRQ() {
		return
	}
	l := &rq.active.queue[e.slot]
	l.remove(t)
	if head {
		l.addHead(t)
	} else {
		l.addTail(t)
	}
}

// pickNext returns the first entity of the lowest non-empty slot, or
// nil so the host core scheduler continues its own selection.
func (rq *RunQueue) pickNext() *Task {
	idx := rq.active.findFirst()
	if idx < 0 {
		return nil
	}
	t := rq.active.queue[idx].first()
	if t == nil {
		// Bitmap and slots disagree: the queue structure is corrupt
		// and nothing sane can be scheduled from it.
		panic("lwk-sched: run queue bitmap set for empty slot")
	}
	return t
}

// singularAtPrio reports whether t is alone in its slot.
func (rq *RunQueue) singularAtPrio(t *Task) bool {
	e := &t.LWK
	if !e.onRQ() {
		return true
	}
	return rq.active.queue[e.slot].singular()
}
