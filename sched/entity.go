// File: sched/entity.go
// Author: momentics <momentics@gmail.com>
//
// Per-task LWK scheduling entity and the intrusive run-list linkage.
// Entities live inside Task values with stable addresses, so enqueue
// and dequeue never allocate.

package sched

import "github.com/momentics/lwksched/api"

// Entity is attached to every task the LWK scheduler may touch.
type Entity struct {
	// run-list linkage; slot is -1 while off every queue.
	runNext, runPrev *Task
	slot             int

	// CPUHome is the CPU this task's commit is accounted against,
	// or -1.
	CPUHome int

	Type        api.ThreadType
	Assimilated bool

	// Snapshot for give-back of assimilated host tasks.
	origClass  Class
	origPolicy api.SchedPolicy

	TimeSlice     int
	OrigTimeSlice int

	// CloneHints is the staged record consumed exactly once by fork;
	// ActiveHints is what placement actually accepted.
	CloneHints  CloneHints
	ActiveHints CloneHints

	// moveable-utility list linkage.
	utilNext, utilPrev *Task
	onUtilList         bool

	MoveSyscallsDisable bool
}

func (e *Entity) onRQ() bool { return e.slot >= 0 }

// taskList is an intrusive doubly-linked list over Entity run linkage.
type taskList struct {
	head, tail *Task
}

func (l *taskList) empty() bool { return l.head == nil }

// singular reports whether the list holds exactly one task.
func (l *taskList) singular() bool { return l.head != nil && l.head == l.tail }

func (l *taskList) addHead(t *Task) {
	t.LWK.runPrev = nil
	t.LWK.runNext = l.head
	if l.head != nil {
		l.head.LWK.runPrev = t
	} else {
		l.tail = t
	}
	l.head = t
}

func (l *taskList) addTail(t *Task) {
	t.LWK.runNext = nil
	t.LWK.runPrev = l.tail
	if l.tail != nil {
		l.tail.LWK.runNext = t
	} else {
		l.head = t
	}
	l.tail = t
}

func (l *taskList) remove(t *Task) {
	if t.LWK.runPrev != nil {
		t.LWK.runPrev.LWK.runNext = t.LWK.runNext
	} else {
		l.head = t.LWK.runNext
	}
	if t.LWK.runNext != nil {
		t.LWK.runNext.LWK.runPrev = t.LWK.runPrev
	} else {
		l.tail = t.LWK.runPrev
	}
	t.LWK.runNext, t.LWK.runPrev = nil, nil
}

func (l *taskList) first() *Task { return l.head }
