// File: sched/task.go
// Author: momentics <momentics@gmail.com>
//
// Host task control block slice seen by the LWK core, and the tagged
// scheduling-class ownership used by assimilation and give-back.

package sched

import (
	"github.com/momentics/lwksched/api"
	"github.com/momentics/lwksched/cpuset"
)

// Class identifies which scheduler currently owns a task. Transitions
// are guarded by the task's run-queue lock.
type Class int

const (
	ClassFair Class = iota
	ClassRT
	ClassDeadline
	ClassStop
	ClassHostIdle
	ClassLWK
)

func (c Class) String() string {
	switch c {
	case ClassFair:
		return "fair"
	case ClassRT:
		return "rt"
	case ClassDeadline:
		return "deadline"
	case ClassStop:
		return "stop"
	case ClassHostIdle:
		return "host-idle"
	case ClassLWK:
		return "lwk"
	default:
		return "unknown"
	}
}

// Task is the slice of the host task control block the core reads and
// writes. The host owns creation, destruction and context switching.
type Task struct {
	PID  int
	TGID int
	Comm string

	Policy     api.SchedPolicy
	Prio       int
	NormalPrio int
	RTPriority int
	StaticPrio int

	// Fair-class load weights, written on give-back by the host
	// binding.
	LoadWeight uint64
	InvWeight  uint32

	Allowed       cpuset.Set
	NrCPUsAllowed int

	// SavedMask keeps the affinity a task returns to after running a
	// syscall on a host CPU.
	SavedMask cpuset.Set

	// CPU is the host-maintained current CPU of the task.
	CPU int

	Class Class

	// Proc is non-nil for members of an LWK process.
	Proc *Process

	// Execution accounting, nanoseconds on the host task clock.
	ExecStart      int64
	SumExecRuntime int64
	ExecMax        int64

	LWK Entity
}

// NewTask returns a task control block in the host fair class, with no
// LWK placement yet.
func NewTask(pid, tgid int, comm string) *Task {
	t := &Task{
		PID:        pid,
		TGID:       tgid,
		Comm:       comm,
		Policy:     api.PolicyNormal,
		Prio:       prioDefaultFair,
		NormalPrio: prioDefaultFair,
		StaticPrio: prioDefaultFair,
		Class:      ClassFair,
		CPU:        -1,
	}
	t.LWK.slot = -1
	t.LWK.CPUHome = -1
	return t
}

// IsLWK reports whether the LWK scheduler currently owns the task.
func (t *Task) IsLWK() bool { return t.Class == ClassLWK }
