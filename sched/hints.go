// File: sched/hints.go
// Author: momentics <momentics@gmail.com>
//
// Clone hints: the per-caller staging record describing the next
// thread creation's placement and behavior. Set by SetCloneAttr,
// consumed exactly once by the fork hook.

package sched

import "github.com/momentics/lwksched/api"

// CloneHints is the staged (or accepted) clone-attribute record.
type CloneHints struct {
	Flags    uint32
	Behavior uint32
	Location uint32
	Nodes    api.NodeSet
	Key      uint64

	// Result, when non-nil, receives the placement/behavior verdict.
	Result *api.CloneResult
}

// clearCloneHints wipes the staged hints on both parent and child
// after a fork consumed them.
func clearCloneHints(parent, child *Task) {
	parent.LWK.CloneHints = CloneHints{}
	child.LWK.CloneHints = CloneHints{}
}

// acceptableBehavior reports whether the behavior word is within the
// accepted set.
func acceptableBehavior(b uint32) bool {
	if b == 0 {
		return true
	}
	return b&^(api.AttrExcl|api.AttrHighPrio|api.AttrLowPrio|api.AttrNonCoop) == 0
}
