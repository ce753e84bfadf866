// File: sched/consts.go
// Author: momentics <momentics@gmail.com>
//
// Priority space and tuning constants. Internal priorities grow
// downward in urgency: the real-time band occupies [0,99), fair
// priorities occupy [100,140) (nice -20..+19 maps to 100..139), and
// the LWK idle priority sits above both.

package sched

import "math"

const (
	maxRTPrio = 99
	fairBase  = 100
	fairMax   = 140

	// PrioIdle is the priority reserved for the per-CPU LWK idle task.
	PrioIdle = fairMax

	// LWK bands inside the real-time range.
	PrioHigh    = 10
	PrioDefault = 50
	PrioLow     = 90

	// DefaultUserRTPrio is the user-visible real-time priority
	// surfaced for assimilated LWK threads.
	DefaultUserRTPrio = maxRTPrio - PrioDefault

	prioDefaultFair = fairBase + 20 // nice 0
)

// Queue slot layout: one slot per real-time level, then deadline
// guests, fair guests and the LWK idle.
const (
	dlIndex   = maxRTPrio
	fairIndex = dlIndex + 1
	idleIndex = fairIndex + 1
	numSlots  = idleIndex + 1
)

const (
	// TickHz is the host scheduler tick frequency assumed for
	// timeslice arithmetic.
	TickHz = 100

	// defaultTimeslice is 100 msecs expressed in ticks, used when an
	// LWK task has been enabled for timeslicing.
	defaultTimeslice = 100 * TickHz / 1000

	// CommitMax is the saturation bound of a commit counter and the
	// "no limit" value for commit-level searches.
	CommitMax = math.MaxInt32

	// utilGroupLimit caps the number of active utility thread groups.
	utilGroupLimit = 4

	// utilPlacementRetries bounds the utility placement loop.
	utilPlacementRetries = 100
)

// NiceToPrio converts a nice value to an internal fair priority.
func NiceToPrio(nice int) int { return fairBase + 20 + nice }

// PrioToNice converts an internal fair priority to a nice value.
func PrioToNice(prio int) int { return prio - fairBase - 20 }
