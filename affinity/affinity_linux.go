//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux implementation over sched_setaffinity for the calling thread.

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/lwksched/cpuset"
)

// applyPlatform sets the calling thread's affinity to the given CPUs.
func applyPlatform(set cpuset.Set) error {
	var mask unix.CPUSet
	mask.Zero()
	n := 0
	set.ForEach(func(cpu int) {
		mask.Set(cpu)
		n++
	})
	if n == 0 {
		return fmt.Errorf("affinity: empty cpu set")
	}
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return fmt.Errorf("affinity: sched_setaffinity: %w", err)
	}
	return nil
}
