//go:build !linux
// +build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Fallback for platforms without thread affinity support.

package affinity

import (
	"fmt"
	"runtime"

	"github.com/momentics/lwksched/cpuset"
)

// applyPlatform reports lack of support.
func applyPlatform(_ cpuset.Set) error {
	return fmt.Errorf("affinity: not supported on %s", runtime.GOOS)
}
