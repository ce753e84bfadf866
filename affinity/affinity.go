// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for applying a task's allowed-CPU set to the
// calling OS thread. Platform-specific implementations are located in
// separate files guarded by build tags.

package affinity

import (
	"runtime"

	"github.com/momentics/lwksched/cpuset"
)

// Apply pins the current OS thread to the CPUs of the set on supported
// platforms. On unsupported platforms it returns an error.
func Apply(set cpuset.Set) error {
	return applyPlatform(set)
}

// Pin locks the calling goroutine to its OS thread and pins that
// thread to a single CPU. The returned func undoes the lock.
func Pin(cpu int) (func(), error) {
	runtime.LockOSThread()
	if err := applyPlatform(cpuset.Of(cpu)); err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return runtime.UnlockOSThread, nil
}
