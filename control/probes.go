// control/probes.go
// Author: momentics <momentics@gmail.com>
//
// Built-in machine-level probes shared by every platform.

package control

import "runtime"

// RegisterPlatformProbes installs the machine-level probes.
func RegisterPlatformProbes(in *Inspector) {
	in.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	in.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
}
