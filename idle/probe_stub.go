//go:build !linux
// +build !linux

// File: idle/probe_stub.go
// Author: momentics <momentics@gmail.com>
//
// Non-Linux fallback: no monitor extensions, idle uses halt.

package idle

// ProbeHints reports no low-power extensions off Linux.
func ProbeHints() (shallow, deep uint32) { return 0, 0 }
