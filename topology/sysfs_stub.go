//go:build !linux
// +build !linux

// File: topology/sysfs_stub.go
// Author: momentics <momentics@gmail.com>
//
// Non-Linux fallback for topology discovery.

package topology

import "github.com/momentics/lwksched/api"

// Discover is unavailable off Linux; callers fall back to a Static or
// Uniform provider sized to the machine.
func Discover() (*Static, error) {
	return nil, api.ErrNotSupported
}
