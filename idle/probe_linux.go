//go:build linux
// +build linux

// File: idle/probe_linux.go
// Author: momentics <momentics@gmail.com>
//
// One-time probe of the monitor/mwait capability. When /proc/cpuinfo
// lists the monitor flag, fixed shallow (C1) and deep (TLB-flushing)
// hint words are used; without it both words are zero and idle falls
// back to halt.

package idle

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	probeOnce    sync.Once
	probeShallow uint32
	probeDeep    uint32
)

// ProbeHints returns the (shallow, deep) low-power hint words for this
// machine. The probe runs once.
func ProbeHints() (shallow, deep uint32) {
	probeOnce.Do(func() {
		if !cpuHasMonitor() {
			log.Warn().Msg("lwk-sched: monitor/mwait not supported, idle halt enabled")
			return
		}
		// Shallowest usable state is C1; the deepest one flushes TLBs
		// on the way down.
		probeShallow = MWaitEnabled
		probeDeep = MWaitEnabled | TLBsFlushed | (5 << 4)
		log.Info().
			Uint32("shallow", probeShallow).
			Uint32("deep", probeDeep).
			Msg("lwk-sched: idle mwait enabled")
	})
	return probeShallow, probeDeep
}

func cpuHasMonitor() bool {
	raw, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if !strings.HasPrefix(line, "flags") {
			continue
		}
		for _, f := range strings.Fields(line) {
			if f == "monitor" {
				return true
			}
		}
		return false
	}
	return false
}
