// File: sched/options.go
// Author: momentics <momentics@gmail.com>
//
// Process-level configuration keys accepted from the boot channel.
// Validation errors surface as api.ErrInvalidArgument and are logged
// once per call; a valid key takes effect immediately.

package sched

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/momentics/lwksched/api"
	"github.com/rs/zerolog/log"
)

// minRRMsecs is one tick expressed in milliseconds.
const minRRMsecs = 1000 / TickHz

type optionFunc func(p *Process, val string) error

var optionTable = map[string]optionFunc{
	"move-syscalls-disable":        optMoveSyscallsDisable,
	"lwksched-enable-rr":           optEnableRR,
	"lwksched-disable-setaffinity": optDisableSetaffinity,
	"lwksched-stats":               optStats,
	"util-threshold":               optUtilThreshold,
	"overcommit-behavior":          optOvercommitBehavior,
	"one-cpu-per-util":             optOneCPUPerUtil,
	"lwksched-num-util-threads":    optNumUtilThreads,
}

// SetOption applies one boot-channel option to the process.
func (p *Process) SetOption(name, val string) error {
	fn, ok := optionTable[name]
	if !ok {
		return fmt.Errorf("unknown option %q: %w", name, api.ErrInvalidArgument)
	}
	if err := fn(p, val); err != nil {
		log.Error().Str("option", name).Str("value", val).Err(err).
			Msg("lwk-sched: illegal option value")
		return err
	}
	return nil
}

func optMoveSyscallsDisable(p *Process, _ string) error {
	p.MoveSyscallsDisable = true
	return nil
}

func optEnableRR(p *Process, val string) error {
	msecs, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("timeslice %q: %w", val, api.ErrInvalidArgument)
	}
	// A zero value means no rr time-slicing.
	if msecs == 0 {
		return nil
	}
	// The timeslice cannot be finer than the timer frequency.
	if msecs < minRRMsecs {
		return fmt.Errorf("timeslice %dms below minimum %dms: %w",
			msecs, minRRMsecs, api.ErrInvalidArgument)
	}
	p.EnableRR = msecs * TickHz / 1000
	return nil
}

func optDisableSetaffinity(p *Process, val string) error {
	errno, err := strconv.Atoi(val)
	if err != nil || errno < 0 {
		return fmt.Errorf("errno %q: %w", val, api.ErrInvalidArgument)
	}
	p.DisableSetaffinity = errno + 1
	return nil
}

func optStats(p *Process, val string) error {
	level, err := strconv.Atoi(val)
	if err != nil || level < 0 {
		return fmt.Errorf("stats level %q: %w", val, api.ErrInvalidArgument)
	}
	p.SchedStats = level
	return nil
}

// optUtilThreshold parses "max_cpus:max_threads_per_cpu".
func optUtilThreshold(p *Process, val string) error {
	maxCPUs, maxThreads, ok := strings.Cut(val, ":")
	if !ok {
		return fmt.Errorf("threshold %q: %w", val, api.ErrInvalidArgument)
	}
	nCPUs, err := strconv.Atoi(maxCPUs)
	if err != nil {
		return fmt.Errorf("threshold %q: %w", val, api.ErrInvalidArgument)
	}
	nThreads, err := strconv.Atoi(maxThreads)
	if err != nil {
		return fmt.Errorf("threshold %q: %w", val, api.ErrInvalidArgument)
	}
	p.MaxCPUsForUtil = nCPUs
	p.MaxUtilThreadsPerCPU = nThreads
	return nil
}

func optOvercommitBehavior(p *Process, val string) error {
	behavior, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("behavior %q: %w", val, api.ErrInvalidArgument)
	}
	switch api.CommitScope(behavior) {
	case api.CommitAll, api.CommitOnlyCompute, api.CommitOnlyUtility:
		p.Overcommit = api.CommitScope(behavior)
		return nil
	}
	return fmt.Errorf("behavior %q: %w", val, api.ErrInvalidArgument)
}

func optOneCPUPerUtil(p *Process, _ string) error {
	p.AllowedCPUsPerUtil = api.OneCPUPerUtil
	return nil
}

func optNumUtilThreads(p *Process, val string) error {
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return fmt.Errorf("count %q: %w", val, api.ErrInvalidArgument)
	}
	p.NumUtilThreads = n
	return nil
}
