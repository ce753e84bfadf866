// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Partition introspection. An Inspector answers "what does the LWK
// side look like right now": global probes for partition-wide facts
// and per-CPU probes fanned out over the inspected CPU set, keyed
// "name/cpuN" in the dump.

package control

import (
	"fmt"
	"sync"
)

// CPUProbe reports one fact about one CPU.
type CPUProbe func(cpu int) any

// Inspector holds the registered probes for one partition.
type Inspector struct {
	mu     sync.RWMutex
	cpus   []int
	global map[string]func() any
	perCPU map[string]CPUProbe
}

// NewInspector creates an inspector over the given CPUs.
func NewInspector(cpus ...int) *Inspector {
	return &Inspector{
		cpus:   cpus,
		global: make(map[string]func() any),
		perCPU: make(map[string]CPUProbe),
	}
}

// RegisterProbe installs a partition-wide probe.
func (in *Inspector) RegisterProbe(name string, fn func() any) {
	in.mu.Lock()
	in.global[name] = fn
	in.mu.Unlock()
}

// RegisterCPUProbe installs a probe evaluated once per inspected CPU.
func (in *Inspector) RegisterCPUProbe(name string, fn CPUProbe) {
	in.mu.Lock()
	in.perCPU[name] = fn
	in.mu.Unlock()
}

// DumpState evaluates every probe.
func (in *Inspector) DumpState() map[string]any {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make(map[string]any)
	for name, fn := range in.global {
		out[name] = fn()
	}
	for name, fn := range in.perCPU {
		for _, cpu := range in.cpus {
			out[fmt.Sprintf("%s/cpu%d", name, cpu)] = fn(cpu)
		}
	}
	return out
}
