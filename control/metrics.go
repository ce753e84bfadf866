// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// End-of-job scheduling metrics. Each LWK process publishes one typed
// summary when it exits; the registry keeps the latest summary per
// process so launchers and monitoring agents can read them after the
// partition has been torn down.

package control

import (
	"sync"
	"time"
)

// ProcessSummary is the per-process roll-up of the per-CPU scheduling
// statistics: commit maxima, queue depth maximum and the event
// counters accumulated over the process lifetime.
type ProcessSummary struct {
	TGID    int `json:"tgid"`
	Threads int `json:"threads"`
	CPUs    int `json:"cpus"`

	MaxComputeLevel int `json:"max_compute"`
	MaxUtilLevel    int `json:"max_util"`
	MaxRunning      int `json:"max_running"`

	GuestDispatch uint64 `json:"guest_dispatch"`
	TimerPop      uint64 `json:"timer_pop"`
	SyscMigr      uint64 `json:"sysc_migr"`
	Setaffinity   uint64 `json:"setaffinity"`
	Pushed        uint64 `json:"pushed"`
}

// MetricsRegistry holds the published summaries, newest per process.
type MetricsRegistry struct {
	mu        sync.RWMutex
	summaries map[int]ProcessSummary
	updated   time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		summaries: make(map[int]ProcessSummary),
	}
}

// Publish records a process summary, replacing any prior one for the
// same tgid.
func (mr *MetricsRegistry) Publish(s ProcessSummary) {
	mr.mu.Lock()
	mr.summaries[s.TGID] = s
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Summary returns the latest summary of one process.
func (mr *MetricsRegistry) Summary(tgid int) (ProcessSummary, bool) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	s, ok := mr.summaries[tgid]
	return s, ok
}

// Snapshot returns every published summary.
func (mr *MetricsRegistry) Snapshot() []ProcessSummary {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make([]ProcessSummary, 0, len(mr.summaries))
	for _, s := range mr.summaries {
		out = append(out, s)
	}
	return out
}

// Len reports how many processes have published.
func (mr *MetricsRegistry) Len() int {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return len(mr.summaries)
}

// Updated returns the time of the last publication.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}
