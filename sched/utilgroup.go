// File: sched/utilgroup.go
// Author: momentics <momentics@gmail.com>
//
// Utility-group registry: a small bounded table binding an opaque
// grouping key to a remembered topology anchor. The table lock is held
// across the placement search when a new key must be populated, so two
// concurrent clones with the same key cannot create divergent anchors.

package sched

import (
	"sync"

	"github.com/momentics/lwksched/topology"
	"github.com/rs/zerolog/log"
)

type utilGroupEntry struct {
	key      uint64
	refcount int
	topo     topology.Topology
}

type utilGroupTable struct {
	mu    sync.Mutex
	entry [utilGroupLimit]utilGroupEntry
}

// lookupOrBegin searches for key. On a hit it bumps the refcount and
// returns the anchor with the lock released. On a miss it returns
// pending=true WITH THE LOCK HELD; the caller must finish the
// placement search and then call complete or abort.
func (g *utilGroupTable) lookupOrBegin(key uint64) (topo topology.Topology, found, pending bool) {
	g.mu.Lock()
	for i := range g.entry {
		if g.entry[i].key == key {
			g.entry[i].refcount++
			topo = g.entry[i].topo
			g.mu.Unlock()
			return topo, true, false
		}
	}
	// Caller owns the lock until complete/abort.
	return topology.Topology{}, false, true
}

// complete writes the new entry and releases the lock taken by
// lookupOrBegin. Returns false when every slot is taken.
func (g *utilGroupTable) complete(key uint64, topo topology.Topology) bool {
	defer g.mu.Unlock()
	for i := range g.entry {
		if g.entry[i].key == 0 {
			if g.entry[i].refcount != 0 {
				warnOnce("utilgrp", "lwk-sched: free group slot with non-zero refcount", g.entry[i].refcount)
			}
			g.entry[i].key = key
			g.entry[i].refcount = 1
			g.entry[i].topo = topo
			return true
		}
	}
	warnOnce("utilgrp-full", "lwk-sched: no utility thread key slots available", utilGroupLimit)
	return false
}

// abort releases the lock taken by lookupOrBegin without writing.
func (g *utilGroupTable) abort() { g.mu.Unlock() }

// put drops one reference to key, freeing the slot at zero.
func (g *utilGroupTable) put(key uint64) {
	if key == 0 {
		return
	}
	g.mu.Lock()
	for i := range g.entry {
		if g.entry[i].key == key {
			g.entry[i].refcount--
			if g.entry[i].refcount <= 0 {
				g.entry[i] = utilGroupEntry{}
			}
			break
		}
	}
	g.mu.Unlock()
}

// snapshot returns the live entries for end-of-job reporting.
func (g *utilGroupTable) snapshot() []utilGroupEntry {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []utilGroupEntry
	for _, e := range g.entry {
		if e.key != 0 {
			out = append(out, e)
		}
	}
	return out
}

func (g *utilGroupTable) logLive() {
	for _, e := range g.snapshot() {
		log.Info().Uint64("key", e.key).Int("refcount", e.refcount).
			Msg("lwk-sched: live utility group")
	}
}
