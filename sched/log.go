// File: sched/log.go
// Author: momentics <momentics@gmail.com>
//
// One-shot warnings. Internal inconsistencies warn once per site and
// keep going; only queue-structure corruption is fatal.

package sched

import (
	"sync"

	"github.com/rs/zerolog/log"
)

var warnOnceSites sync.Map

// warnOnce logs a warning the first time a given site fires.
func warnOnce(site, msg string, value int) {
	if _, loaded := warnOnceSites.LoadOrStore(site, struct{}{}); loaded {
		return
	}
	log.Warn().Int("value", value).Msg(msg)
}
