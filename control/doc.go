// Package control
// Author: momentics <momentics@gmail.com>
//
// Launch-channel and observability surface of the LWK partition.
//
// Provides concurrent-safe primitives shaped around the scheduler:
//   - Ordered staging of boot-channel options and their one-sweep
//     delivery to a process record
//   - Typed end-of-job process summaries published by the core
//   - Partition inspection probes, global and fanned out per CPU
//   - JSON export of summaries and live state for external tooling
package control
