// control/export.go
// Author: momentics <momentics@gmail.com>
//
// JSON export of process summaries and inspector dumps for external
// tooling.

package control

import "github.com/sugawarayuuta/sonnet"

// ExportJSON serializes the published process summaries.
func ExportJSON(mr *MetricsRegistry) ([]byte, error) {
	return sonnet.Marshal(mr.Snapshot())
}

// ExportStateJSON serializes the summaries together with a live
// inspector dump.
func ExportStateJSON(mr *MetricsRegistry, in *Inspector) ([]byte, error) {
	out := make(map[string]any)
	if mr != nil {
		out["processes"] = mr.Snapshot()
	}
	if in != nil {
		for k, v := range in.DumpState() {
			out[k] = v
		}
	}
	return sonnet.Marshal(out)
}
