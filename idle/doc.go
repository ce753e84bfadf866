// Package idle
// Author: momentics <momentics@gmail.com>
//
// Low-power abstraction for the LWK idle driver. The driver picks a
// shallow or deep hint word per idle episode; this package turns the
// hint into an actual wait, either residency-timed (approximating the
// monitor/mwait pair of the hardware path) or a plain halt-equivalent
// block until woken.
package idle
