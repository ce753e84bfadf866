// Package api
// Author: momentics <momentics@gmail.com>
//
// Public surface shared between the LWK scheduler core and its callers:
// clone-attribute words, placement/behavior result codes, thread and
// topology-match enumerations, and the common error values.
//
// This package is dependency-free by design so that both the core and
// host-side bindings can import it.
package api
