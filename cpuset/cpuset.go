// File: cpuset/cpuset.go
// Author: momentics <momentics@gmail.com>
//
// Fixed-size CPU bitmap with value-copy semantics. The core passes and
// stores these by value, so a snapshot taken under one lock cannot be
// mutated behind the holder's back.

package cpuset

import (
	"fmt"
	"math/bits"
	"strings"
)

// MaxCPUs bounds the number of CPUs a set can describe.
const MaxCPUs = 1024

const wordBits = 64

// Set is a bitmap over CPU identifiers [0, MaxCPUs).
type Set [MaxCPUs / wordBits]uint64

// Of returns a set containing exactly the given CPUs.
func Of(cpus ...int) Set {
	var s Set
	for _, c := range cpus {
		s.Add(c)
	}
	return s
}

// Add inserts cpu into the set. Out-of-range ids are ignored.
func (s *Set) Add(cpu int) {
	if cpu < 0 || cpu >= MaxCPUs {
		return
	}
	s[cpu/wordBits] |= 1 << uint(cpu%wordBits)
}

// Remove deletes cpu from the set.
func (s *Set) Remove(cpu int) {
	if cpu < 0 || cpu >= MaxCPUs {
		return
	}
	s[cpu/wordBits] &^= 1 << uint(cpu%wordBits)
}

// Has reports whether cpu is in the set.
func (s Set) Has(cpu int) bool {
	if cpu < 0 || cpu >= MaxCPUs {
		return false
	}
	return s[cpu/wordBits]&(1<<uint(cpu%wordBits)) != 0
}

// Empty reports whether no CPU is set.
func (s Set) Empty() bool {
	for _, w := range s {
		if w != 0 {
			return false
		}
	}
	return true
}

// Weight returns the number of CPUs in the set.
func (s Set) Weight() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}

// First returns the lowest CPU id in the set, or -1 when empty.
func (s Set) First() int {
	for i, w := range s {
		if w != 0 {
			return i*wordBits + bits.TrailingZeros64(w)
		}
	}
	return -1
}

// Next returns the lowest CPU id strictly greater than cpu, or -1.
func (s Set) Next(cpu int) int {
	for c := cpu + 1; c < MaxCPUs; {
		w := s[c/wordBits] >> uint(c%wordBits)
		if w == 0 {
			c = (c/wordBits + 1) * wordBits
			continue
		}
		return c + bits.TrailingZeros64(w)
	}
	return -1
}

// ForEach invokes fn for every CPU in the set in ascending order.
func (s Set) ForEach(fn func(cpu int)) {
	for c := s.First(); c >= 0; c = s.Next(c) {
		fn(c)
	}
}

// Equal reports whether two sets contain the same CPUs.
func (s Set) Equal(o Set) bool { return s == o }

// And returns the intersection of s and o.
func (s Set) And(o Set) Set {
	var r Set
	for i := range s {
		r[i] = s[i] & o[i]
	}
	return r
}

// AndNot returns the CPUs of s not present in o.
func (s Set) AndNot(o Set) Set {
	var r Set
	for i := range s {
		r[i] = s[i] &^ o[i]
	}
	return r
}

// Or returns the union of s and o.
func (s Set) Or(o Set) Set {
	var r Set
	for i := range s {
		r[i] = s[i] | o[i]
	}
	return r
}

// Subset reports whether every CPU of s is in o.
func (s Set) Subset(o Set) bool {
	for i := range s {
		if s[i]&^o[i] != 0 {
			return false
		}
	}
	return true
}

// Intersects reports whether s and o share at least one CPU.
func (s Set) Intersects(o Set) bool {
	for i := range s {
		if s[i]&o[i] != 0 {
			return true
		}
	}
	return false
}

// String renders the set as a compressed range list, e.g. "0-3,8,10-11".
func (s Set) String() string {
	var b strings.Builder
	start, prev := -1, -2
	flush := func() {
		if start < 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if start == prev {
			fmt.Fprintf(&b, "%d", start)
		} else {
			fmt.Fprintf(&b, "%d-%d", start, prev)
		}
	}
	for c := s.First(); c >= 0; c = s.Next(c) {
		if c != prev+1 {
			flush()
			start = c
		}
		prev = c
	}
	flush()
	if b.Len() == 0 {
		return "none"
	}
	return b.String()
}
