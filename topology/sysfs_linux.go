//go:build linux
// +build linux

// File: topology/sysfs_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux topology discovery from sysfs. Core and cache identifiers are
// normalized to the first CPU id of each shared-CPU list; the NUMA id is
// the number of the cpu directory's nodeN entry.

package topology

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const sysCPUDir = "/sys/devices/system/cpu"

// Discover reads the present-CPU topology from sysfs. CPUs whose
// records cannot be read get -1 identifiers, which never equal the
// identifiers of a CPU whose records were read.
func Discover() (*Static, error) {
	present, err := os.ReadFile(sysCPUDir + "/present")
	if err != nil {
		return nil, fmt.Errorf("topology: reading present cpus: %w", err)
	}
	num, err := lastCPUOf(strings.TrimSpace(string(present)))
	if err != nil {
		return nil, fmt.Errorf("topology: parsing present cpus: %w", err)
	}
	num++

	cpus := make([]Topology, num)
	for c := 0; c < num; c++ {
		cpus[c] = readCPU(c)
	}
	log.Info().Int("cpus", num).Msg("lwk-sched: topology discovered from sysfs")
	return NewStatic(cpus), nil
}

func readCPU(cpu int) Topology {
	t := Topology{NUMAID: -1, CoreID: -1, L1CID: -1, L2CID: -1, L3CID: -1, ThreadIndex: -1}
	base := fmt.Sprintf("%s/cpu%d", sysCPUDir, cpu)

	if node, err := numaNodeOf(base); err == nil {
		t.NUMAID = node
	}

	siblings, err := readCPUList(base + "/topology/thread_siblings_list")
	if err == nil && len(siblings) > 0 {
		t.CoreID = siblings[0]
		for i, s := range siblings {
			if s == cpu {
				t.ThreadIndex = i
				break
			}
		}
	}

	for idx := 0; ; idx++ {
		cdir := fmt.Sprintf("%s/cache/index%d", base, idx)
		levelRaw, err := os.ReadFile(cdir + "/level")
		if err != nil {
			break
		}
		level, err := strconv.Atoi(strings.TrimSpace(string(levelRaw)))
		if err != nil {
			continue
		}
		shared, err := readCPUList(cdir + "/shared_cpu_list")
		if err != nil || len(shared) == 0 {
			continue
		}
		switch level {
		case 1:
			t.L1CID = shared[0]
		case 2:
			t.L2CID = shared[0]
		case 3:
			t.L3CID = shared[0]
		}
	}
	return t
}

// numaNodeOf finds the nodeN directory entry of a cpu directory.
func numaNodeOf(base string) (int, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return -1, err
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "node") {
			if n, err := strconv.Atoi(name[4:]); err == nil {
				return n, nil
			}
		}
	}
	return -1, fmt.Errorf("no node entry in %s", base)
}

// readCPUList parses a sysfs cpu list such as "0-3,8,10-11".
func readCPUList(path string) ([]int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseCPUList(strings.TrimSpace(string(raw)))
}

func parseCPUList(s string) ([]int, error) {
	var out []int
	if s == "" {
		return out, nil
	}
	for _, part := range strings.Split(s, ",") {
		lo, hi, ok := strings.Cut(part, "-")
		a, err := strconv.Atoi(lo)
		if err != nil {
			return nil, err
		}
		b := a
		if ok {
			if b, err = strconv.Atoi(hi); err != nil {
				return nil, err
			}
		}
		for c := a; c <= b; c++ {
			out = append(out, c)
		}
	}
	return out, nil
}

func lastCPUOf(s string) (int, error) {
	list, err := parseCPUList(s)
	if err != nil || len(list) == 0 {
		return -1, fmt.Errorf("empty cpu list %q: %w", s, err)
	}
	return list[len(list)-1], nil
}
