// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Boot-channel option staging. A launcher collects the lwksched-*
// options for a process before it exists, in delivery order — later
// occurrences of a key override earlier ones the same way repeated
// yod arguments do — and applies them to the process record in one
// sweep once it has been created.

package control

import "sync"

// BootOption is one staged boot-channel key/value pair.
type BootOption struct {
	Name  string
	Value string
}

// OptionSink is the process-record side of the boot channel.
type OptionSink interface {
	SetOption(name, value string) error
}

// BootOptions stages options for a process launch.
type BootOptions struct {
	mu      sync.Mutex
	staged  []BootOption
	applied bool
}

// NewBootOptions creates an empty staging area.
func NewBootOptions() *BootOptions {
	return &BootOptions{}
}

// Stage appends one option in delivery order.
func (bo *BootOptions) Stage(name, value string) {
	bo.mu.Lock()
	bo.staged = append(bo.staged, BootOption{Name: name, Value: value})
	bo.mu.Unlock()
}

// Staged returns a copy of the pending options.
func (bo *BootOptions) Staged() []BootOption {
	bo.mu.Lock()
	defer bo.mu.Unlock()
	out := make([]BootOption, len(bo.staged))
	copy(out, bo.staged)
	return out
}

// ApplyTo delivers the staged options to a process record in order.
// The first rejected option stops the launch and is returned; staged
// state is kept so the launcher can correct and retry.
func (bo *BootOptions) ApplyTo(sink OptionSink) error {
	for _, opt := range bo.Staged() {
		if err := sink.SetOption(opt.Name, opt.Value); err != nil {
			return err
		}
	}
	bo.mu.Lock()
	bo.applied = true
	bo.mu.Unlock()
	return nil
}

// Applied reports whether a full ApplyTo pass has succeeded.
func (bo *BootOptions) Applied() bool {
	bo.mu.Lock()
	defer bo.mu.Unlock()
	return bo.applied
}
