// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sim

import (
	"github.com/mohae/deepcopy"
	"rvkernel.dev/rvkernel/pkg/sbi"
)

// Event records one trap taken by the machine.
type Event struct {
	// Seq is the position of the event in the trace.
	Seq int `json:"seq" yaml:"seq"`

	// Time is the time counter when the trap was taken.
	Time uint64 `json:"time" yaml:"time"`

	// Cause is the raw scause value and Exception its classification.
	Cause     uint64 `json:"cause" yaml:"cause"`
	Exception string `json:"exception" yaml:"exception"`

	Tval uint64 `json:"stval" yaml:"stval"`
	EPC  uint64 `json:"sepc" yaml:"sepc"`

	// From is the privilege mode the trap was taken from.
	From string `json:"from" yaml:"from"`

	// Calls are the firmware calls made while handling the trap.
	Calls []sbi.Registers `json:"calls,omitempty" yaml:"calls,omitempty"`

	// Halted is set when the machine shut down in the handler. Otherwise
	// the hart resumed at Resume in mode To.
	Halted bool   `json:"halted" yaml:"halted"`
	Resume uint64 `json:"resume,omitempty" yaml:"resume,omitempty"`
	To     string `json:"to,omitempty" yaml:"to,omitempty"`
}

// Trace returns a copy of the events recorded so far.
func (m *Machine) Trace() []Event {
	if len(m.trace) == 0 {
		return nil
	}
	return deepcopy.Copy(m.trace).([]Event)
}

// ResetTrace discards the recorded events.
func (m *Machine) ResetTrace() {
	m.trace = nil
}
