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

package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"rvkernel.dev/rvkernel/pkg/riscv"
	"rvkernel.dev/rvkernel/pkg/sim"
	"rvkernel.dev/rvkernel/pkg/trap"
)

// Profile describes the simulated machine. It is read from a TOML file:
//
//	xlen = 64
//	time = 0
//	timer_delta = 10000000
//
//	[firmware]
//	spec_version = 0x01000000
//	impl_id = 1
type Profile struct {
	// XLEN is 32 or 64. Zero means 64.
	XLEN int `toml:"xlen"`

	// Time is the initial value of the time counter.
	Time uint64 `toml:"time"`

	// TimerDelta is the interval between timer interrupts. Zero uses the
	// kernel default.
	TimerDelta uint64 `toml:"timer_delta"`

	// Firmware is what the firmware reports about itself. Zero uses
	// sim.DefaultIdentity.
	Firmware sim.Identity `toml:"firmware"`
}

// LoadProfile reads a profile file. Unknown keys are an error.
func LoadProfile(path string) (*Profile, error) {
	var p Profile
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return nil, fmt.Errorf("reading profile %q: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, fmt.Errorf("profile %q: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", path, err)
	}
	return &p, nil
}

// ParseProfile reads a profile from TOML text.
func ParseProfile(text string) (*Profile, error) {
	var p Profile
	md, err := toml.Decode(text, &p)
	if err != nil {
		return nil, err
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}

func (p *Profile) validate() error {
	switch p.XLEN {
	case 0, 32, 64:
		return nil
	default:
		return fmt.Errorf("invalid xlen %d, must be 32 or 64", p.XLEN)
	}
}

// Machine is the resolved description of the machine to simulate.
type Machine struct {
	Sim  sim.Config
	Trap trap.Options
}

// Machine resolves the machine from the profile, if any, and the flags.
// Flags that are set win over the profile.
func (c *Config) Machine() (Machine, error) {
	p := &Profile{}
	if c.Profile != "" {
		var err error
		if p, err = LoadProfile(c.Profile); err != nil {
			return Machine{}, err
		}
	}
	return c.resolve(p), nil
}

func (c *Config) resolve(p *Profile) Machine {
	m := Machine{
		Sim: sim.Config{
			Width:    riscv.Width64,
			Identity: p.Firmware,
			Time:     p.Time,
		},
		Trap: trap.Options{TimerDelta: p.TimerDelta},
	}
	if p.XLEN != 0 {
		m.Sim.Width = riscv.Width(p.XLEN)
	}
	if c.XLEN != XLENAuto {
		m.Sim.Width = c.XLEN.Width()
	}
	if c.TimerDelta != 0 {
		m.Trap.TimerDelta = c.TimerDelta
	}
	if m.Trap.TimerDelta == 0 {
		m.Trap.TimerDelta = trap.TimerDelta
	}
	if m.Sim.Identity == (sim.Identity{}) {
		m.Sim.Identity = sim.DefaultIdentity
	}
	return m
}
