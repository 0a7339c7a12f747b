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
	"rvkernel.dev/rvkernel/pkg/log"
	"rvkernel.dev/rvkernel/pkg/riscv"
	"rvkernel.dev/rvkernel/pkg/sbi"
)

// Identity is what the firmware reports through the base extension.
type Identity struct {
	SpecVersion uint64 `toml:"spec_version" json:"spec_version" yaml:"spec_version"`
	ImplID      uint64 `toml:"impl_id" json:"impl_id" yaml:"impl_id"`
	ImplVersion uint64 `toml:"impl_version" json:"impl_version" yaml:"impl_version"`
	MVendorID   uint64 `toml:"mvendorid" json:"mvendorid" yaml:"mvendorid"`
	MArchID     uint64 `toml:"marchid" json:"marchid" yaml:"marchid"`
	MImpID      uint64 `toml:"mimpid" json:"mimpid" yaml:"mimpid"`
}

// DefaultIdentity is an SBI v1.0 firmware with a made up implementation id.
var DefaultIdentity = Identity{
	SpecVersion: 0x0100_0000,
	ImplID:      0x5256_5349_4d, // "RVSIM"
	ImplVersion: 0x0001_0000,
}

// Extensions implemented by the firmware.
var extensions = map[uint64]bool{
	sbi.ExtLegacyPutChar: true,
	sbi.ExtLegacyGetChar: true,
	sbi.ExtBase:          true,
	sbi.ExtTimer:         true,
	sbi.ExtIPI:           true,
	sbi.ExtSystemReset:   true,
}

// Firmware is the simulated SBI implementation.
type Firmware struct {
	m        *Machine
	codec    sbi.Codec
	identity Identity
	console  ConsoleWriter
	input    Input

	deadline uint64
	armed    bool
	halted   bool

	// fail, when set, is returned in a0 by the next call to failExt, or
	// by the next call when failAny is set.
	fail    int64
	failSet bool
	failAny bool
	failExt uint64

	calls int
}

func newFirmware(m *Machine, cfg Config) *Firmware {
	return &Firmware{
		m:        m,
		codec:    sbi.Codec{Width: cfg.Width},
		identity: cfg.Identity,
		console:  cfg.Console,
		input:    cfg.Input,
	}
}

// FailNext makes the next call return code in a0 without being serviced.
// code need not be a valid SBI error.
func (f *Firmware) FailNext(code int64) {
	f.fail = code
	f.failSet = true
	f.failAny = true
}

// FailNextOf is like FailNext, but applies to the next call to extension
// ext.
func (f *Firmware) FailNextOf(ext uint64, code int64) {
	f.fail = code
	f.failSet = true
	f.failAny = false
	f.failExt = ext
}

// Deadline returns the programmed timer deadline.
func (f *Firmware) Deadline() (uint64, bool) {
	return f.deadline, f.armed
}

// Calls returns the number of calls made.
func (f *Firmware) Calls() int {
	return f.calls
}

// updateTimer raises the supervisor timer interrupt once the deadline has
// passed.
func (f *Firmware) updateTimer() {
	if f.armed && f.m.time >= f.deadline {
		f.m.csr[riscv.Sip] |= riscv.SupervisorTimer.Bit()
	}
}

func (f *Firmware) call(in sbi.Registers) (a0, a1 uint64) {
	f.calls++
	w := f.codec.Width
	if f.failSet && (f.failAny || w.Truncate(in.A7) == f.failExt) {
		f.failSet = false
		log.Debugf("SBI call %v failed with injected code %d", in, f.fail)
		return w.Word(f.fail), 0
	}

	req, err := f.codec.Decode(in)
	if err != nil {
		code, _ := sbi.ErrorCode(err)
		log.Debugf("SBI call %v: %v", in, err)
		return w.Word(code), 0
	}
	log.Debugf("SBI call %v", req)

	switch r := req.(type) {
	case sbi.ConsolePutChar:
		if f.console != nil {
			if _, err := f.console.Write([]byte{r.Char}); err != nil {
				return w.Word(-1), 0
			}
		}
		return 0, 0
	case sbi.ConsoleGetChar:
		if f.input != nil {
			if ch, ok := f.input.Poll(); ok {
				return uint64(ch), 0
			}
		}
		return w.Word(-1), 0
	case sbi.Base:
		return 0, w.Truncate(f.base(r))
	case sbi.SetTimer:
		f.deadline = r.Deadline
		f.armed = true
		f.m.csr[riscv.Sip] &^= riscv.SupervisorTimer.Bit()
		return 0, 0
	case sbi.SendIPI:
		// Only hart 0 exists.
		if r.HartMask&1 != 0 {
			f.m.csr[riscv.Sip] |= riscv.SupervisorSoftware.Bit()
		}
		return 0, 0
	case sbi.Shutdown:
		f.halted = true
		log.Infof("Firmware shutdown requested")
		return 0, 0
	default:
		code, _ := sbi.ErrorCode(sbi.ErrNotSupported)
		return w.Word(code), 0
	}
}

func (f *Firmware) base(r sbi.Base) uint64 {
	switch r.Function {
	case sbi.GetSpecVersion:
		return f.identity.SpecVersion
	case sbi.GetImplID:
		return f.identity.ImplID
	case sbi.GetImplVersion:
		return f.identity.ImplVersion
	case sbi.ProbeExtension:
		if extensions[r.Probe] {
			return 1
		}
		return 0
	case sbi.GetMVendorID:
		return f.identity.MVendorID
	case sbi.GetMArchID:
		return f.identity.MArchID
	case sbi.GetMImpID:
		return f.identity.MImpID
	default:
		return 0
	}
}
