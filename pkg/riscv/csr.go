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

package riscv

import (
	"fmt"

	"rvkernel.dev/rvkernel/pkg/bits"
)

// CSR is a control and status register number.
type CSR uint16

// Supervisor CSRs and the time counter.
const (
	Sstatus  CSR = 0x100
	Sie      CSR = 0x104
	Stvec    CSR = 0x105
	Sscratch CSR = 0x140
	Sepc     CSR = 0x141
	Scause   CSR = 0x142
	Stval    CSR = 0x143
	Sip      CSR = 0x144
	Time     CSR = 0xc01
	Timeh    CSR = 0xc81
)

var csrNames = map[CSR]string{
	Sstatus:  "sstatus",
	Sie:      "sie",
	Stvec:    "stvec",
	Sscratch: "sscratch",
	Sepc:     "sepc",
	Scause:   "scause",
	Stval:    "stval",
	Sip:      "sip",
	Time:     "time",
	Timeh:    "timeh",
}

// String implements fmt.Stringer.
func (c CSR) String() string {
	if name, ok := csrNames[c]; ok {
		return name
	}
	return fmt.Sprintf("csr%#x", uint16(c))
}

// VectorBase is the address the kernel installs in stvec. The low two bits
// select direct mode.
const VectorBase uint64 = 0x8020_0100

// Mode is a privilege mode.
type Mode int

// Privilege modes below machine mode.
const (
	User Mode = iota
	Supervisor
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == Supervisor {
		return "Supervisor"
	}
	return "User"
}

// sstatus bit positions.
const (
	statusSIE  = 1
	statusSPIE = 5
	statusUBE  = 6
	statusSPP  = 8
)

// Status is the value of the sstatus register.
type Status uint64

// SIE reports whether supervisor interrupts are globally enabled.
func (s Status) SIE() bool {
	return bits.IsOn64(uint64(s), bits.MaskOf64(statusSIE))
}

// SPIE reports whether supervisor interrupts were enabled before the trap.
func (s Status) SPIE() bool {
	return bits.IsOn64(uint64(s), bits.MaskOf64(statusSPIE))
}

// UBE reports whether user mode memory accesses are big endian.
func (s Status) UBE() bool {
	return bits.IsOn64(uint64(s), bits.MaskOf64(statusUBE))
}

// SPP returns the privilege mode the trap was taken from.
func (s Status) SPP() Mode {
	if bits.IsOn64(uint64(s), bits.MaskOf64(statusSPP)) {
		return Supervisor
	}
	return User
}

// WithSIE returns s with SIE set to v.
func (s Status) WithSIE(v bool) Status {
	return s.with(statusSIE, v)
}

// WithSPIE returns s with SPIE set to v.
func (s Status) WithSPIE(v bool) Status {
	return s.with(statusSPIE, v)
}

// WithSPP returns s with SPP set to m.
func (s Status) WithSPP(m Mode) Status {
	return s.with(statusSPP, m == Supervisor)
}

func (s Status) with(bit int, v bool) Status {
	if v {
		return s | Status(bits.MaskOf64(bit))
	}
	return s &^ Status(bits.MaskOf64(bit))
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return fmt.Sprintf("Sstatus{raw: %#x, is_interrupt_enabled: %t, is_interrupt_enabled_before_exception: %t, is_user_big_endian: %t, mode_before_exception: %v}",
		uint64(s), s.SIE(), s.SPIE(), s.UBE(), s.SPP())
}
