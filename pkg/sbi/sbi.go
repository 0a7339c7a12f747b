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

// Package sbi implements the supervisor side of the RISC-V Supervisor Binary
// Interface: typed firmware requests, their register encoding, and the call
// convention used to issue them.
//
// Two conventions exist. Legacy extensions (console putchar/getchar) load a
// single argument in a0 and the extension id in a7, and return a single value
// in a0. Standard extensions load up to two arguments in a0/a1, the function
// id in a6 and the extension id in a7, and return an error code in a0 and a
// value in a1.
package sbi

import "fmt"

// Extension ids.
const (
	ExtLegacyPutChar uint64 = 0x01
	ExtLegacyGetChar uint64 = 0x02
	ExtBase          uint64 = 0x10
	ExtTimer         uint64 = 0x54494D45 // "TIME"
	ExtIPI           uint64 = 0x735049   // "sPI"
	ExtSystemReset   uint64 = 0x53525354 // "SRST"
)

// Function ids within the timer, IPI and system reset extensions.
const (
	fidSetTimer    uint64 = 0
	fidSendIPI     uint64 = 0
	fidSystemReset uint64 = 0
)

// System reset arguments used by Shutdown.
const (
	resetTypeShutdown   uint64 = 0
	resetReasonNoReason uint64 = 0
)

// Registers is the register tuple of a firmware call: two argument
// registers, the function id register and the extension id register.
type Registers struct {
	A0 uint64
	A1 uint64
	A6 uint64
	A7 uint64
}

// String implements fmt.Stringer.
func (r Registers) String() string {
	return fmt.Sprintf("{a0: %#x, a1: %#x, a6: %#x, a7: %#x}", r.A0, r.A1, r.A6, r.A7)
}

// Caller issues the platform call instruction (ecall) with the given
// registers loaded and returns the contents of a0 and a1 afterwards.
type Caller interface {
	Ecall(in Registers) (a0, a1 uint64)
}
