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

// Cause is the raw value of the scause register.
type Cause uint64

// Interrupt is a supervisor interrupt code.
type Interrupt uint64

// Named supervisor interrupts.
const (
	SupervisorSoftware Interrupt = 1
	SupervisorTimer    Interrupt = 5
	SupervisorExternal Interrupt = 9
)

// Bit returns the interrupt's bit in sie and sip.
func (i Interrupt) Bit() uint64 {
	return bits.MaskOf64(int(i))
}

// InterruptMask has the bit of every named interrupt set.
var InterruptMask = bits.Mask64(int(SupervisorSoftware), int(SupervisorTimer), int(SupervisorExternal))

// Interrupts returns the named interrupts whose bits are set in v, in code
// order.
func Interrupts(v uint64) []Interrupt {
	var irqs []Interrupt
	bits.ForEachSetBit64(v&InterruptMask, func(i int) {
		irqs = append(irqs, Interrupt(i))
	})
	return irqs
}

// String implements fmt.Stringer.
func (i Interrupt) String() string {
	switch i {
	case SupervisorSoftware:
		return "SupervisorSoftware"
	case SupervisorTimer:
		return "SupervisorTimer"
	case SupervisorExternal:
		return "SupervisorExternal"
	default:
		return fmt.Sprintf("Interrupt(%d)", uint64(i))
	}
}

// Trap is a synchronous exception the kernel may resolve and resume from.
type Trap uint64

// Recoverable synchronous exceptions. EcallFromSupervisor is classified as a
// trap but has no handler in the kernel.
const (
	Breakpoint          Trap = 3
	EcallFromUser       Trap = 8
	EcallFromSupervisor Trap = 9
)

// String implements fmt.Stringer.
func (t Trap) String() string {
	switch t {
	case Breakpoint:
		return "Breakpoint"
	case EcallFromUser:
		return "EnvironmentCallFromUMode"
	case EcallFromSupervisor:
		return "EnvironmentCallFromSMode"
	default:
		return fmt.Sprintf("Trap(%d)", uint64(t))
	}
}

// Fault is a synchronous exception that is never recovered from.
type Fault uint64

// Fault kinds.
const (
	InstructionAddressMisaligned Fault = 0
	InstructionAccessFault       Fault = 1
	IllegalInstruction           Fault = 2
	LoadAddressMisaligned        Fault = 4
	LoadAccessFault              Fault = 5
	StoreAMOAddressMisaligned    Fault = 6
	StoreAMOAccessFault          Fault = 7
	InstructionPageFault         Fault = 12
	LoadPageFault                Fault = 13
	StoreAMOPageFault            Fault = 15
)

// Faults lists every fault kind, in code order.
var Faults = []Fault{
	InstructionAddressMisaligned,
	InstructionAccessFault,
	IllegalInstruction,
	LoadAddressMisaligned,
	LoadAccessFault,
	StoreAMOAddressMisaligned,
	StoreAMOAccessFault,
	InstructionPageFault,
	LoadPageFault,
	StoreAMOPageFault,
}

var faultNames = map[Fault]string{
	InstructionAddressMisaligned: "InstructionAddressMisaligned",
	InstructionAccessFault:       "InstructionAccessFault",
	IllegalInstruction:           "IllegalInstruction",
	LoadAddressMisaligned:        "LoadAddressMisaligned",
	LoadAccessFault:              "LoadAccessFault",
	StoreAMOAddressMisaligned:    "StoreOrAmoAddressMisaligned",
	StoreAMOAccessFault:          "StoreOrAmoAccessFault",
	InstructionPageFault:         "InstructionPageFault",
	LoadPageFault:                "LoadPageFault",
	StoreAMOPageFault:            "StoreOrAmoPageFault",
}

// String implements fmt.Stringer.
func (f Fault) String() string {
	if name, ok := faultNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Fault(%d)", uint64(f))
}

// Kind is the category of a classified cause.
type Kind int

// Cause categories. Reserved and Platform apply to both interrupts and
// synchronous exceptions.
const (
	KindFault Kind = iota
	KindTrap
	KindInterrupt
	KindReserved
	KindPlatform
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindFault:
		return "fault"
	case KindTrap:
		return "trap"
	case KindInterrupt:
		return "interrupt"
	case KindReserved:
		return "reserved"
	case KindPlatform:
		return "platform"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Exception is a classified trap cause: a tagged variant over
//
//	Interrupt(SupervisorSoftware | SupervisorTimer | SupervisorExternal |
//	          Reserved{code} | Platform{code})
//	Sync(Trap(t) | Fault(f) | Reserved{code} | Platform{code})
//
// The zero value is Sync(Fault(InstructionAddressMisaligned)).
type Exception struct {
	interrupt bool
	kind      Kind
	code      uint64
}

// IsInterrupt returns true for asynchronous causes.
func (e Exception) IsInterrupt() bool {
	return e.interrupt
}

// Kind returns the category of e.
func (e Exception) Kind() Kind {
	return e.kind
}

// Code returns the exception code, without the interrupt bit.
func (e Exception) Code() uint64 {
	return e.code
}

// Interrupt returns the named interrupt, if e is one.
func (e Exception) Interrupt() (Interrupt, bool) {
	return Interrupt(e.code), e.interrupt && e.kind == KindInterrupt
}

// Trap returns the recoverable trap, if e is one.
func (e Exception) Trap() (Trap, bool) {
	return Trap(e.code), !e.interrupt && e.kind == KindTrap
}

// Fault returns the fault kind, if e is one.
func (e Exception) Fault() (Fault, bool) {
	return Fault(e.code), !e.interrupt && e.kind == KindFault
}

// Cause re-encodes e as a raw scause value of width w.
func (e Exception) Cause(w Width) Cause {
	if e.interrupt {
		return Cause(w.TopBit() | w.Truncate(e.code))
	}
	return Cause(w.Truncate(e.code))
}

// String implements fmt.Stringer.
func (e Exception) String() string {
	outer := "Sync"
	if e.interrupt {
		outer = "Interrupt"
	}
	switch e.Kind() {
	case KindInterrupt:
		return fmt.Sprintf("Interrupt(%v)", Interrupt(e.code))
	case KindTrap:
		return fmt.Sprintf("Sync(Trap(%v))", Trap(e.code))
	case KindFault:
		return fmt.Sprintf("Sync(Fault(%v))", Fault(e.code))
	case KindReserved:
		return fmt.Sprintf("%s(Reserved{code: %d})", outer, e.code)
	default:
		return fmt.Sprintf("%s(Platform{code: %d})", outer, e.code)
	}
}

// Classify decodes a raw RV64 scause value. See Width.Classify.
func Classify(raw Cause) Exception {
	return Width64.Classify(raw)
}

// Classify decodes a raw scause value. Classification is total: every raw
// value maps to exactly one variant, and bits above the word width are
// ignored.
func (w Width) Classify(raw Cause) Exception {
	v := w.Truncate(uint64(raw))
	code := v &^ w.TopBit()
	if v&w.TopBit() != 0 {
		return classifyInterrupt(code)
	}
	return classifySync(code)
}

func classifyInterrupt(code uint64) Exception {
	e := Exception{interrupt: true, code: code}
	switch {
	case code == 1 || code == 5 || code == 9:
		e.kind = KindInterrupt
	case code <= 15:
		e.kind = KindReserved
	default:
		e.kind = KindPlatform
	}
	return e
}

func classifySync(code uint64) Exception {
	e := Exception{code: code}
	switch {
	case code == 3 || code == 8 || code == 9:
		e.kind = KindTrap
	case code <= 7 || code == 12 || code == 13 || code == 15:
		// 0-2 and 4-7; 3 was matched above.
		e.kind = KindFault
	case code >= 24 && code <= 31, code >= 48 && code <= 63:
		e.kind = KindPlatform
	default:
		e.kind = KindReserved
	}
	return e
}
