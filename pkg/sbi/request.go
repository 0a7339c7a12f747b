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

package sbi

import "fmt"

// Request is a typed firmware call. The set of implementations is closed.
type Request interface {
	fmt.Stringer

	// Extension returns the extension id the request is issued against.
	Extension() uint64

	// Legacy returns true if the request uses the legacy convention.
	Legacy() bool

	isRequest()
}

// ConsolePutChar writes a byte to the firmware console (legacy 0x01).
type ConsolePutChar struct {
	Char byte
}

// ConsoleGetChar reads a byte from the firmware console (legacy 0x02). The
// firmware returns -1 when no input is available.
type ConsoleGetChar struct{}

// BaseFunction is a function of the base extension.
type BaseFunction uint64

// Base extension functions.
const (
	GetSpecVersion BaseFunction = 0
	GetImplID      BaseFunction = 1
	GetImplVersion BaseFunction = 2
	ProbeExtension BaseFunction = 3
	GetMVendorID   BaseFunction = 4
	GetMArchID     BaseFunction = 5
	GetMImpID      BaseFunction = 6
)

var baseFunctionNames = [...]string{
	GetSpecVersion: "GetSpecVersion",
	GetImplID:      "GetImplId",
	GetImplVersion: "GetImplVersion",
	ProbeExtension: "ProbeExtension",
	GetMVendorID:   "GetMVendorId",
	GetMArchID:     "GetMArchId",
	GetMImpID:      "GetMImpId",
}

// Valid returns true for the defined base functions.
func (f BaseFunction) Valid() bool {
	return f <= GetMImpID
}

// String implements fmt.Stringer.
func (f BaseFunction) String() string {
	if f.Valid() {
		return baseFunctionNames[f]
	}
	return fmt.Sprintf("BaseFunction(%d)", uint64(f))
}

// Base is a call into the base extension (0x10). Probe is the extension id
// argument of ProbeExtension and must be zero for every other function.
type Base struct {
	Function BaseFunction
	Probe    uint64
}

// SetTimer programs the next timer event for the deadline, expressed in
// ticks of the time counter.
type SetTimer struct {
	Deadline uint64
}

// SendIPI sends an inter-processor interrupt to the harts in HartMask.
type SendIPI struct {
	HartMask uint64
}

// Shutdown powers the machine off. It does not return on real firmware.
type Shutdown struct{}

// Extension implements Request.Extension.
func (ConsolePutChar) Extension() uint64 { return ExtLegacyPutChar }

// Extension implements Request.Extension.
func (ConsoleGetChar) Extension() uint64 { return ExtLegacyGetChar }

// Extension implements Request.Extension.
func (Base) Extension() uint64 { return ExtBase }

// Extension implements Request.Extension.
func (SetTimer) Extension() uint64 { return ExtTimer }

// Extension implements Request.Extension.
func (SendIPI) Extension() uint64 { return ExtIPI }

// Extension implements Request.Extension.
func (Shutdown) Extension() uint64 { return ExtSystemReset }

// Legacy implements Request.Legacy.
func (ConsolePutChar) Legacy() bool { return true }

// Legacy implements Request.Legacy.
func (ConsoleGetChar) Legacy() bool { return true }

// Legacy implements Request.Legacy.
func (Base) Legacy() bool { return false }

// Legacy implements Request.Legacy.
func (SetTimer) Legacy() bool { return false }

// Legacy implements Request.Legacy.
func (SendIPI) Legacy() bool { return false }

// Legacy implements Request.Legacy.
func (Shutdown) Legacy() bool { return false }

func (ConsolePutChar) isRequest() {}
func (ConsoleGetChar) isRequest() {}
func (Base) isRequest()           {}
func (SetTimer) isRequest()       {}
func (SendIPI) isRequest()        {}
func (Shutdown) isRequest()       {}

func (r ConsolePutChar) String() string { return fmt.Sprintf("ConsolePutChar{ch: %#x}", r.Char) }
func (ConsoleGetChar) String() string   { return "ConsoleGetChar" }
func (r SetTimer) String() string       { return fmt.Sprintf("SetTimer{stime_value: %d}", r.Deadline) }
func (r SendIPI) String() string        { return fmt.Sprintf("SendIpi{hart_mask: %#x}", r.HartMask) }
func (Shutdown) String() string         { return "Shutdown" }

func (r Base) String() string {
	if r.Function == ProbeExtension {
		return fmt.Sprintf("Base(ProbeExtension{extension_id: %#x})", r.Probe)
	}
	return fmt.Sprintf("Base(%v)", r.Function)
}
