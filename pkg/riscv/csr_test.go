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
	"bytes"
	"strings"
	"testing"
)

func TestStatus(t *testing.T) {
	s := Status(0).WithSIE(true).WithSPIE(true).WithSPP(Supervisor)
	if got, want := uint64(s), uint64(0x122); got != want {
		t.Fatalf("status = %#x, want %#x", got, want)
	}
	if !s.SIE() || !s.SPIE() || s.UBE() || s.SPP() != Supervisor {
		t.Errorf("accessors disagree with %v", s)
	}
	s = s.WithSIE(false).WithSPP(User)
	if s.SIE() || s.SPP() != User || !s.SPIE() {
		t.Errorf("clearing bits: got %v", s)
	}
}

func TestInterruptBit(t *testing.T) {
	if got := SupervisorTimer.Bit(); got != 0x20 {
		t.Errorf("SupervisorTimer.Bit() = %#x, want 0x20", got)
	}
	if got := SupervisorExternal.Bit() | SupervisorSoftware.Bit(); got != 0x202 {
		t.Errorf("external|software = %#x, want 0x202", got)
	}
}

func TestCSRString(t *testing.T) {
	if got := Sepc.String(); got != "sepc" {
		t.Errorf("Sepc.String() = %q", got)
	}
	if got := CSR(0x300).String(); got != "csr0x300" {
		t.Errorf("CSR(0x300).String() = %q", got)
	}
}

func TestRegistersDump(t *testing.T) {
	var r Registers
	r.X[A0] = 0x41
	var buf bytes.Buffer
	r.DumpTo(&buf)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != NumRegisters/2 {
		t.Fatalf("got %d lines, want %d", len(lines), NumRegisters/2)
	}
	if !strings.Contains(lines[A0/2], "a0   =               41") {
		t.Errorf("a0 line = %q", lines[A0/2])
	}
}

func TestWidth(t *testing.T) {
	if got := Width32.Word(-3); got != 0xfffffffd {
		t.Errorf("Width32.Word(-3) = %#x", got)
	}
	if got := Width64.Signed(Width64.Word(-8)); got != -8 {
		t.Errorf("Width64 round trip = %d", got)
	}
	if got := Width32.Signed(0xfffffff8); got != -8 {
		t.Errorf("Width32.Signed = %d", got)
	}
	if Width(16).Valid() {
		t.Errorf("Width(16).Valid() = true")
	}
}
