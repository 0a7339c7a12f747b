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
	"math/rand"
	"testing"
)

const interruptBit = uint64(1) << 63

func TestClassifyInterrupts(t *testing.T) {
	for code := uint64(0); code < 64; code++ {
		e := Classify(Cause(interruptBit | code))
		if !e.IsInterrupt() {
			t.Fatalf("Classify(%#x).IsInterrupt() = false", interruptBit|code)
		}
		if e.Code() != code {
			t.Errorf("Classify(%#x).Code() = %d, want %d", interruptBit|code, e.Code(), code)
		}
		var want Kind
		switch {
		case code == 1 || code == 5 || code == 9:
			want = KindInterrupt
		case code <= 15:
			want = KindReserved
		default:
			want = KindPlatform
		}
		if got := e.Kind(); got != want {
			t.Errorf("Classify(interrupt %d).Kind() = %v, want %v", code, got, want)
		}
	}
}

func TestClassifyNamedInterrupts(t *testing.T) {
	for code, want := range map[uint64]Interrupt{
		1: SupervisorSoftware,
		5: SupervisorTimer,
		9: SupervisorExternal,
	} {
		got, ok := Classify(Cause(interruptBit | code)).Interrupt()
		if !ok || got != want {
			t.Errorf("Classify(interrupt %d).Interrupt() = %v, %t; want %v, true", code, got, ok, want)
		}
	}
}

func TestClassifySync(t *testing.T) {
	faults := map[uint64]Fault{
		0:  InstructionAddressMisaligned,
		1:  InstructionAccessFault,
		2:  IllegalInstruction,
		4:  LoadAddressMisaligned,
		5:  LoadAccessFault,
		6:  StoreAMOAddressMisaligned,
		7:  StoreAMOAccessFault,
		12: InstructionPageFault,
		13: LoadPageFault,
		15: StoreAMOPageFault,
	}
	traps := map[uint64]Trap{
		3: Breakpoint,
		8: EcallFromUser,
		9: EcallFromSupervisor,
	}
	for code := uint64(0); code < 128; code++ {
		e := Classify(Cause(code))
		if e.IsInterrupt() {
			t.Fatalf("Classify(%d).IsInterrupt() = true", code)
		}
		if f, ok := faults[code]; ok {
			if got, isFault := e.Fault(); !isFault || got != f {
				t.Errorf("Classify(%d).Fault() = %v, %t; want %v, true", code, got, isFault, f)
			}
			continue
		}
		if tr, ok := traps[code]; ok {
			if got, isTrap := e.Trap(); !isTrap || got != tr {
				t.Errorf("Classify(%d).Trap() = %v, %t; want %v, true", code, got, isTrap, tr)
			}
			continue
		}
		want := KindReserved
		if (code >= 24 && code <= 31) || (code >= 48 && code <= 63) {
			want = KindPlatform
		}
		if got := e.Kind(); got != want {
			t.Errorf("Classify(%d).Kind() = %v, want %v", code, got, want)
		}
	}
}

func TestClassifyKnownCauses(t *testing.T) {
	if got, ok := Classify(Cause(interruptBit | 5)).Interrupt(); !ok || got != SupervisorTimer {
		t.Errorf("top bit set, code 5: got %v, %t; want SupervisorTimer", got, ok)
	}
	if got, ok := Classify(13).Fault(); !ok || got != LoadPageFault {
		t.Errorf("top bit clear, code 13: got %v, %t; want LoadPageFault", got, ok)
	}
	if got := Classify(Cause(interruptBit | 1<<40)).Kind(); got != KindPlatform {
		t.Errorf("large interrupt code: got %v, want platform", got)
	}
	if got := Classify(Cause(1 << 40)).Kind(); got != KindReserved {
		t.Errorf("large sync code: got %v, want reserved", got)
	}
}

func TestClassifyTotalAndDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		raw := Cause(r.Uint64())
		a, b := Classify(raw), Classify(raw)
		if a != b {
			t.Fatalf("Classify(%#x) not deterministic: %v vs %v", uint64(raw), a, b)
		}
		if a.Kind() < KindFault || a.Kind() > KindPlatform {
			t.Fatalf("Classify(%#x) has unknown kind %v", uint64(raw), a.Kind())
		}
		if got := a.Cause(Width64); got != raw {
			t.Fatalf("Classify(%#x).Cause() = %#x", uint64(raw), uint64(got))
		}
	}
}

func TestClassifyWidth32(t *testing.T) {
	if got, ok := Width32.Classify(0x8000_0005).Interrupt(); !ok || got != SupervisorTimer {
		t.Errorf("RV32 timer: got %v, %t", got, ok)
	}
	// Bit 31 is a code bit on RV64.
	if got := Width64.Classify(0x8000_0005).Kind(); got != KindReserved {
		t.Errorf("RV64 0x80000005: got %v, want reserved", got)
	}
	// Bits above XLEN are ignored.
	if got, ok := Width32.Classify(0xffff_ffff_0000_0008).Trap(); !ok || got != EcallFromUser {
		t.Errorf("RV32 truncation: got %v, %t", got, ok)
	}
}

func TestExceptionString(t *testing.T) {
	for _, tc := range []struct {
		raw  Cause
		want string
	}{
		{Cause(interruptBit | 5), "Interrupt(SupervisorTimer)"},
		{Cause(interruptBit | 2), "Interrupt(Reserved{code: 2})"},
		{Cause(interruptBit | 16), "Interrupt(Platform{code: 16})"},
		{3, "Sync(Trap(Breakpoint))"},
		{13, "Sync(Fault(LoadPageFault))"},
		{30, "Sync(Platform{code: 30})"},
		{10, "Sync(Reserved{code: 10})"},
	} {
		if got := Classify(tc.raw).String(); got != tc.want {
			t.Errorf("Classify(%#x).String() = %q, want %q", uint64(tc.raw), got, tc.want)
		}
	}
}

func TestInterrupts(t *testing.T) {
	if got, want := InterruptMask, uint64(0x222); got != want {
		t.Errorf("InterruptMask = %#x, want %#x", got, want)
	}
	got := Interrupts(0xffff)
	want := []Interrupt{SupervisorSoftware, SupervisorTimer, SupervisorExternal}
	if len(got) != len(want) {
		t.Fatalf("Interrupts(0xffff) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Interrupts(0xffff)[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if got := Interrupts(0x1dd); len(got) != 0 {
		t.Errorf("Interrupts(0x1dd) = %v, want none", got)
	}
}
