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

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"rvkernel.dev/rvkernel/pkg/riscv"
)

// fakeCaller records calls and returns canned registers.
type fakeCaller struct {
	calls  []Registers
	a0, a1 uint64
}

func (f *fakeCaller) Ecall(in Registers) (uint64, uint64) {
	f.calls = append(f.calls, in)
	return f.a0, f.a1
}

func TestCallSuccess(t *testing.T) {
	f := &fakeCaller{a1: 0x0100_0000}
	c := NewClient(f, riscv.Width64)
	v, err := c.SpecVersion()
	if err != nil {
		t.Fatalf("SpecVersion failed: %v", err)
	}
	if v != 0x0100_0000 {
		t.Errorf("SpecVersion = %#x, want 0x1000000", v)
	}
	want := []Registers{{A6: uint64(GetSpecVersion), A7: ExtBase}}
	if diff := cmp.Diff(want, f.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestCallNamedErrors(t *testing.T) {
	for code := int64(-1); code >= -8; code-- {
		for _, w := range []riscv.Width{riscv.Width32, riscv.Width64} {
			f := &fakeCaller{a0: w.Word(code), a1: 99}
			_, err := NewClient(f, w).Call(SendIPI{HartMask: 1})
			named, ok := ErrorFromCode(code)
			if !ok || err != named {
				t.Errorf("%v code %d: err = %v, want %v", w, code, err, named)
			}
			if got, ok := ErrorCode(err); !ok || got != code {
				t.Errorf("%v ErrorCode(%v) = %d, %t; want %d", w, err, got, ok, code)
			}
		}
	}
}

func TestInvalidParam(t *testing.T) {
	f := &fakeCaller{a0: riscv.Width64.Word(-3)}
	err := NewClient(f, riscv.Width64).SetTimer(1)
	if err != ErrInvalidParam {
		t.Errorf("SetTimer error = %v, want %v", err, ErrInvalidParam)
	}
}

func TestCallProtocolViolation(t *testing.T) {
	for _, code := range []int64{-9, -100, 1, 42} {
		f := &fakeCaller{a0: riscv.Width64.Word(code)}
		_, err := NewClient(f, riscv.Width64).Call(Shutdown{})
		var pv *ProtocolViolation
		if !errors.As(err, &pv) {
			t.Fatalf("code %d: err = %v, want *ProtocolViolation", code, err)
		}
		if pv.Code != code {
			t.Errorf("ProtocolViolation.Code = %d, want %d", pv.Code, code)
		}
		if _, ok := ErrorCode(err); ok {
			t.Errorf("ErrorCode(%v) reported a named error", err)
		}
	}
}

func TestLegacyCalls(t *testing.T) {
	f := &fakeCaller{a0: 0, a1: 0xffff}
	c := NewClient(f, riscv.Width64)
	if err := c.ConsolePutChar('A'); err != nil {
		t.Fatalf("ConsolePutChar failed: %v", err)
	}
	if diff := cmp.Diff([]Registers{{A0: 'A', A7: ExtLegacyPutChar}}, f.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	// A nonzero legacy result is not mapped through the error table.
	f.a0 = riscv.Width64.Word(-9)
	v, err := c.Call(ConsolePutChar{Char: 'B'})
	if err != nil {
		t.Fatalf("legacy Call returned error %v", err)
	}
	if got := riscv.Width64.Signed(v); got != -9 {
		t.Errorf("legacy value = %d, want -9", got)
	}
	if err := c.ConsolePutChar('B'); !errors.Is(err, ErrFailed) {
		t.Errorf("ConsolePutChar error = %v, want wrapped %v", err, ErrFailed)
	}
}

func TestConsoleGetChar(t *testing.T) {
	f := &fakeCaller{a0: riscv.Width32.Word(-1)}
	c := NewClient(f, riscv.Width32)
	if _, ok := c.ConsoleGetChar(); ok {
		t.Errorf("ConsoleGetChar reported input on -1")
	}
	f.a0 = 'q'
	if ch, ok := c.ConsoleGetChar(); !ok || ch != 'q' {
		t.Errorf("ConsoleGetChar = %q, %t; want 'q', true", ch, ok)
	}
}

func TestProbeExtension(t *testing.T) {
	f := &fakeCaller{a1: 1}
	ok, err := NewClient(f, riscv.Width64).ProbeExtension(ExtTimer)
	if err != nil || !ok {
		t.Fatalf("ProbeExtension = %t, %v", ok, err)
	}
	if got := f.calls[0].A0; got != ExtTimer {
		t.Errorf("probe argument = %#x, want %#x", got, ExtTimer)
	}
}
