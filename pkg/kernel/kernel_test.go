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

package kernel

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"rvkernel.dev/rvkernel/pkg/riscv"
	"rvkernel.dev/rvkernel/pkg/sbi"
	"rvkernel.dev/rvkernel/pkg/sim"
	"rvkernel.dev/rvkernel/pkg/trap"
)

type bootedMachine struct {
	m   *sim.Machine
	k   *Kernel
	out *bytes.Buffer
}

func boot(t *testing.T, w riscv.Width, opts Options) *bootedMachine {
	t.Helper()
	var out bytes.Buffer
	m := sim.New(sim.Config{Width: w, Console: &out})
	k := New(m, opts)
	if err := k.Boot(); err != nil {
		t.Fatalf("Boot() = %v", err)
	}
	return &bootedMachine{m: m, k: k, out: &out}
}

func TestBoot(t *testing.T) {
	b := boot(t, riscv.Width64, Options{})
	if !strings.Contains(b.out.String(), Banner) {
		t.Errorf("console %q lacks the banner", b.out.String())
	}
	if got := b.m.ReadCSR(riscv.Stvec); got != riscv.VectorBase {
		t.Errorf("stvec = %#x, want %#x", got, riscv.VectorBase)
	}
	if got := b.m.ReadCSR(riscv.Sie); got != riscv.SupervisorTimer.Bit() {
		t.Errorf("sie = %#x, want %#x", got, riscv.SupervisorTimer.Bit())
	}
	if !riscv.Status(b.m.ReadCSR(riscv.Sstatus)).SIE() {
		t.Errorf("sstatus.SIE not set after boot")
	}
	if d, armed := b.m.Firmware().Deadline(); !armed || d != 0 {
		t.Errorf("timer deadline = %d, %v, want 0, true", d, armed)
	}
	if got := b.k.Dispatcher().State(); got != trap.Idle {
		t.Errorf("dispatcher state = %v, want Idle", got)
	}
}

func TestTimerTicks(t *testing.T) {
	for _, w := range []riscv.Width{riscv.Width32, riscv.Width64} {
		t.Run(w.String(), func(t *testing.T) {
			const delta = 1000
			b := boot(t, w, Options{Trap: trap.Options{TimerDelta: delta}})
			b.out.Reset()

			n, err := b.m.Tick(3*delta + 1)
			if err != nil {
				t.Fatalf("Tick() = %v", err)
			}
			// Due at 0, then every delta.
			if n != 4 {
				t.Errorf("Tick() took %d interrupts, want 4", n)
			}
			if got := b.k.Dispatcher().Ticks(); got != 4 {
				t.Errorf("Ticks() = %d, want 4", got)
			}
			if got := b.out.String(); got != "...." {
				t.Errorf("console = %q, want %q", got, "....")
			}

			codec := sbi.Codec{Width: w}
			for i, ev := range b.m.Trace() {
				want := []sbi.Registers{codec.Encode(sbi.SetTimer{Deadline: ev.Time + delta})}
				// The dot is printed through the firmware console first.
				if diff := cmp.Diff(want, ev.Calls[1:]); diff != "" {
					t.Errorf("event %d calls mismatch (-want +got):\n%s", i, diff)
				}
			}
			if got := b.k.Dispatcher().State(); got != trap.Resumed {
				t.Errorf("dispatcher state = %v, want Resumed", got)
			}
		})
	}
}

func TestLongTimerDelta(t *testing.T) {
	b := boot(t, riscv.Width64, Options{})
	if n, _ := b.m.Tick(trap.TimerDelta - 1); n != 1 {
		t.Errorf("took %d interrupts before the second deadline, want 1", n)
	}
	if n, _ := b.m.Tick(1); n != 1 {
		t.Errorf("took %d interrupts at the second deadline, want 1", n)
	}
}

func TestBreakpoint(t *testing.T) {
	b := boot(t, riscv.Width64, Options{FirstDeadline: ^uint64(0)})
	b.m.SetPC(0x8020_2000)
	if err := b.m.Breakpoint(); err != nil {
		t.Fatalf("Breakpoint() = %v", err)
	}
	if got := b.m.PC(); got != 0x8020_2002 {
		t.Errorf("pc = %#x, want 0x80202002", got)
	}
	if got := b.k.Dispatcher().State(); got != trap.Resumed {
		t.Errorf("dispatcher state = %v, want Resumed", got)
	}
}

func TestUserConsolePutChar(t *testing.T) {
	b := boot(t, riscv.Width64, Options{FirstDeadline: ^uint64(0)})
	b.out.Reset()
	b.m.EnterUser(0x1_0000)
	before := *b.m.Registers()

	a0, a1, err := b.m.UserEcall(sbi.Registers{A0: 'A', A1: 0x77, A7: sbi.ExtLegacyPutChar})
	if err != nil {
		t.Fatalf("UserEcall() = %v", err)
	}
	if a0 != 0 || a1 != 0x77 {
		t.Errorf("UserEcall() = (%#x, %#x), want (0, 0x77)", a0, a1)
	}
	if got := b.out.String(); got != "A" {
		t.Errorf("console = %q, want %q", got, "A")
	}
	after := *b.m.Registers()
	before.X[riscv.A0] = 0
	before.X[riscv.A1] = 0x77
	before.X[riscv.A7] = sbi.ExtLegacyPutChar
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("registers mismatch (-want +got):\n%s", diff)
	}
	if b.m.PC() != 0x1_0004 || b.m.Mode() != riscv.User {
		t.Errorf("resumed in %v mode at %#x, want user at 0x10004", b.m.Mode(), b.m.PC())
	}
}

func TestUserStandardCalls(t *testing.T) {
	b := boot(t, riscv.Width64, Options{FirstDeadline: ^uint64(0)})
	b.m.EnterUser(0x1_0000)

	a0, a1, err := b.m.UserEcall(sbi.Registers{A6: uint64(sbi.GetSpecVersion), A7: sbi.ExtBase})
	if err != nil || a0 != 0 || a1 != sim.DefaultIdentity.SpecVersion {
		t.Errorf("spec version = (%#x, %#x, %v), want (0, %#x, nil)", a0, a1, err, sim.DefaultIdentity.SpecVersion)
	}

	a0, _, err = b.m.UserEcall(sbi.Registers{A7: 0x4a4f4b45})
	if err != nil || riscv.Width64.Signed(a0) != -2 {
		t.Errorf("unknown extension a0 = %d, %v, want -2", riscv.Width64.Signed(a0), err)
	}

	b.m.Firmware().FailNext(-3)
	a0, a1, err = b.m.UserEcall(sbi.Registers{A0: 1, A1: 0x55, A6: 0, A7: sbi.ExtIPI})
	if err != nil || riscv.Width64.Signed(a0) != -3 || a1 != 0x55 {
		t.Errorf("failed IPI = (%d, %#x, %v), want (-3, 0x55, nil)", riscv.Width64.Signed(a0), a1, err)
	}
	if b.m.Halted() {
		t.Errorf("machine halted on a named error")
	}
}

func TestFaultHalts(t *testing.T) {
	for _, f := range riscv.Faults {
		t.Run(f.String(), func(t *testing.T) {
			b := boot(t, riscv.Width64, Options{})
			if err := b.m.Fault(f, 0xbad); err != nil {
				t.Fatalf("Fault() = %v", err)
			}
			if !b.m.Halted() {
				t.Errorf("machine still running after %v", f)
			}
			if got := b.k.Dispatcher().State(); got != trap.Halted {
				t.Errorf("dispatcher state = %v, want Halted", got)
			}
			if !strings.Contains(b.out.String(), "Kernel panic") {
				t.Errorf("console %q lacks a panic report", b.out.String())
			}
			if _, err := b.m.Tick(1); !errors.Is(err, sim.ErrHalted) {
				t.Errorf("Tick() after halt = %v, want %v", err, sim.ErrHalted)
			}
		})
	}
}

func TestRefusedShutdownDoesNotResume(t *testing.T) {
	b := boot(t, riscv.Width64, Options{})
	b.m.SetPC(0x8020_3000)
	b.m.Firmware().FailNextOf(sbi.ExtSystemReset, -1)
	if err := b.m.Fault(riscv.LoadPageFault, 0xdead); err != nil {
		t.Fatalf("Fault() = %v", err)
	}
	if got := b.k.Dispatcher().State(); got != trap.Halted {
		t.Errorf("dispatcher state = %v, want Halted", got)
	}
	if !b.m.Parked() || !b.m.Halted() {
		t.Errorf("Parked() = %v, Halted() = %v, want both true", b.m.Parked(), b.m.Halted())
	}
	if got := b.m.PC(); got == 0x8020_3000 {
		t.Errorf("pc = %#x, resumed at the faulting instruction", got)
	}
	if got := b.m.Mode(); got != riscv.Supervisor {
		t.Errorf("mode = %v, want %v", got, riscv.Supervisor)
	}
	if err := b.m.Breakpoint(); !errors.Is(err, sim.ErrHalted) {
		t.Errorf("Breakpoint() after park = %v, want %v", err, sim.ErrHalted)
	}
}

func TestTimerFailureHalts(t *testing.T) {
	b := boot(t, riscv.Width64, Options{})
	b.m.Firmware().FailNextOf(sbi.ExtTimer, -1)
	if _, err := b.m.Tick(0); err != nil {
		t.Fatalf("Tick() = %v", err)
	}
	if !b.m.Halted() {
		t.Errorf("machine still running after failed re-arm")
	}
	if err := b.k.Dispatcher().Err(); !errors.Is(err, trap.ErrTimer) || !errors.Is(err, sbi.ErrFailed) {
		t.Errorf("Err() = %v, want %v wrapping %v", err, trap.ErrTimer, sbi.ErrFailed)
	}
	if got := b.m.ReadCSR(riscv.Sie); got&riscv.SupervisorTimer.Bit() != 0 {
		t.Errorf("sie = %#x, timer still enabled", got)
	}
}

func TestProtocolViolationHalts(t *testing.T) {
	b := boot(t, riscv.Width64, Options{FirstDeadline: ^uint64(0)})
	b.m.EnterUser(0x1_0000)
	b.m.Firmware().FailNext(-9)

	if _, _, err := b.m.UserEcall(sbi.Registers{A6: uint64(sbi.GetImplID), A7: sbi.ExtBase}); err != nil {
		t.Fatalf("UserEcall() = %v", err)
	}
	if !b.m.Halted() {
		t.Errorf("machine still running after protocol violation")
	}
	if !errors.Is(b.k.Dispatcher().Err(), trap.ErrProtocol) {
		t.Errorf("Err() = %v, want %v", b.k.Dispatcher().Err(), trap.ErrProtocol)
	}
}

func TestBootFirmwareErrors(t *testing.T) {
	for _, tc := range []struct {
		name      string
		ext       uint64
		code      int64
		violation bool
	}{
		{"named error on base", sbi.ExtBase, -2, false},
		{"violation on base", sbi.ExtBase, -9, true},
		{"positive code on base", sbi.ExtBase, 7, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			m := sim.New(sim.Config{Console: &out})
			m.Firmware().FailNextOf(tc.ext, tc.code)
			k := New(m, Options{})
			err := k.Boot()

			if got := errors.As(err, new(*sbi.ProtocolViolation)); got != tc.violation {
				t.Fatalf("Boot() = %v, protocol violation %v, want %v", err, got, tc.violation)
			}
			if m.Halted() != tc.violation {
				t.Errorf("Halted() = %v, want %v", m.Halted(), tc.violation)
			}
			if got := strings.Contains(out.String(), "Kernel panic"); got != tc.violation {
				t.Errorf("console %q: panic report %v, want %v", out.String(), got, tc.violation)
			}
		})
	}
}

func TestSupervisorEcallHalts(t *testing.T) {
	b := boot(t, riscv.Width64, Options{FirstDeadline: ^uint64(0)})
	if err := b.m.Trap(riscv.Cause(riscv.EcallFromSupervisor), 0); err != nil {
		t.Fatalf("Trap() = %v", err)
	}
	if !b.m.Halted() {
		t.Errorf("machine still running after supervisor ecall")
	}
}
