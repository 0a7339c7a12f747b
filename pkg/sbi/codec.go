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
	"fmt"

	"rvkernel.dev/rvkernel/pkg/riscv"
)

// Codec encodes requests to, and decodes them from, the register tuple of a
// machine with the given word width.
type Codec struct {
	Width riscv.Width
}

// Encode returns the register tuple for r. Registers the convention does not
// use are zero, so the result is canonical.
func (c Codec) Encode(r Request) Registers {
	switch r := r.(type) {
	case ConsolePutChar:
		return Registers{A0: uint64(r.Char), A7: ExtLegacyPutChar}
	case ConsoleGetChar:
		return Registers{A7: ExtLegacyGetChar}
	case Base:
		return Registers{A0: c.Width.Truncate(r.Probe), A6: uint64(r.Function), A7: ExtBase}
	case SetTimer:
		regs := Registers{A6: fidSetTimer, A7: ExtTimer}
		if c.Width == riscv.Width32 {
			// The deadline does not fit in one register.
			regs.A0 = r.Deadline & 0xffff_ffff
			regs.A1 = r.Deadline >> 32
		} else {
			regs.A0 = r.Deadline
		}
		return regs
	case SendIPI:
		// a1 is hart_mask_base; zero addresses harts from 0.
		return Registers{A0: c.Width.Truncate(r.HartMask), A6: fidSendIPI, A7: ExtIPI}
	case Shutdown:
		return Registers{A0: resetTypeShutdown, A1: resetReasonNoReason, A6: fidSystemReset, A7: ExtSystemReset}
	default:
		panic(fmt.Sprintf("unknown SBI request type %T", r))
	}
}

// Decode returns the request held in a register tuple, matching first on the
// extension id (a7) and then on the function id (a6). Registers a convention
// does not use are ignored. An unknown extension or function yields
// ErrNotSupported.
func (c Codec) Decode(regs Registers) (Request, error) {
	switch c.Width.Truncate(regs.A7) {
	case ExtLegacyPutChar:
		return ConsolePutChar{Char: byte(regs.A0)}, nil
	case ExtLegacyGetChar:
		return ConsoleGetChar{}, nil
	case ExtBase:
		fn := BaseFunction(c.Width.Truncate(regs.A6))
		if !fn.Valid() {
			return nil, ErrNotSupported
		}
		r := Base{Function: fn}
		if fn == ProbeExtension {
			r.Probe = c.Width.Truncate(regs.A0)
		}
		return r, nil
	case ExtTimer:
		if c.Width.Truncate(regs.A6) != fidSetTimer {
			return nil, ErrNotSupported
		}
		if c.Width == riscv.Width32 {
			return SetTimer{Deadline: (regs.A1&0xffff_ffff)<<32 | regs.A0&0xffff_ffff}, nil
		}
		return SetTimer{Deadline: regs.A0}, nil
	case ExtIPI:
		if c.Width.Truncate(regs.A6) != fidSendIPI {
			return nil, ErrNotSupported
		}
		return SendIPI{HartMask: c.Width.Truncate(regs.A0)}, nil
	case ExtSystemReset:
		if c.Width.Truncate(regs.A6) != fidSystemReset {
			return nil, ErrNotSupported
		}
		// Only the shutdown reset type is modelled.
		if c.Width.Truncate(regs.A0) != resetTypeShutdown {
			return nil, ErrInvalidParam
		}
		return Shutdown{}, nil
	default:
		return nil, ErrNotSupported
	}
}
