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

package trap

import (
	"fmt"

	"rvkernel.dev/rvkernel/pkg/riscv"
	"rvkernel.dev/rvkernel/pkg/sbi"
)

// forward performs a firmware call on behalf of user code. The call is read
// from a0, a1, a6 and a7 of the saved registers and its result is written
// back the way the firmware would have written it:
//
//	legacy call          a0 = value
//	standard, success    a0 = 0, a1 = value
//	standard, error      a0 = error code
//	undecodable call     a0 = decode error code, or not supported
//
// A firmware return code outside the named errors is fatal.
func (d *Dispatcher) forward(ctx *Context, info Info) *FatalError {
	regs := ctx.Registers()
	call := sbi.Registers{
		A0: regs.X[riscv.A0],
		A1: regs.X[riscv.A1],
		A6: regs.X[riscv.A6],
		A7: regs.X[riscv.A7],
	}

	req, err := d.client.Decode(call)
	if err != nil {
		code, ok := sbi.ErrorCode(err)
		if !ok {
			code, _ = sbi.ErrorCode(sbi.ErrNotSupported)
		}
		d.log.Debugf("Rejected user call %v: %v", call, err)
		regs.X[riscv.A0] = d.width.Word(code)
		return nil
	}

	value, err := d.client.Call(req)
	switch {
	case req.Legacy():
		regs.X[riscv.A0] = value
	case err == nil:
		regs.X[riscv.A0] = 0
		regs.X[riscv.A1] = value
	default:
		code, ok := sbi.ErrorCode(err)
		if !ok {
			return fatal(info, fmt.Errorf("%w: %w", ErrProtocol, err))
		}
		regs.X[riscv.A0] = d.width.Word(code)
	}
	d.log.Debugf("Forwarded user call %v: value %#x, err %v", req, value, err)
	return nil
}
