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
	"io"
)

// ABI names of the registers used by the calling conventions.
const (
	Zero = 0
	RA   = 1
	SP   = 2
	A0   = 10
	A1   = 11
	A6   = 16
	A7   = 17
)

// NumRegisters is the number of general purpose registers.
const NumRegisters = 32

// Registers is the general purpose register file saved by the trap entry
// stub, indexed by architectural register number.
type Registers struct {
	X [NumRegisters]uint64
}

var abiNames = [NumRegisters]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegisterName returns the ABI name of register i.
func RegisterName(i int) string {
	if i < 0 || i >= NumRegisters {
		return fmt.Sprintf("x%d", i)
	}
	return abiNames[i]
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	for i := 0; i < NumRegisters; i += 2 {
		fmt.Fprintf(w, "%-4s = %16x %-4s = %16x\n",
			abiNames[i], r.X[i], abiNames[i+1], r.X[i+1])
	}
}
