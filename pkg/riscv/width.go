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

// Package riscv describes the parts of the RISC-V privileged architecture
// the supervisor trap layer depends on: machine word width, trap causes,
// supervisor CSRs and the general purpose register file.
package riscv

import (
	"fmt"

	"rvkernel.dev/rvkernel/pkg/bits"
)

// Width is the machine word width (XLEN) in bits.
type Width int

// Supported widths.
const (
	Width32 Width = 32
	Width64 Width = 64
)

// Valid returns true if w is a supported width.
func (w Width) Valid() bool {
	return w == Width32 || w == Width64
}

// Mask returns the mask of meaningful bits in a register of this width.
func (w Width) Mask() uint64 {
	return bits.LowMask64(int(w))
}

// TopBit returns the mask of the most significant bit of a word.
func (w Width) TopBit() uint64 {
	return bits.MaskOf64(int(w) - 1)
}

// Truncate discards the bits of v that do not fit in a word.
func (w Width) Truncate(v uint64) uint64 {
	return v & w.Mask()
}

// Signed interprets v as a two's complement word.
func (w Width) Signed(v uint64) int64 {
	return bits.SignExtend64(v, int(w))
}

// Word returns the word encoding of the signed value v.
func (w Width) Word(v int64) uint64 {
	return w.Truncate(uint64(v))
}

// String implements fmt.Stringer.
func (w Width) String() string {
	return fmt.Sprintf("RV%d", int(w))
}
