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

// Package hart defines the capabilities the supervisor needs from the
// processor it runs on. Real hardware implements them with csrr/csrw and
// ecall; the simulator in package sim implements them on the host.
package hart

import (
	"rvkernel.dev/rvkernel/pkg/riscv"
	"rvkernel.dev/rvkernel/pkg/sbi"
)

// CSRFile reads and writes named control and status registers.
type CSRFile interface {
	// ReadCSR returns the value of csr.
	ReadCSR(csr riscv.CSR) uint64

	// WriteCSR sets csr to v.
	WriteCSR(csr riscv.CSR, v uint64)
}

// Entry is a trap vector entry point. It is called with the register file
// saved by the entry stub; the stub restores it when Entry returns.
type Entry func(regs *riscv.Registers)

// VectorInstaller binds the code at a trap vector address. On hardware the
// linker does this; writing the address to stvec is still the caller's job.
type VectorInstaller interface {
	InstallVector(base uint64, entry Entry)
}

// Parker stops a hart for good.
type Parker interface {
	// Park never returns control to the trapped code. On hardware it masks
	// interrupts and waits in wfi forever.
	Park()
}

// Supervisor is the part of a hart the trap dispatcher drives.
type Supervisor interface {
	CSRFile
	Parker
}

// Platform is everything the kernel needs from a hart.
type Platform interface {
	Supervisor
	sbi.Caller
	VectorInstaller

	// Width returns the machine word width.
	Width() riscv.Width
}
