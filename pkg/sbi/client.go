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

// Client issues typed firmware calls through a Caller.
type Client struct {
	Codec

	// Caller executes the call instruction.
	Caller Caller
}

// NewClient returns a client for a machine of width w.
func NewClient(c Caller, w riscv.Width) *Client {
	return &Client{Codec: Codec{Width: w}, Caller: c}
}

// Call issues r and returns its value.
//
// Legacy calls have no error register: the value of a0 is returned as is and
// err is always nil. Standard calls return a1 when a0 is zero, one of the
// named errors when a0 holds -1 through -8, and a *ProtocolViolation for any
// other code. Callers must treat a *ProtocolViolation as fatal.
func (c *Client) Call(r Request) (uint64, error) {
	a0, a1 := c.Caller.Ecall(c.Encode(r))
	if r.Legacy() {
		return c.Width.Truncate(a0), nil
	}
	code := c.Width.Signed(a0)
	named, ok := ErrorFromCode(code)
	if !ok {
		return 0, &ProtocolViolation{Request: r, Code: code}
	}
	if named != nil {
		return 0, named
	}
	return c.Width.Truncate(a1), nil
}

// ConsolePutChar writes ch to the firmware console.
func (c *Client) ConsolePutChar(ch byte) error {
	v, _ := c.Call(ConsolePutChar{Char: ch})
	if v != 0 {
		return fmt.Errorf("console_putchar(%#x) returned %d: %w", ch, c.Width.Signed(v), ErrFailed)
	}
	return nil
}

// ConsoleGetChar reads a byte from the firmware console. ok is false when no
// input is pending.
func (c *Client) ConsoleGetChar() (ch byte, ok bool) {
	v, _ := c.Call(ConsoleGetChar{})
	if c.Width.Signed(v) < 0 {
		return 0, false
	}
	return byte(v), true
}

// SetTimer programs the next timer event.
func (c *Client) SetTimer(deadline uint64) error {
	_, err := c.Call(SetTimer{Deadline: deadline})
	return err
}

// SendIPI sends a software interrupt to the harts in mask.
func (c *Client) SendIPI(mask uint64) error {
	_, err := c.Call(SendIPI{HartMask: mask})
	return err
}

// Shutdown asks the firmware to power the machine off. On hardware it does
// not return; a returned error means the firmware refused.
func (c *Client) Shutdown() error {
	_, err := c.Call(Shutdown{})
	return err
}

func (c *Client) base(fn BaseFunction, probe uint64) (uint64, error) {
	return c.Call(Base{Function: fn, Probe: probe})
}

// SpecVersion returns the SBI specification version.
func (c *Client) SpecVersion() (uint64, error) { return c.base(GetSpecVersion, 0) }

// ImplID returns the firmware implementation id.
func (c *Client) ImplID() (uint64, error) { return c.base(GetImplID, 0) }

// ImplVersion returns the firmware implementation version.
func (c *Client) ImplVersion() (uint64, error) { return c.base(GetImplVersion, 0) }

// ProbeExtension reports whether the firmware implements extension ext.
func (c *Client) ProbeExtension(ext uint64) (bool, error) {
	v, err := c.base(ProbeExtension, ext)
	return v != 0, err
}

// MVendorID returns the value of mvendorid.
func (c *Client) MVendorID() (uint64, error) { return c.base(GetMVendorID, 0) }

// MArchID returns the value of marchid.
func (c *Client) MArchID() (uint64, error) { return c.base(GetMArchID, 0) }

// MImpID returns the value of mimpid.
func (c *Client) MImpID() (uint64, error) { return c.base(GetMImpID, 0) }
