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

package sim

import (
	"io"
)

// Input is a source of console input. Poll must not block.
type Input interface {
	// Poll returns the next input byte, if one is available.
	Poll() (byte, bool)
}

// ByteInput polls an in-memory reader. Reads never block; an exhausted or
// failing reader has no input.
type ByteInput struct {
	R io.ByteReader
}

// Poll implements Input.Poll.
func (b ByteInput) Poll() (byte, bool) {
	ch, err := b.R.ReadByte()
	if err != nil {
		return 0, false
	}
	return ch, true
}

// PumpInput reads a blocking reader, such as a terminal, from a background
// goroutine.
type PumpInput struct {
	ch   chan byte
	done chan struct{}
	err  error
}

// Pump starts copying r into a buffered PumpInput. The goroutine exits when
// r returns an error.
func Pump(r io.Reader) *PumpInput {
	p := &PumpInput{
		ch:   make(chan byte, 256),
		done: make(chan struct{}),
	}
	go p.run(r)
	return p
}

func (p *PumpInput) run(r io.Reader) {
	defer close(p.done)
	var buf [64]byte
	for {
		n, err := r.Read(buf[:])
		for _, b := range buf[:n] {
			p.ch <- b
		}
		if err != nil {
			if err != io.EOF {
				p.err = err
			}
			return
		}
	}
}

// Poll implements Input.Poll.
func (p *PumpInput) Poll() (byte, bool) {
	select {
	case b := <-p.ch:
		return b, true
	default:
		return 0, false
	}
}

// Done is closed when the reader is exhausted.
func (p *PumpInput) Done() <-chan struct{} {
	return p.done
}

// Err returns the error that stopped the reader. It may only be called after
// Done is closed.
func (p *PumpInput) Err() error {
	return p.err
}
