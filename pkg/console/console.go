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

// Package console provides the kernel's text output path.
//
// Output goes to the firmware console one byte at a time. The sink is shared
// by two writers, one for supervisor code and one for user code, each behind
// its own lock. A trap taken while user code holds its lock must still be
// able to print from the supervisor writer, so the two locks must never be
// merged into one.
package console

import (
	"fmt"
	"io"

	"rvkernel.dev/rvkernel/pkg/sbi"
	"rvkernel.dev/rvkernel/pkg/sync"
)

// Sink is the console output capability: write one byte, report failure.
type Sink interface {
	PutChar(ch byte) error
}

// FirmwareSink writes through the legacy console putchar call.
type FirmwareSink struct {
	Client *sbi.Client
}

// PutChar implements Sink.PutChar.
func (f FirmwareSink) PutChar(ch byte) error {
	return f.Client.ConsolePutChar(ch)
}

// Writer adapts a Sink to io.Writer.
type Writer struct {
	Sink Sink
}

// Write implements io.Writer.Write. It stops at the first byte the sink
// rejects.
func (w Writer) Write(p []byte) (int, error) {
	for i, ch := range p {
		if err := w.Sink.PutChar(ch); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Handle is one independently locked console writer.
type Handle struct {
	name string

	// mu serializes writers of this handle only.
	mu sync.Mutex
	w  Writer
}

// Name returns the handle's owner, "supervisor" or "user".
func (h *Handle) Name() string {
	return h.name
}

// Acquire locks the handle and returns a writer that is valid until release
// is called.
func (h *Handle) Acquire() (w io.Writer, release func()) {
	h.mu.Lock()
	return h.w, h.mu.Unlock
}

// TryAcquire is like Acquire but fails instead of blocking.
func (h *Handle) TryAcquire() (w io.Writer, release func(), ok bool) {
	if !h.mu.TryLock() {
		return nil, nil, false
	}
	return h.w, h.mu.Unlock, true
}

// Write implements io.Writer.Write, holding the lock for the whole of p.
func (h *Handle) Write(p []byte) (int, error) {
	w, release := h.Acquire()
	defer release()
	return w.Write(p)
}

// Printf formats and writes a message atomically with respect to other
// writers of the same handle.
func (h *Handle) Printf(format string, args ...any) error {
	w, release := h.Acquire()
	defer release()
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

// Println writes args followed by a newline.
func (h *Handle) Println(args ...any) error {
	w, release := h.Acquire()
	defer release()
	_, err := fmt.Fprintln(w, args...)
	return err
}

// Console owns the two writers sharing a sink.
type Console struct {
	supervisor Handle
	user       Handle
}

// New creates the console. The kernel creates exactly one, during
// initialization, before the trap vector is installed.
func New(sink Sink) *Console {
	return &Console{
		supervisor: Handle{name: "supervisor", w: Writer{Sink: sink}},
		user:       Handle{name: "user", w: Writer{Sink: sink}},
	}
}

// Supervisor returns the writer used from supervisor context, including trap
// handlers.
func (c *Console) Supervisor() *Handle {
	return &c.supervisor
}

// User returns the writer used on behalf of user context.
func (c *Console) User() *Handle {
	return &c.user
}
