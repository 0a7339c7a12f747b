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

package console

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
	"rvkernel.dev/rvkernel/pkg/riscv"
	"rvkernel.dev/rvkernel/pkg/sbi"
	"rvkernel.dev/rvkernel/pkg/sync"
)

// bufferSink collects output; it fails once limit bytes have been written.
type bufferSink struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *bufferSink) PutChar(ch byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit > 0 && b.buf.Len() >= b.limit {
		return fmt.Errorf("sink full")
	}
	b.buf.WriteByte(ch)
	return nil
}

func (b *bufferSink) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPrintf(t *testing.T) {
	sink := &bufferSink{}
	c := New(sink)
	if err := c.Supervisor().Printf("sie: %#x -> %#x\n", 0, 0x20); err != nil {
		t.Fatalf("Printf failed: %v", err)
	}
	if err := c.User().Println("Hello World!"); err != nil {
		t.Fatalf("Println failed: %v", err)
	}
	if got, want := sink.String(), "sie: 0x0 -> 0x20\nHello World!\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestSinkFailure(t *testing.T) {
	sink := &bufferSink{limit: 3}
	n, err := New(sink).Supervisor().Write([]byte("abcdef"))
	if err == nil {
		t.Fatalf("Write succeeded past the sink limit")
	}
	if n != 3 {
		t.Errorf("Write wrote %d bytes, want 3", n)
	}
}

// TestTrapWhileUserLockHeld models a trap taken on the only hart while user
// context is in the middle of a write: the handler runs to completion on the
// same thread of control, so it must not need the user lock.
func TestTrapWhileUserLockHeld(t *testing.T) {
	sink := &bufferSink{}
	c := New(sink)

	uw, release := c.User().Acquire()
	if _, err := uw.Write([]byte("user ")); err != nil {
		t.Fatalf("user write failed: %v", err)
	}

	// The "trap handler".
	sw, srelease, ok := c.Supervisor().TryAcquire()
	if !ok {
		t.Fatalf("supervisor lock unavailable while user lock held")
	}
	fmt.Fprint(sw, "[trap] ")
	srelease()

	fmt.Fprint(uw, "done")
	release()

	if got, want := sink.String(), "user [trap] done"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

// TestInterleaving holds each lock in turn and verifies the other one can be
// taken from a concurrent writer.
func TestInterleaving(t *testing.T) {
	c := New(&bufferSink{})
	checkIndependent(t, c.User(), c.Supervisor())
	checkIndependent(t, c.Supervisor(), c.User())
}

func checkIndependent(t *testing.T, held, other *Handle) {
	t.Helper()
	_, release := held.Acquire()
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		return other.Printf("from %s\n", other.Name())
	})
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("%s writer blocked while %s lock held", other.Name(), held.Name())
	}
	if err := g.Wait(); err != nil {
		t.Errorf("%s write failed: %v", other.Name(), err)
	}

	// The held lock really excludes writers of the same handle.
	if _, again, ok := held.TryAcquire(); ok {
		again()
		t.Errorf("%s lock acquired twice", held.Name())
	}
}

type recordingCaller struct {
	calls []sbi.Registers
}

func (r *recordingCaller) Ecall(in sbi.Registers) (uint64, uint64) {
	r.calls = append(r.calls, in)
	return 0, 0
}

func TestFirmwareSink(t *testing.T) {
	rc := &recordingCaller{}
	c := New(FirmwareSink{Client: sbi.NewClient(rc, riscv.Width64)})
	if err := c.Supervisor().Printf("ok"); err != nil {
		t.Fatalf("Printf failed: %v", err)
	}
	if len(rc.calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(rc.calls))
	}
	for i, ch := range []byte("ok") {
		if rc.calls[i].A0 != uint64(ch) || rc.calls[i].A7 != sbi.ExtLegacyPutChar {
			t.Errorf("call %d = %v", i, rc.calls[i])
		}
	}
}
