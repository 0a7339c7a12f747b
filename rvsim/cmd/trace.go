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

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
	"rvkernel.dev/rvkernel/pkg/sim"
)

// Trace output formats.
const (
	traceNone = "none"
	traceText = "text"
	traceJSON = "json"
	traceYAML = "yaml"
)

func validTraceFormat(format string) bool {
	switch format {
	case traceNone, traceText, traceJSON, traceYAML:
		return true
	}
	return false
}

// writeTrace writes events to w in format.
func writeTrace(w io.Writer, format string, events []sim.Event) error {
	switch format {
	case traceNone:
		return nil
	case traceText:
		for _, ev := range events {
			if _, err := fmt.Fprintln(w, formatEvent(ev)); err != nil {
				return err
			}
		}
		return nil
	case traceJSON:
		b, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling trace: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	case traceYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(events); err != nil {
			return fmt.Errorf("marshaling trace: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("invalid trace format %q", format)
	}
}

func formatEvent(ev sim.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%4d t=%-10d %-40s sepc=%#x stval=%#x from=%s", ev.Seq, ev.Time, ev.Exception, ev.EPC, ev.Tval, ev.From)
	if ev.Halted {
		b.WriteString(" -> halted")
	} else {
		fmt.Fprintf(&b, " -> %#x (%s)", ev.Resume, ev.To)
	}
	if n := len(ev.Calls); n > 0 {
		fmt.Fprintf(&b, " calls=%d", n)
	}
	return b.String()
}
