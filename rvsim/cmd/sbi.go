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
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"rvkernel.dev/rvkernel/pkg/sbi"
	"rvkernel.dev/rvkernel/rvsim/config"
	"rvkernel.dev/rvkernel/rvsim/flag"
)

// SBI implements subcommands.Command for the "sbi" command.
type SBI struct{}

// Name implements subcommands.Command.Name.
func (*SBI) Name() string {
	return "sbi"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*SBI) Synopsis() string {
	return "convert between firmware requests and call registers"
}

// Usage implements subcommands.Command.Usage.
func (*SBI) Usage() string {
	return `sbi encode <request> [args] - print the registers for a request.
sbi decode <a0> <a1> <a6> <a7> - print the request held in registers.

Requests:
  putchar <char>
  getchar
  base <function> [extension]   function is a name or number, e.g. GetSpecVersion
  set-timer <deadline>
  send-ipi <hart mask>
  shutdown
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*SBI) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*SBI) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	mc, err := conf.Machine()
	if err != nil {
		Fatalf("%v", err)
	}
	codec := sbi.Codec{Width: mc.Sim.Width}

	switch f.Arg(0) {
	case "encode":
		err = encode(os.Stdout, codec, f.Args()[1:])
	case "decode":
		err = decode(os.Stdout, codec, f.Args()[1:])
	default:
		err = fmt.Errorf("unknown sbi command %q", f.Arg(0))
	}
	if err != nil {
		Errorf("%v", err)
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}

func encode(w io.Writer, codec sbi.Codec, args []string) error {
	req, err := parseRequest(args)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%v\t%v\n", req, codec.Encode(req))
	return nil
}

func decode(w io.Writer, codec sbi.Codec, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("decode needs a0, a1, a6 and a7, got %d values", len(args))
	}
	var vals [4]uint64
	for i, a := range args {
		v, err := strconv.ParseUint(a, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid register value %q: %w", a, err)
		}
		vals[i] = v
	}
	regs := sbi.Registers{A0: vals[0], A1: vals[1], A6: vals[2], A7: vals[3]}
	req, err := codec.Decode(regs)
	if err != nil {
		code, _ := sbi.ErrorCode(err)
		fmt.Fprintf(w, "%v\terror %d: %v\n", regs, code, err)
		return nil
	}
	fmt.Fprintf(w, "%v\t%v\n", regs, req)
	return nil
}

// parseRequest parses a request written as a name followed by arguments.
func parseRequest(args []string) (sbi.Request, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing request")
	}
	name, args := args[0], args[1:]
	want := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s takes %d arguments, got %d", name, n, len(args))
		}
		return nil
	}

	switch name {
	case "putchar":
		if err := want(1); err != nil {
			return nil, err
		}
		ch, err := parseChar(args[0])
		if err != nil {
			return nil, err
		}
		return sbi.ConsolePutChar{Char: ch}, nil
	case "getchar":
		if err := want(0); err != nil {
			return nil, err
		}
		return sbi.ConsoleGetChar{}, nil
	case "base":
		if len(args) != 1 && len(args) != 2 {
			return nil, fmt.Errorf("base takes a function and an optional extension")
		}
		fn, err := parseBaseFunction(args[0])
		if err != nil {
			return nil, err
		}
		r := sbi.Base{Function: fn}
		if len(args) == 2 {
			if fn != sbi.ProbeExtension {
				return nil, fmt.Errorf("only ProbeExtension takes an extension")
			}
			if r.Probe, err = strconv.ParseUint(args[1], 0, 64); err != nil {
				return nil, fmt.Errorf("invalid extension %q: %w", args[1], err)
			}
		}
		return r, nil
	case "set-timer":
		if err := want(1); err != nil {
			return nil, err
		}
		d, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid deadline %q: %w", args[0], err)
		}
		return sbi.SetTimer{Deadline: d}, nil
	case "send-ipi":
		if err := want(1); err != nil {
			return nil, err
		}
		mask, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid hart mask %q: %w", args[0], err)
		}
		return sbi.SendIPI{HartMask: mask}, nil
	case "shutdown":
		if err := want(0); err != nil {
			return nil, err
		}
		return sbi.Shutdown{}, nil
	default:
		return nil, fmt.Errorf("unknown request %q", name)
	}
}

// parseChar accepts a single character or a number.
func parseChar(s string) (byte, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid character %q", s)
	}
	return byte(v), nil
}

func parseBaseFunction(s string) (sbi.BaseFunction, error) {
	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		fn := sbi.BaseFunction(v)
		if !fn.Valid() {
			return 0, fmt.Errorf("invalid base function %d", v)
		}
		return fn, nil
	}
	for fn := sbi.GetSpecVersion; fn.Valid(); fn++ {
		if strings.EqualFold(fn.String(), s) {
			return fn, nil
		}
	}
	return 0, fmt.Errorf("unknown base function %q", s)
}
