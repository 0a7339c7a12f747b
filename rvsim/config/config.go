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

// Package config provides basic infrastructure to set configuration settings
// for rvsim. Each setting can be changed using a command line flag; the
// simulated machine can also be described by a profile file.
package config

import (
	"fmt"
	"reflect"

	"rvkernel.dev/rvkernel/pkg/log"
	"rvkernel.dev/rvkernel/pkg/riscv"
)

// Config holds configuration that is not part of the simulated program.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag with the flag name.
//  3. Register a new flag in flags.go, with same name and add a description.
//  4. Add any necessary validation into validate().
//  5. If adding an enum, follow the same pattern as XLEN.
type Config struct {
	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log"`

	// LogFormat is the log format, "text" or "json".
	LogFormat string `flag:"log-format"`

	// XLEN selects the machine word width. XLENAuto uses the profile, or
	// 64 bits without one.
	XLEN XLEN `flag:"xlen"`

	// Profile is the path of a machine profile, if not empty.
	Profile string `flag:"profile"`

	// TimerDelta is the interval between timer interrupts. Zero uses the
	// profile, or the kernel default without one.
	TimerDelta uint64 `flag:"timer-delta"`
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text' or 'json'", c.LogFormat)
	}
	return nil
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if name, ok := f.Tag.Lookup("flag"); ok {
			log.Infof("\t%s: %s", name, getVal(obj.Field(i)))
		}
	}
}

// XLEN is the machine word width in bits.
type XLEN int

const (
	// XLENAuto defers to the profile.
	XLENAuto XLEN = 0

	// XLEN32 is RV32.
	XLEN32 XLEN = 32

	// XLEN64 is RV64.
	XLEN64 XLEN = 64
)

func xlenPtr(v XLEN) *XLEN {
	return &v
}

// Set implements flag.Value.
func (x *XLEN) Set(v string) error {
	switch v {
	case "auto":
		*x = XLENAuto
	case "32", "rv32":
		*x = XLEN32
	case "64", "rv64":
		*x = XLEN64
	default:
		return fmt.Errorf("invalid xlen %q, must be auto, 32 or 64", v)
	}
	return nil
}

// Get implements flag.Value.
func (x *XLEN) Get() any {
	return *x
}

// String implements flag.Value.
func (x XLEN) String() string {
	switch x {
	case XLENAuto:
		return "auto"
	case XLEN32:
		return "32"
	case XLEN64:
		return "64"
	default:
		panic(fmt.Sprintf("Invalid XLEN value %d", x))
	}
}

// Width returns the word width, or 0 for XLENAuto.
func (x XLEN) Width() riscv.Width {
	return riscv.Width(x)
}
