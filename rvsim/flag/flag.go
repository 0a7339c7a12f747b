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

// Package flag wraps the standard flag package so that every rvsim package
// registers and reads flags the same way.
package flag

import (
	"flag"
)

// FlagSet is an alias for flag.FlagSet.
type FlagSet = flag.FlagSet

// Flag is an alias for flag.Flag.
type Flag = flag.Flag

// Value is an alias for flag.Value.
type Value = flag.Value

// ErrorHandling is an alias for flag.ErrorHandling.
type ErrorHandling = flag.ErrorHandling

// Error handling modes.
const (
	ContinueOnError = flag.ContinueOnError
	ExitOnError     = flag.ExitOnError
	PanicOnError    = flag.PanicOnError
)

// CommandLine is the default set of command-line flags.
var CommandLine = flag.CommandLine

// Aliases for the package level functions.
var (
	Bool       = flag.Bool
	String     = flag.String
	Lookup     = flag.Lookup
	NewFlagSet = flag.NewFlagSet
	Parse      = flag.Parse
)

// Get returns the typed value held by v. All flags defined by the standard
// package and by rvsim implement flag.Getter.
func Get(v Value) any {
	return v.(flag.Getter).Get()
}
