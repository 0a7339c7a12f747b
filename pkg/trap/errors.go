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

package trap

import (
	"errors"
	"fmt"
)

// Reasons a trap cannot be resolved.
var (
	ErrFault          = errors.New("unrecoverable fault")
	ErrUnexpectedTrap = errors.New("unexpected trap")
	ErrReserved       = errors.New("reserved exception code")
	ErrPlatform       = errors.New("platform-use exception code")
	ErrReentrant      = errors.New("trap taken while handling a trap")
	ErrTimer          = errors.New("failed to set timer")
	ErrProtocol       = errors.New("firmware protocol violation")
)

// FatalError is a trap the kernel cannot resume from. It is never returned
// to the interrupted code.
type FatalError struct {
	Info Info
	Err  error
}

func fatal(info Info, err error) *FatalError {
	return &FatalError{Info: info, Err: err}
}

// Error implements error.Error.
func (f *FatalError) Error() string {
	return fmt.Sprintf("%v: %v, stval: %#x", f.Err, f.Info.Exception, f.Info.Tval)
}

// Unwrap returns the underlying reason.
func (f *FatalError) Unwrap() error {
	return f.Err
}
