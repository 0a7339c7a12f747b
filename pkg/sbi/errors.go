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

	"rvkernel.dev/rvkernel/pkg/errors"
)

// Named SBI errors. They are bijective with the return codes -1 through -8.
var (
	ErrFailed           = errors.New(-1, "sbi: failed")
	ErrNotSupported     = errors.New(-2, "sbi: not supported")
	ErrInvalidParam     = errors.New(-3, "sbi: invalid parameter")
	ErrDenied           = errors.New(-4, "sbi: denied")
	ErrInvalidAddress   = errors.New(-5, "sbi: invalid address")
	ErrAlreadyAvailable = errors.New(-6, "sbi: already available")
	ErrAlreadyStarted   = errors.New(-7, "sbi: already started")
	ErrAlreadyStopped   = errors.New(-8, "sbi: already stopped")
)

// namedErrors is indexed by -code-1.
var namedErrors = [...]*errors.Error{
	ErrFailed,
	ErrNotSupported,
	ErrInvalidParam,
	ErrDenied,
	ErrInvalidAddress,
	ErrAlreadyAvailable,
	ErrAlreadyStarted,
	ErrAlreadyStopped,
}

// ProtocolViolation is returned when the firmware reports an error code that
// is not one of the named errors. It is never a recoverable condition.
type ProtocolViolation struct {
	Request Request
	Code    int64
}

// Error implements error.Error.
func (p *ProtocolViolation) Error() string {
	return fmt.Sprintf("sbi: unknown error code %d returned by %v", p.Code, p.Request)
}

// ErrorFromCode maps a return code to a named error. It returns nil for 0 and
// false for codes outside -8..0.
func ErrorFromCode(code int64) (*errors.Error, bool) {
	if code == 0 {
		return nil, true
	}
	if code < -int64(len(namedErrors)) || code > 0 {
		return nil, false
	}
	return namedErrors[-code-1], true
}

// ErrorCode returns the return code for a named error.
func ErrorCode(err error) (int64, bool) {
	e, ok := err.(*errors.Error)
	if !ok {
		return 0, false
	}
	for _, n := range namedErrors {
		if n == e {
			return int64(e.Code()), true
		}
	}
	return 0, false
}
