// grf-500-api
// Copyright (c) 2025 The grf-500-api Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of grf-500-api.
//
// grf-500-api is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// grf-500-api is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with grf-500-api; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package grf500

import (
	"context"
	"errors"
	"fmt"
)

// Result is the closed set of outcomes reported by the protocol layer.
// Every Result other than ResultSuccess is also an error, so callers can
// compare with errors.Is against the Err* values below.
type Result int

const (
	ResultSuccess Result = iota
	ResultError
	ResultAgain
	ResultTimeout
	ResultExceededRetries
	ResultInvalidParameter
	ResultIncorrectCommandID
)

// Protocol errors. They are Result values, so a wrapped error still maps
// back onto the closed result set through ResultOf.
var (
	// ErrError reports a hard transport or protocol failure.
	ErrError error = ResultError
	// ErrAgain reports that a non-blocking wait found no complete packet yet.
	ErrAgain error = ResultAgain
	// ErrTimeout reports that a blocking wait passed its deadline.
	ErrTimeout error = ResultTimeout
	// ErrExceededRetries reports that every configured retry failed.
	ErrExceededRetries error = ResultExceededRetries
	// ErrInvalidParameter reports a value outside its documented range.
	ErrInvalidParameter error = ResultInvalidParameter
	// ErrIncorrectCommandID reports a response for a different command.
	ErrIncorrectCommandID error = ResultIncorrectCommandID
)

func (r Result) Error() string {
	return r.String()
}

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultError:
		return "error"
	case ResultAgain:
		return "no packet available yet"
	case ResultTimeout:
		return "timeout"
	case ResultExceededRetries:
		return "exceeded retries"
	case ResultInvalidParameter:
		return "invalid parameter"
	case ResultIncorrectCommandID:
		return "incorrect command id"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// ResultOf maps any error returned by this package onto the closed result set.
func ResultOf(err error) Result {
	if err == nil {
		return ResultSuccess
	}

	var r Result
	if errors.As(err, &r) {
		return r
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ResultTimeout
	}

	var te *TransportError
	if errors.As(err, &te) && te.Type == ErrorTypeTimeout {
		return ResultTimeout
	}

	return ResultError
}

// Transport errors
var (
	ErrTransportTimeout  = errors.New("transport timeout")
	ErrTransportRead     = errors.New("transport read failed")
	ErrTransportWrite    = errors.New("transport write failed")
	ErrTransportClosed   = errors.New("transport closed")
	ErrNoBytesWritten    = errors.New("no bytes written")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrUnexpectedProduct = errors.New("unexpected product")
)

// ErrorType classifies transport failures for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away on retry
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on retry
	ErrorTypeTransient
	// ErrorTypeTimeout errors are timeouts that may succeed on retry
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError carries context about a failed transport operation
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes every transport failure match ErrError
func (*TransportError) Is(target error) bool {
	return target == ErrError
}

// NewTransportError creates a TransportError. Transient and timeout
// errors are marked retryable.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout TransportError
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// IsRetryable reports whether err is worth retrying. A TransportError
// decides for itself, otherwise only the transport sentinels are retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrTimeout):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification of err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout), errors.Is(err, ErrTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrTransportRead), errors.Is(err, ErrTransportWrite):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
