// go-smartag
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-smartag.
//
// go-smartag is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-smartag is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-smartag; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package smartag

import (
	"errors"
	"fmt"
)

// Transport level errors. Transports wrap these in a *TransportError so the
// retry layer can tell transient failures from permanent ones.
var (
	ErrTransportTimeout    = errors.New("transport timeout")
	ErrTransportRead       = errors.New("transport read failed")
	ErrTransportWrite      = errors.New("transport write failed")
	ErrTransportBusy       = errors.New("transport busy")
	ErrCommunicationFailed = errors.New("communication with tag failed")
	ErrChecksumMismatch    = errors.New("frame checksum mismatch")
	ErrFrameCorrupted      = errors.New("frame corrupted")
	ErrDeviceNotFound      = errors.New("reader device not found")
	ErrTagNotFound         = errors.New("no tag in field")
	ErrTagResponse         = errors.New("tag returned an error code")
	ErrNotConnected        = errors.New("transport not connected")
	ErrInvalidParameter    = errors.New("invalid parameter")
)

// Protocol errors.
var (
	// ErrLayoutNotFound is returned when the NDEF scan reaches the last record
	// or the end of memory without finding the SmarTag record. The tag is not a
	// recognized SmarTag.
	ErrLayoutNotFound = errors.New("not a recognized tag: smartag record not found")

	// ErrUnknownMode is returned when a configuration holding ModeUnknown is
	// encoded. Unknown mode bytes decode fine; they can never be written back.
	ErrUnknownMode = errors.New("sampling mode unknown cannot be encoded")

	ErrInvalidCapabilityContainer = errors.New("invalid capability container")
	ErrInvalidSamplePosition      = errors.New("sample position outside the sample area")
	ErrVerificationFailed         = errors.New("cell verification failed")
)

// ErrorType classifies transport errors for retry decisions.
type ErrorType int

const (
	// ErrorTypeTransient is a temporary failure worth retrying.
	ErrorTypeTransient ErrorType = iota
	// ErrorTypeTimeout is a timeout, retryable.
	ErrorTypeTimeout
	// ErrorTypePermanent is a failure that retrying will not fix.
	ErrorTypePermanent
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypePermanent:
		return "permanent"
	default:
		return fmt.Sprintf("ErrorType(%d)", int(t))
	}
}

// TransportError carries the failed operation and the retry classification
// of an error raised by a Transport.
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

// NewTransportError creates a TransportError; retryability follows the type.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Err:       err,
		Op:        op,
		Port:      port,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewFrameCorruptedError creates a retryable corrupted frame error.
func NewFrameCorruptedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrFrameCorrupted, ErrorTypeTransient)
}

// NewTagResponseError reports a non-zero error code returned by the tag.
func NewTagResponseError(op, port string, code byte) *TransportError {
	return NewTransportError(op, port, fmt.Errorf("%w: 0x%02X", ErrTagResponse, code), ErrorTypeTransient)
}

// IsRetryable reports whether err is worth retrying.
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
		errors.Is(err, ErrTransportBusy),
		errors.Is(err, ErrCommunicationFailed),
		errors.Is(err, ErrChecksumMismatch),
		errors.Is(err, ErrFrameCorrupted),
		errors.Is(err, ErrTagResponse):
		return true
	default:
		return false
	}
}

// GetErrorType returns the classification of err.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTransportTimeout):
		return ErrorTypeTimeout
	case IsRetryable(err):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

// PartialWriteError is returned when a multi-cell write plan fails part way.
// Steps before Step were committed to tag memory and are not rolled back, so
// the state of the tag is unknown until it is read again.
type PartialWriteError struct {
	Err       error
	Step      string
	Completed int
	Total     int
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("write plan failed at step %q (%d/%d committed, tag state unknown): %v",
		e.Step, e.Completed, e.Total, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// StateUnknown reports whether any write of the plan reached the tag before
// the failure.
func (e *PartialWriteError) StateUnknown() bool {
	return e.Completed > 0
}
