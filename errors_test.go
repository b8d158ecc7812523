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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "transport timeout", err: ErrTransportTimeout, want: true},
		{name: "transport read", err: ErrTransportRead, want: true},
		{name: "transport write", err: ErrTransportWrite, want: true},
		{name: "busy", err: ErrTransportBusy, want: true},
		{name: "tag response", err: ErrTagResponse, want: true},
		{name: "wrapped timeout", err: fmt.Errorf("read cell: %w", ErrTransportTimeout), want: true},
		{name: "device not found", err: ErrDeviceNotFound, want: false},
		{name: "layout not found", err: ErrLayoutNotFound, want: false},
		{name: "unknown mode", err: ErrUnknownMode, want: false},
		{name: "invalid parameter", err: ErrInvalidParameter, want: false},
		{
			name: "string copy of a retryable error",
			err:  errors.New("outer: " + ErrTransportTimeout.Error()),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsRetryable_TransportError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		transport *TransportError
		name      string
		want      bool
	}{
		{
			name: "retryable flag set",
			transport: &TransportError{
				Err: errors.New("test error"), Op: "read", Port: "/dev/ttyUSB0",
				Type: ErrorTypeTransient, Retryable: true,
			},
			want: true,
		},
		{
			name: "flag wins over a retryable cause",
			transport: &TransportError{
				Err: ErrTransportTimeout, Op: "read", Port: "/dev/ttyUSB0",
				Type: ErrorTypeTimeout, Retryable: false,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.transport))
			assert.Equal(t, tt.want, IsRetryable(fmt.Errorf("wrapped: %w", tt.transport)))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ErrorTypeTimeout, GetErrorType(ErrTransportTimeout))
	assert.Equal(t, ErrorTypeTransient, GetErrorType(ErrChecksumMismatch))
	assert.Equal(t, ErrorTypePermanent, GetErrorType(ErrLayoutNotFound))
	assert.Equal(t, ErrorTypePermanent, GetErrorType(nil))
	assert.Equal(t, ErrorTypePermanent,
		GetErrorType(NewTransportError("write", "", ErrTransportTimeout, ErrorTypePermanent)))
	assert.Equal(t, "timeout", ErrorTypeTimeout.String())
}

func TestTransportErrorConstructors(t *testing.T) {
	t.Parallel()

	te := NewTimeoutError("read", "/dev/ttyUSB0")
	assert.Equal(t, "read", te.Op)
	assert.Equal(t, ErrorTypeTimeout, te.Type)
	assert.True(t, te.Retryable)
	require.ErrorIs(t, te, ErrTransportTimeout)
	assert.Contains(t, te.Error(), "/dev/ttyUSB0")

	te = NewFrameCorruptedError("read", "")
	assert.True(t, te.Retryable)
	assert.Equal(t, "read: frame corrupted", te.Error())

	te = NewTagResponseError("write", "reader0", 0x0F)
	require.ErrorIs(t, te, ErrTagResponse)
	assert.Contains(t, te.Error(), "0x0F")

	te = NewTransportError("open", "/dev/i2c-1", ErrDeviceNotFound, ErrorTypePermanent)
	assert.False(t, te.Retryable)
}

func TestPartialWriteError(t *testing.T) {
	t.Parallel()

	cause := NewTimeoutError("write cell 0x0012", "")
	err := &PartialWriteError{Err: cause, Step: "status", Completed: 3, Total: 4}

	require.ErrorIs(t, err, ErrTransportTimeout)
	assert.True(t, err.StateUnknown())
	assert.Contains(t, err.Error(), `"status"`)
	assert.Contains(t, err.Error(), "3/4")

	var te *TransportError
	require.ErrorAs(t, err, &te)

	untouched := &PartialWriteError{Err: cause, Step: "timestamp", Completed: 0, Total: 4}
	assert.False(t, untouched.StateUnknown())
}
