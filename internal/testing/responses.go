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

package testing

import (
	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/internal/frame"
)

// ISO 15693 error codes.
const (
	ErrCodeNotSupported = 0x01
	ErrCodeUnknown      = 0x0F
)

const (
	flagOK    = 0x00
	flagError = 0x01
)

// BuildOKResponse creates a successful ISO 15693 response
func BuildOKResponse(data ...byte) []byte {
	return append([]byte{flagOK}, data...)
}

// BuildErrorResponse creates an ISO 15693 error response
func BuildErrorResponse(code byte) []byte {
	return []byte{flagError, code}
}

// BuildReadResponse creates a read single block response
func BuildReadResponse(c smartag.Cell) []byte {
	return BuildOKResponse(c[:]...)
}

// BuildBridgeResponse creates what a serial bridge sends back for cmd: an
// ACK frame followed by the response frame.
func BuildBridgeResponse(cmd, status byte, data []byte) ([]byte, error) {
	payload := append([]byte{frame.ResponseCommand(cmd), status}, data...)
	resp, err := frame.Build(frame.ReaderToHost, payload)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(nil), frame.AckFrame...), resp...), nil
}
