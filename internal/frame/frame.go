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

package frame

import (
	"bytes"
	"errors"
	"fmt"
)

// Frame parsing errors.
var (
	ErrIncomplete     = errors.New("frame incomplete")
	ErrNoStartCode    = errors.New("frame start code not found")
	ErrLengthChecksum = errors.New("frame length checksum mismatch")
	ErrDataChecksum   = errors.New("frame data checksum mismatch")
	ErrUnexpectedTFI  = errors.New("unexpected frame identifier")
	ErrDataTooLarge   = errors.New("frame data too large")
)

// CalculateChecksum returns the byte sum of data.
func CalculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// ValidateChecksum reports whether data fails the zero-sum check and the
// frame should be NACKed.
func ValidateChecksum(data []byte) bool {
	return CalculateChecksum(data) != 0
}

// CalculateDataChecksum returns the DCS of a frame body.
func CalculateDataChecksum(tfi byte, data []byte) byte {
	return ^(tfi + CalculateChecksum(data)) + 1
}

// CalculateLengthChecksum returns the LCS of a length byte.
func CalculateLengthChecksum(length byte) byte {
	return ^length + 1
}

// Build wraps data in a frame.
func Build(tfi byte, data []byte) ([]byte, error) {
	if len(data) > MaxFrameDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrDataTooLarge, len(data))
	}
	length := byte(len(data) + 1)
	out := make([]byte, 0, len(data)+8)
	out = append(out, Preamble, StartCode1, StartCode2, length, CalculateLengthChecksum(length), tfi)
	out = append(out, data...)
	return append(out, CalculateDataChecksum(tfi, data), Postamble), nil
}

// IsAck reports whether buf starts with an ACK frame.
func IsAck(buf []byte) bool {
	return bytes.HasPrefix(buf, AckFrame)
}

// Parse finds the first frame in buf and returns its data and the number of
// bytes consumed up to and including the frame. ErrIncomplete means more
// bytes are needed.
func Parse(buf []byte, tfi byte) (data []byte, consumed int, err error) {
	start := bytes.Index(buf, []byte{StartCode1, StartCode2})
	if start < 0 {
		return nil, 0, ErrNoStartCode
	}
	off := start + 2
	if len(buf) < off+2 {
		return nil, 0, ErrIncomplete
	}
	length, lcs := buf[off], buf[off+1]
	if length == 0x00 && lcs == 0xFF {
		// ACK
		return nil, min(off+3, len(buf)), nil
	}
	if length == 0 || length+lcs != 0 {
		return nil, off + 2, ErrLengthChecksum
	}

	body := off + 2
	end := body + int(length) + 1 // DCS
	if len(buf) < end {
		return nil, 0, ErrIncomplete
	}
	if ValidateChecksum(buf[body:end]) {
		return nil, end, ErrDataChecksum
	}
	if buf[body] != tfi {
		return nil, end, fmt.Errorf("%w: 0x%02X", ErrUnexpectedTFI, buf[body])
	}
	consumed = end
	if consumed < len(buf) && buf[consumed] == Postamble {
		consumed++
	}
	return append([]byte(nil), buf[body+1:end-1]...), consumed, nil
}
