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

// Package cellbits provides byte order and bit field helpers for 4-byte tag
// memory cells.
package cellbits

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// CellSize is the number of bytes in one addressable tag memory cell.
const CellSize = 4

// ErrShortBuffer is returned when an input holds fewer bytes than required.
var ErrShortBuffer = errors.New("cellbits: buffer too short")

func need(b []byte, n int) error {
	if len(b) < n {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrShortBuffer, n, len(b))
	}
	return nil
}

// LeUint16 reads an unsigned little-endian 16-bit value from the first two bytes of b.
func LeUint16(b []byte) (uint16, error) {
	if err := need(b, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// LeUint32 reads an unsigned little-endian 32-bit value from the first four bytes of b.
func LeUint32(b []byte) (uint32, error) {
	if err := need(b, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// BeUint16 reads an unsigned big-endian 16-bit value from the first two bytes of b.
func BeUint16(b []byte) (uint16, error) {
	if err := need(b, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// BeUint32 reads an unsigned big-endian 32-bit value from the first four bytes of b.
// NDEF long record payload lengths use this encoding.
func BeUint32(b []byte) (uint32, error) {
	if err := need(b, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// PutLeUint16 encodes v into the low two bytes of a zeroed cell.
func PutLeUint16(v uint16) [CellSize]byte {
	var out [CellSize]byte
	binary.LittleEndian.PutUint16(out[:], v)
	return out
}

// PutLeUint32 encodes v as a little-endian cell.
func PutLeUint32(v uint32) [CellSize]byte {
	var out [CellSize]byte
	binary.LittleEndian.PutUint32(out[:], v)
	return out
}

// PutBeUint32 encodes v as four big-endian bytes.
func PutBeUint32(v uint32) [CellSize]byte {
	var out [CellSize]byte
	binary.BigEndian.PutUint32(out[:], v)
	return out
}

// Mask returns a mask of width low bits.
func Mask(width uint) uint32 {
	if width >= 32 {
		return 0xFFFFFFFF
	}
	return (uint32(1) << width) - 1
}

// Field extracts width bits of word starting at bit shift.
func Field(word uint32, shift, width uint) uint32 {
	return (word >> shift) & Mask(width)
}

// SetField replaces width bits of word starting at bit shift with value.
// Bits of value above width are discarded.
func SetField(word uint32, shift, width uint, value uint32) uint32 {
	m := Mask(width) << shift
	return (word &^ m) | ((value << shift) & m)
}

// Bit reports whether bit n of word is set.
func Bit(word uint32, n uint) bool {
	return word&(uint32(1)<<n) != 0
}

// SetBit sets or clears bit n of word.
func SetBit(word uint32, n uint, on bool) uint32 {
	if on {
		return word | (uint32(1) << n)
	}
	return word &^ (uint32(1) << n)
}
