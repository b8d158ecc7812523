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

// Package testing provides test doubles shared by the transport tests.
package testing

import (
	"context"
	"sync"

	smartag "github.com/ZaparooProject/go-smartag"
)

// ISO 15693 command codes understood by VirtualTag.
const (
	cmdReadBlock     = 0x30
	cmdWriteBlock    = 0x31
	cmdWriteDynamic  = 0xAE
	cmdPresentPasswd = 0xB3

	regEnergyHarvesting = 0x02
)

// VirtualTag emulates the RF side of an ST25DV: it answers raw ISO 15693
// requests from a cell map.
type VirtualTag struct {
	cells     map[uint16]smartag.Cell
	requests  [][]byte
	password  [8]byte
	failNext  int
	errorCode byte
	mu        sync.Mutex
	harvest   bool
}

// NewVirtualTag creates an empty tag whose password is all zeros.
func NewVirtualTag() *VirtualTag {
	return &VirtualTag{cells: make(map[uint16]smartag.Cell)}
}

// SetPassword sets the password the tag expects.
func (v *VirtualTag) SetPassword(password [8]byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.password = password
}

// FailNext makes the next n requests fail with the given error code.
func (v *VirtualTag) FailNext(n int, code byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failNext, v.errorCode = n, code
}

// Cell returns the content of a cell.
func (v *VirtualTag) Cell(address uint16) smartag.Cell {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cells[address]
}

// SetCell stores a cell.
func (v *VirtualTag) SetCell(address uint16, c smartag.Cell) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cells[address] = c
}

// Harvesting reports whether energy harvesting was switched on.
func (v *VirtualTag) Harvesting() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.harvest
}

// Requests returns a copy of the requests received so far.
func (v *VirtualTag) Requests() [][]byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([][]byte, len(v.requests))
	copy(out, v.requests)
	return out
}

func address(req []byte) uint16 {
	return uint16(req[2]) | uint16(req[3])<<8
}

// Respond returns the raw response to req.
func (v *VirtualTag) Respond(req []byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.requests = append(v.requests, append([]byte(nil), req...))

	if v.failNext > 0 {
		v.failNext--
		return BuildErrorResponse(v.errorCode)
	}
	if len(req) < 2 {
		return BuildErrorResponse(ErrCodeNotSupported)
	}

	switch {
	case req[1] == cmdReadBlock && len(req) >= 4:
		return BuildReadResponse(v.cells[address(req)])
	case req[1] == cmdWriteBlock && len(req) >= 8:
		v.cells[address(req)] = smartag.Cell{req[4], req[5], req[6], req[7]}
		return BuildOKResponse()
	case req[1] == cmdWriteDynamic && len(req) >= 5 && req[3] == regEnergyHarvesting:
		v.harvest = req[4]&0x01 != 0
		return BuildOKResponse()
	case req[1] == cmdPresentPasswd && len(req) >= 12:
		if [8]byte(req[4:12]) != v.password {
			return BuildErrorResponse(ErrCodeUnknown)
		}
		return BuildOKResponse()
	default:
		return BuildErrorResponse(ErrCodeNotSupported)
	}
}

// Transceive answers req; it never fails at the link level.
func (v *VirtualTag) Transceive(_ context.Context, req []byte) ([]byte, error) {
	return v.Respond(req), nil
}
