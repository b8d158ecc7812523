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

// Package memtag provides an in-memory ST25DV tag image implementing
// smartag.Transport, together with an NDEF formatter and a firmware emulator.
// It backs the simulator of the command line tool and the protocol tests.
package memtag

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ZaparooProject/go-smartag"
)

// Variant is the memory size of the emulated tag.
type Variant int

const (
	// Variant4K is a 4 Kbit ST25DV (128 cells).
	Variant4K Variant = iota
	// Variant64K is a 64 Kbit ST25DV (2048 cells).
	Variant64K
)

// Cells returns the number of cells of the variant.
func (v Variant) Cells() uint16 {
	if v == Variant64K {
		return smartag.Extended64KCells
	}
	return smartag.Standard4KCells
}

func (v Variant) String() string {
	if v == Variant64K {
		return "ST25DV64K"
	}
	return "ST25DV04K"
}

// ErrOutOfRange is returned for addresses beyond the tag memory.
var ErrOutOfRange = errors.New("memtag: address out of range")

// Tag is an in-memory tag. The zero value is not usable; call New.
type Tag struct {
	readFaults  map[uint16]error
	writeFaults map[uint16]error
	onRead      func(address uint16)
	cells       []smartag.Cell
	writeLog    []uint16
	variant     Variant
	reads       int
	connects    int
	closes      int
	mu          sync.Mutex
	present     bool
	connected   bool
}

// New creates an empty tag of the given variant.
func New(variant Variant) *Tag {
	return &Tag{
		variant:     variant,
		cells:       make([]smartag.Cell, variant.Cells()),
		present:     true,
		readFaults:  make(map[uint16]error),
		writeFaults: make(map[uint16]error),
	}
}

// Variant returns the tag variant.
func (t *Tag) Variant() Variant {
	return t.variant
}

// SetPresent simulates the tag entering or leaving the field.
func (t *Tag) SetPresent(present bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.present = present
	if !present {
		t.connected = false
	}
}

// Connect implements smartag.Transport.
func (t *Tag) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.present {
		return smartag.NewTransportError("connect", "memory", smartag.ErrTagNotFound, smartag.ErrorTypePermanent)
	}
	t.connected = true
	t.connects++
	return nil
}

// Close implements smartag.Transport.
func (t *Tag) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	t.closes++
	return nil
}

// Type implements smartag.Transport.
func (*Tag) Type() smartag.TransportType {
	return smartag.TransportMemory
}

func (t *Tag) check(op string, address uint16) error {
	if !t.connected {
		return smartag.NewTransportError(op, "memory", smartag.ErrNotConnected, smartag.ErrorTypePermanent)
	}
	if int(address) >= len(t.cells) {
		return smartag.NewTransportError(op, "memory",
			fmt.Errorf("%w: 0x%04X", ErrOutOfRange, address), smartag.ErrorTypePermanent)
	}
	return nil
}

// ReadCell implements smartag.Transport.
func (t *Tag) ReadCell(ctx context.Context, address uint16) (smartag.Cell, error) {
	if err := ctx.Err(); err != nil {
		return smartag.Cell{}, err
	}

	t.mu.Lock()
	hook := t.onRead
	t.mu.Unlock()
	if hook != nil {
		hook(address)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check("read", address); err != nil {
		return smartag.Cell{}, err
	}
	if err, ok := t.readFaults[address]; ok {
		return smartag.Cell{}, err
	}
	t.reads++
	return t.cells[address], nil
}

// WriteCell implements smartag.Transport.
func (t *Tag) WriteCell(ctx context.Context, address uint16, data smartag.Cell) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check("write", address); err != nil {
		return err
	}
	if err, ok := t.writeFaults[address]; ok {
		return err
	}
	t.cells[address] = data
	t.writeLog = append(t.writeLog, address)
	return nil
}

// Cell returns a cell without going through the transport.
func (t *Tag) Cell(address uint16) smartag.Cell {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cells[address]
}

// SetCell stores a cell without going through the transport.
func (t *Tag) SetCell(address uint16, c smartag.Cell) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cells[address] = c
}

// SetBytes copies b into memory starting at byte offset.
func (t *Tag) SetBytes(offset int, b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if offset < 0 || offset+len(b) > len(t.cells)*smartag.CellSize {
		return fmt.Errorf("%w: %d bytes at byte %d", ErrOutOfRange, len(b), offset)
	}
	for i, v := range b {
		pos := offset + i
		t.cells[pos/smartag.CellSize][pos%smartag.CellSize] = v
	}
	return nil
}

// SetReadFault makes reads of address fail with err. A nil err clears it.
func (t *Tag) SetReadFault(address uint16, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.readFaults, address)
		return
	}
	t.readFaults[address] = err
}

// SetWriteFault makes writes to address fail with err. A nil err clears it.
func (t *Tag) SetWriteFault(address uint16, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.writeFaults, address)
		return
	}
	t.writeFaults[address] = err
}

// OnRead installs a hook run before every transport read.
func (t *Tag) OnRead(fn func(address uint16)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRead = fn
}

// WriteLog returns the addresses written through the transport, in order.
func (t *Tag) WriteLog() []uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]uint16(nil), t.writeLog...)
}

// ResetWriteLog clears the write log.
func (t *Tag) ResetWriteLog() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeLog = nil
}

// Stats returns the number of successful reads, connects and closes.
func (t *Tag) Stats() (reads, connects, closes int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads, t.connects, t.closes
}

// Connected reports whether a connection is open.
func (t *Tag) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// direct reads memory without connection or faults; used by the firmware.
type direct struct{ t *Tag }

func (d direct) ReadCell(_ context.Context, address uint16) (smartag.Cell, error) {
	d.t.mu.Lock()
	defer d.t.mu.Unlock()
	if int(address) >= len(d.t.cells) {
		return smartag.Cell{}, fmt.Errorf("%w: 0x%04X", ErrOutOfRange, address)
	}
	return d.t.cells[address], nil
}
