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
	"context"
	"fmt"

	"github.com/ZaparooProject/go-smartag/internal/cellbits"
)

// AppRecordType is the NFC Forum external type of the SmarTag record.
const AppRecordType = "st.com:smartag"

// TNF values and record header flags.
const (
	TNFEmpty     byte = 0x00
	TNFWellKnown byte = 0x01
	TNFMedia     byte = 0x02
	TNFAbsolute  byte = 0x03
	TNFExternal  byte = 0x04

	tnfMask byte = 0x07
	flagMB  byte = 0x80
	flagME  byte = 0x40
	flagCF  byte = 0x20
	flagSR  byte = 0x10
	flagIL  byte = 0x08
)

// Capability container values for NFC Forum Type 5 tags.
const (
	ccMagicStandard byte = 0xE1
	ccMagicExtended byte = 0xE2

	ndefTLVType  byte = 0x03
	tlvLongForm  byte = 0xFF
	terminateTLV byte = 0xFE
)

// Tag variants, as number of cells.
const (
	Standard4KCells  uint16 = 0x80
	Extended64KCells uint16 = 0x800
)

// CellReader reads single cells; every Transport is one.
type CellReader interface {
	ReadCell(ctx context.Context, address uint16) (Cell, error)
}

// CapabilityContainer is the decoded first cell of the tag.
type CapabilityContainer struct {
	Version  byte
	Length   byte
	Access   byte
	Extended bool
}

// DecodeCapabilityContainer parses cell 0. A zero length byte announces the
// 8 byte container of the 64K variant.
func DecodeCapabilityContainer(c Cell) (CapabilityContainer, error) {
	if c[0] != ccMagicExtended && c[0] != ccMagicStandard {
		return CapabilityContainer{}, fmt.Errorf("%w: magic 0x%02X", ErrInvalidCapabilityContainer, c[0])
	}
	return CapabilityContainer{
		Version:  c[1],
		Length:   c[2],
		Access:   c[3],
		Extended: c[2] == 0x00,
	}, nil
}

// TotalCells returns the size of the tag variant in cells.
func (cc CapabilityContainer) TotalCells() uint16 {
	if cc.Extended {
		return Extended64KCells
	}
	return Standard4KCells
}

// tlvCell is the cell holding the NDEF TLV header.
func (cc CapabilityContainer) tlvCell() uint16 {
	if cc.Extended {
		return 2
	}
	return 1
}

// NDefRecordHeader is the decoded fixed part of an NDEF record header.
type NDefRecordHeader struct {
	PayloadLength  uint32
	TypeNameFormat byte
	IDLength       byte
	TypeLength     byte
	IsShortRecord  bool
	HasIDLength    bool
	IsLastRecord   bool
}

// Length returns the header size in bytes: 3 for short records, 6 for long
// ones, plus the ID length byte when present.
func (h NDefRecordHeader) Length() int {
	n := 6
	if h.IsShortRecord {
		n = 3
	}
	if h.HasIDLength {
		n++
	}
	return n
}

// RecordLength returns the size of the whole record in bytes.
func (h NDefRecordHeader) RecordLength() int {
	return h.Length() + int(h.TypeLength) + int(h.IDLength) + int(h.PayloadLength)
}

// ParseNDefRecordHeader decodes the record header at the start of b.
func ParseNDefRecordHeader(b []byte) (NDefRecordHeader, error) {
	if len(b) < 3 {
		return NDefRecordHeader{}, fmt.Errorf("record header: %w", cellbits.ErrShortBuffer)
	}
	h := NDefRecordHeader{
		TypeNameFormat: b[0] & tnfMask,
		IsShortRecord:  b[0]&flagSR != 0,
		HasIDLength:    b[0]&flagIL != 0,
		IsLastRecord:   b[0]&flagME != 0,
		TypeLength:     b[1],
	}
	if len(b) < h.Length() {
		return NDefRecordHeader{}, fmt.Errorf("record header: %w", cellbits.ErrShortBuffer)
	}

	next := 3
	if h.IsShortRecord {
		h.PayloadLength = uint32(b[2])
	} else {
		h.PayloadLength, _ = cellbits.BeUint32(b[2:6])
		next = 6
	}
	if h.HasIDLength {
		h.IDLength = b[next]
	}
	return h, nil
}

func headerLength(flags byte) int {
	return NDefRecordHeader{IsShortRecord: flags&flagSR != 0, HasIDLength: flags&flagIL != 0}.Length()
}

// byteReader reads byte ranges through cell reads, remembering cells already
// fetched during one scan.
type byteReader struct {
	r     CellReader
	cache map[uint16]Cell
	limit uint16
}

func (br *byteReader) read(ctx context.Context, offset, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for pos := offset; pos < offset+n; {
		addr := pos / CellSize
		if addr >= int(br.limit) {
			return nil, fmt.Errorf("%w: read past end of memory at byte %d", ErrLayoutNotFound, pos)
		}
		c, ok := br.cache[uint16(addr)]
		if !ok {
			var err error
			c, err = br.r.ReadCell(ctx, uint16(addr))
			if err != nil {
				return nil, err
			}
			br.cache[uint16(addr)] = c
		}
		for i := pos % CellSize; i < CellSize && pos < offset+n; i++ {
			out = append(out, c[i])
			pos++
		}
	}
	return out, nil
}

// firstRecordCell is the cell holding the first NDEF record, right after
// the cell of the NDEF TLV header.
func (cc CapabilityContainer) firstRecordCell() uint16 {
	return cc.tlvCell() + 1
}

// ScanPayloadOffset walks the NDEF message and returns the cell address at
// which the SmarTag record payload starts. Records are addressed in whole
// cells: the position advances by the record size divided by the cell size,
// and the payload offset inside the matching record is truncated the same way.
func ScanPayloadOffset(ctx context.Context, r CellReader, cc CapabilityContainer) (uint16, error) {
	total := cc.TotalCells()
	br := &byteReader{r: r, limit: total, cache: make(map[uint16]Cell)}

	for offset := int(cc.firstRecordCell()); offset < int(total)-1; {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		start := offset * CellSize
		flags, err := br.read(ctx, start, 1)
		if err != nil {
			return 0, err
		}
		raw, err := br.read(ctx, start, headerLength(flags[0]))
		if err != nil {
			return 0, err
		}
		header, err := ParseNDefRecordHeader(raw)
		if err != nil {
			return 0, err
		}
		debugf("ndef record at cell %d: tnf=%d type=%d id=%d payload=%d last=%v",
			offset, header.TypeNameFormat, header.TypeLength, header.IDLength,
			header.PayloadLength, header.IsLastRecord)

		if header.TypeNameFormat == TNFExternal && int(header.TypeLength) == len(AppRecordType) {
			typ, err := br.read(ctx, start+header.Length(), int(header.TypeLength))
			if err != nil {
				return 0, err
			}
			if string(typ) == AppRecordType {
				skip := header.Length() + int(header.TypeLength) + int(header.IDLength)
				return uint16(offset + skip/CellSize), nil
			}
		}

		if header.IsLastRecord {
			return 0, ErrLayoutNotFound
		}
		// A record shorter than a cell would never move the scan forward.
		offset += max(header.RecordLength()/CellSize, 1)
	}
	return 0, ErrLayoutNotFound
}
