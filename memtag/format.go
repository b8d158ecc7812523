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

package memtag

import (
	"fmt"

	"github.com/hsanjuan/go-ndef"

	"github.com/ZaparooProject/go-smartag"
)

// DefaultGreeting is the text record placed before the SmarTag record.
const DefaultGreeting = "SmarTag data logger"

const (
	flagMB byte = 0x80
	flagME byte = 0x40

	ndefTLV      byte = 0x03
	tlvLongForm  byte = 0xFF
	terminateTLV byte = 0xFE

	// sizingPayload forces the long record form while measuring headers.
	sizingPayload = 256
)

// capabilityContainer returns the CC bytes of the variant: 4 bytes for the
// 4K tag, 8 bytes with a zero length byte for the 64K tag.
func (v Variant) capabilityContainer() []byte {
	size := int(v.Cells()) * smartag.CellSize / 8
	if v == Variant64K {
		return []byte{0xE2, 0x40, 0x00, 0x01, 0x00, 0x00, byte(size >> 8), byte(size)}
	}
	return []byte{0xE2, 0x40, byte(size), 0x00}
}

func marshalRecords(greeting string, payloadLen int) (text, app []byte, err error) {
	text, err = ndef.NewTextMessage(greeting, "en").Marshal()
	if err != nil {
		return nil, nil, fmt.Errorf("marshal text record: %w", err)
	}
	app, err = ndef.NewExternalMessage(smartag.AppRecordType, make([]byte, payloadLen)).Marshal()
	if err != nil {
		return nil, nil, fmt.Errorf("marshal smartag record: %w", err)
	}
	return text, app, nil
}

// Format erases the tag and writes a capability container and an NDEF
// message made of a text record followed by the SmarTag external record.
// The SmarTag payload fills the memory up to the terminator cell. The text
// is padded so that the payload starts on a cell boundary. It returns the
// payload cell address.
func (t *Tag) Format(greeting string) (uint16, error) {
	if greeting == "" {
		greeting = DefaultGreeting
	}
	cc := t.variant.capabilityContainer()
	total := int(t.variant.Cells())
	msgStart := len(cc) + smartag.CellSize
	end := (total - 1) * smartag.CellSize

	var text, app []byte
	var payloadStart int
	for pad := 0; ; pad++ {
		if pad == smartag.CellSize {
			return 0, fmt.Errorf("memtag: cannot align smartag payload")
		}
		var err error
		text, app, err = marshalRecords(greeting, sizingPayload)
		if err != nil {
			return 0, err
		}
		payloadStart = msgStart + len(text) + len(app) - sizingPayload
		if payloadStart%smartag.CellSize == 0 {
			break
		}
		greeting += " "
	}

	payloadLen := end - payloadStart
	if payloadLen < sizingPayload {
		return 0, fmt.Errorf("memtag: no room for the smartag payload")
	}
	text, app, err := marshalRecords(greeting, payloadLen)
	if err != nil {
		return 0, err
	}

	text[0] = (text[0] | flagMB) &^ flagME
	app[0] = (app[0] | flagME) &^ flagMB
	msgLen := len(text) + len(app)

	image := make([]byte, total*smartag.CellSize)
	copy(image, cc)
	copy(image[len(cc):], []byte{ndefTLV, tlvLongForm, byte(msgLen >> 8), byte(msgLen)})
	copy(image[msgStart:], text)
	copy(image[msgStart+len(text):], app)
	image[end] = terminateTLV

	t.mu.Lock()
	for i := range t.cells {
		copy(t.cells[i][:], image[i*smartag.CellSize:])
	}
	t.mu.Unlock()

	return uint16(payloadStart / smartag.CellSize), nil
}

// NewFormatted creates a tag of the variant formatted with DefaultGreeting.
func NewFormatted(variant Variant) (*Tag, uint16, error) {
	t := New(variant)
	offset, err := t.Format(DefaultGreeting)
	if err != nil {
		return nil, 0, err
	}
	return t, offset, nil
}
