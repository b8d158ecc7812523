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
)

// Cell addresses relative to the payload offset.
const (
	AddrFirmwareVersion     uint16 = 0x00
	AddrSamplingConfig      uint16 = 0x01
	AddrAcquisitionStart    uint16 = 0x02
	AddrTempHumThreshold    uint16 = 0x03
	AddrPresAccThreshold    uint16 = 0x04
	AddrStatus              uint16 = 0x05
	AddrMaxTemperatureDate  uint16 = 0x06
	AddrMinTemperatureDate  uint16 = 0x07
	AddrMaxHumidityDate     uint16 = 0x08
	AddrMinHumidityDate     uint16 = 0x09
	AddrTempHumExtremes     uint16 = 0x0A
	AddrMaxPressureDate     uint16 = 0x0B
	AddrMinPressureDate     uint16 = 0x0C
	AddrMaxAccelerationDate uint16 = 0x0D
	AddrPresAccExtremes     uint16 = 0x0E
	AddrSamplePosition      uint16 = 0x0F
	AddrFirstSample         uint16 = 0x10
	cellsPerSample          uint16 = 2
)

// MemoryLayout holds the absolute addresses derived from the tag size and
// the payload offset. All fields are cell addresses or counts.
type MemoryLayout struct {
	TotalSize          uint16
	PayloadOffset      uint16
	FirstSampleAddress uint16
	LastAddress        uint16
	MaxSamples         uint16
}

// NewMemoryLayout derives the layout of a tag of totalSize cells whose
// SmarTag payload starts at payloadOffset. The last cell holds the NDEF
// terminator TLV and is never used for samples.
func NewMemoryLayout(totalSize, payloadOffset uint16) (MemoryLayout, error) {
	if totalSize == 0 {
		return MemoryLayout{}, fmt.Errorf("%w: empty tag", ErrInvalidParameter)
	}
	l := MemoryLayout{
		TotalSize:          totalSize,
		PayloadOffset:      payloadOffset,
		FirstSampleAddress: payloadOffset + AddrFirstSample,
		LastAddress:        totalSize - 1,
	}
	if l.FirstSampleAddress >= l.LastAddress {
		return MemoryLayout{}, fmt.Errorf("%w: payload at cell %d leaves no room for samples in %d cells",
			ErrLayoutNotFound, payloadOffset, totalSize)
	}
	l.MaxSamples = (l.LastAddress - l.FirstSampleAddress) / cellsPerSample
	return l, nil
}

// Address converts a payload relative address to an absolute one.
func (l MemoryLayout) Address(rel uint16) uint16 {
	return l.PayloadOffset + rel
}

// SampleSlot returns the timestamp and value cell addresses of ring index i.
func (l MemoryLayout) SampleSlot(i uint16) (timestamp, value uint16) {
	timestamp = l.FirstSampleAddress + cellsPerSample*i
	return timestamp, timestamp + 1
}

// SampleIndex converts a next-sample address into a ring index.
func (l MemoryLayout) SampleIndex(address uint16) (uint16, error) {
	if address < l.FirstSampleAddress || (address-l.FirstSampleAddress)%cellsPerSample != 0 {
		return 0, fmt.Errorf("%w: address 0x%04X", ErrInvalidSamplePosition, address)
	}
	idx := (address - l.FirstSampleAddress) / cellsPerSample
	if idx > l.MaxSamples {
		return 0, fmt.Errorf("%w: address 0x%04X", ErrInvalidSamplePosition, address)
	}
	return idx % l.MaxSamples, nil
}

// ResolveLayout reads the capability container and scans the NDEF message
// for the SmarTag record.
func ResolveLayout(ctx context.Context, r CellReader) (MemoryLayout, error) {
	c, err := r.ReadCell(ctx, 0)
	if err != nil {
		return MemoryLayout{}, err
	}
	cc, err := DecodeCapabilityContainer(c)
	if err != nil {
		return MemoryLayout{}, err
	}
	offset, err := ScanPayloadOffset(ctx, r, cc)
	if err != nil {
		return MemoryLayout{}, err
	}
	layout, err := NewMemoryLayout(cc.TotalCells(), offset)
	if err != nil {
		return MemoryLayout{}, err
	}
	debugf("memory layout: %+v", layout)
	return layout, nil
}
