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
	"fmt"

	"github.com/ZaparooProject/go-smartag/internal/cellbits"
)

const (
	statusNewConfigurationBit = 0
	statusSingleShotReadyBit  = 1
)

// TagStatus is the status cell shared between the reader and the tag firmware.
type TagStatus struct {
	// NewConfigurationAvailable asks the firmware to load the configuration.
	NewConfigurationAvailable bool
	// SingleShotResponseReady is set by the firmware once a single-shot
	// acquisition has been stored in the extreme cells.
	SingleShotResponseReady bool
}

// Encode packs the status cell.
func (s TagStatus) Encode() Cell {
	var w uint32
	w = cellbits.SetBit(w, statusNewConfigurationBit, s.NewConfigurationAvailable)
	w = cellbits.SetBit(w, statusSingleShotReadyBit, s.SingleShotResponseReady)
	return Cell(cellbits.PutLeUint32(w))
}

// DecodeTagStatus unpacks the status cell.
func DecodeTagStatus(c Cell) TagStatus {
	w, _ := cellbits.LeUint32(c[:])
	return TagStatus{
		NewConfigurationAvailable: cellbits.Bit(w, statusNewConfigurationBit),
		SingleShotResponseReady:   cellbits.Bit(w, statusSingleShotReadyBit),
	}
}

// SamplePosition is the ring buffer bookkeeping cell.
type SamplePosition struct {
	// NextSampleAddress is the absolute cell address of the next write.
	NextSampleAddress uint16
	// SampleCounter counts every sample written since the last reset.
	SampleCounter uint16
}

// Encode packs the next write address in the low half word and the counter
// in the high half word.
func (p SamplePosition) Encode() Cell {
	return Cell(cellbits.PutLeUint32(uint32(p.NextSampleAddress) | uint32(p.SampleCounter)<<16))
}

// DecodeSamplePosition unpacks the sample position cell.
func DecodeSamplePosition(c Cell) SamplePosition {
	w, _ := cellbits.LeUint32(c[:])
	return SamplePosition{
		NextSampleAddress: uint16(cellbits.Field(w, 0, 16)),
		SampleCounter:     uint16(cellbits.Field(w, 16, 16)),
	}
}

// Version is the firmware version stored in the first payload cell.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Encode packs the version cell.
func (v Version) Encode() Cell {
	return Cell{v.Major, v.Minor, v.Patch, 0}
}

// DecodeVersion unpacks the version cell.
func DecodeVersion(c Cell) Version {
	return Version{Major: c[0], Minor: c[1], Patch: c[2]}
}
