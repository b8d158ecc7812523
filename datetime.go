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
	"time"

	"github.com/ZaparooProject/go-smartag/internal/cellbits"
)

// EpochYear is the year encoded as zero in date cells.
const EpochYear = 2018

const (
	dateSecondShift = 0
	dateMinuteShift = 6
	dateHourShift   = 12
	dateMonthShift  = 17
	dateDayShift    = 21
	dateYearShift   = 26

	dateSecondWidth = 6
	dateMinuteWidth = 6
	dateHourWidth   = 5
	dateMonthWidth  = 4
	dateDayWidth    = 5
	dateYearWidth   = 6

	// eventSampleBit marks a sample timestamp whose value cell is an event.
	eventSampleBit = 31
)

// EncodeDateTime packs the wall clock fields of t into a date cell. Years
// outside EpochYear..EpochYear+63 are out of range and wrap.
func EncodeDateTime(t time.Time) Cell {
	var w uint32
	w = cellbits.SetField(w, dateSecondShift, dateSecondWidth, uint32(t.Second()))
	w = cellbits.SetField(w, dateMinuteShift, dateMinuteWidth, uint32(t.Minute()))
	w = cellbits.SetField(w, dateHourShift, dateHourWidth, uint32(t.Hour()))
	w = cellbits.SetField(w, dateMonthShift, dateMonthWidth, uint32(t.Month()))
	w = cellbits.SetField(w, dateDayShift, dateDayWidth, uint32(t.Day()))
	w = cellbits.SetField(w, dateYearShift, dateYearWidth, uint32(t.Year()-EpochYear))
	return Cell(cellbits.PutLeUint32(w))
}

// DecodeDateTime unpacks a date cell in loc. A cell without a month or day,
// such as a cleared timestamp, is reported as absent.
func DecodeDateTime(c Cell, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	w, _ := cellbits.LeUint32(c[:])
	month := cellbits.Field(w, dateMonthShift, dateMonthWidth)
	day := cellbits.Field(w, dateDayShift, dateDayWidth)
	if month == 0 || month > 12 || day == 0 {
		return time.Time{}, false
	}
	return time.Date(
		EpochYear+int(cellbits.Field(w, dateYearShift, dateYearWidth)),
		time.Month(month),
		int(day),
		int(cellbits.Field(w, dateHourShift, dateHourWidth)),
		int(cellbits.Field(w, dateMinuteShift, dateMinuteWidth)),
		int(cellbits.Field(w, dateSecondShift, dateSecondWidth)),
		0, loc,
	), true
}

// splitSampleTimestamp separates the event marker from a sample timestamp
// cell and returns the remaining date cell.
func splitSampleTimestamp(c Cell) (Cell, bool) {
	w, _ := cellbits.LeUint32(c[:])
	isEvent := cellbits.Bit(w, eventSampleBit)
	return Cell(cellbits.PutLeUint32(cellbits.SetBit(w, eventSampleBit, false))), isEvent
}

// markEventTimestamp sets or clears the event marker of a sample timestamp.
func markEventTimestamp(c Cell, isEvent bool) Cell {
	w, _ := cellbits.LeUint32(c[:])
	return Cell(cellbits.PutLeUint32(cellbits.SetBit(w, eventSampleBit, isEvent)))
}
