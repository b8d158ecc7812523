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
	"math"

	"github.com/ZaparooProject/go-smartag/internal/cellbits"
)

// Range is an inclusive physical value range.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Physical ranges of the SmarTag channels.
var (
	TemperatureRange  = Range{Min: -40, Max: 85}   // °C
	HumidityRange     = Range{Min: 0, Max: 100}    // %RH
	PressureRange     = Range{Min: 810, Max: 1210} // mbar
	AccelerationRange = Range{Min: 0, Max: 16000}  // mg
	IntervalRange     = Range{Min: 1, Max: 0xFFFF} // seconds
)

// QuantizedField is a fixed-point value packed into a bit field of a cell
// word. The stored code is round((value - Offset) * Scale). When Sentinel is
// set the all-ones code is reserved to mean "no value".
type QuantizedField struct {
	Offset   float64
	Scale    float64
	Shift    uint
	Width    uint
	Sentinel bool
}

// SentinelCode returns the all-ones code of the field.
func (f QuantizedField) SentinelCode() uint32 {
	return cellbits.Mask(f.Width)
}

// MaxCode returns the largest code holding a value.
func (f QuantizedField) MaxCode() uint32 {
	if f.Sentinel {
		return f.SentinelCode() - 1
	}
	return f.SentinelCode()
}

// Code converts v to its clamped field code.
func (f QuantizedField) Code(v float64) uint32 {
	if math.IsNaN(v) {
		return 0
	}
	scaled := math.Round((v - f.Offset) * f.Scale)
	if scaled <= 0 {
		return 0
	}
	if scaled >= float64(f.MaxCode()) {
		return f.MaxCode()
	}
	return uint32(scaled)
}

// Value converts a code back to a physical value.
func (f QuantizedField) Value(code uint32) float64 {
	return f.Offset + float64(code)/f.Scale
}

// Pack stores v into word.
func (f QuantizedField) Pack(word uint32, v float64) uint32 {
	return cellbits.SetField(word, f.Shift, f.Width, f.Code(v))
}

// PackOptional stores v into word, or the sentinel when v is nil.
func (f QuantizedField) PackOptional(word uint32, v *float64) uint32 {
	if v == nil && f.Sentinel {
		return cellbits.SetField(word, f.Shift, f.Width, f.SentinelCode())
	}
	if v == nil {
		return cellbits.SetField(word, f.Shift, f.Width, 0)
	}
	return f.Pack(word, *v)
}

// Unpack reads the value stored in word.
func (f QuantizedField) Unpack(word uint32) float64 {
	return f.Value(cellbits.Field(word, f.Shift, f.Width))
}

// UnpackOptional reads the value stored in word; the sentinel yields nil.
func (f QuantizedField) UnpackOptional(word uint32) *float64 {
	code := cellbits.Field(word, f.Shift, f.Width)
	if f.Sentinel && code == f.SentinelCode() {
		return nil
	}
	v := f.Value(code)
	return &v
}

// Quantize rounds v to the nearest value the field can represent.
func (f QuantizedField) Quantize(v float64) float64 {
	return f.Value(f.Code(v))
}
