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
	"time"

	"github.com/ZaparooProject/go-smartag/internal/cellbits"
)

var (
	extremeTempMaxField = QuantizedField{Shift: 0, Width: 8, Offset: TemperatureRange.Min, Scale: 1}
	extremeTempMinField = QuantizedField{Shift: 8, Width: 8, Offset: TemperatureRange.Min, Scale: 1}
	extremeHumMaxField  = QuantizedField{Shift: 16, Width: 8, Offset: HumidityRange.Min, Scale: 1}
	extremeHumMinField  = QuantizedField{Shift: 24, Width: 8, Offset: HumidityRange.Min, Scale: 1}

	extremePresMaxField = QuantizedField{Shift: 0, Width: 12, Offset: PressureRange.Min, Scale: 10}
	extremePresMinField = QuantizedField{Shift: 12, Width: 12, Offset: PressureRange.Min, Scale: 10}
	extremeAccMaxField  = QuantizedField{Shift: 24, Width: 6, Offset: AccelerationRange.Min, Scale: 1.0 / 256}
)

// TempHumCell holds a min/max pair for temperature and humidity. The same
// cell format stores both the recorded extremes and the thresholds.
type TempHumCell struct {
	TemperatureMax float64
	TemperatureMin float64
	HumidityMax    float64
	HumidityMin    float64
}

// Encode packs the cell: one byte per field, 1 °C and 1 %RH per LSB, offset
// from the channel range minimum.
func (c TempHumCell) Encode() Cell {
	var w uint32
	w = extremeTempMaxField.Pack(w, c.TemperatureMax)
	w = extremeTempMinField.Pack(w, c.TemperatureMin)
	w = extremeHumMaxField.Pack(w, c.HumidityMax)
	w = extremeHumMinField.Pack(w, c.HumidityMin)
	return Cell(cellbits.PutLeUint32(w))
}

// DecodeTempHumCell unpacks a temperature/humidity min/max cell.
func DecodeTempHumCell(c Cell) TempHumCell {
	w, _ := cellbits.LeUint32(c[:])
	return TempHumCell{
		TemperatureMax: extremeTempMaxField.Unpack(w),
		TemperatureMin: extremeTempMinField.Unpack(w),
		HumidityMax:    extremeHumMaxField.Unpack(w),
		HumidityMin:    extremeHumMinField.Unpack(w),
	}
}

// PresAccCell holds the pressure min/max pair and the acceleration maximum.
type PresAccCell struct {
	PressureMax     float64
	PressureMin     float64
	AccelerationMax float64
}

// Encode packs the cell: pressure in 12-bit fields at 0.1 mbar offset from
// 810 mbar, acceleration in a 6-bit field at 256 mg per LSB.
func (c PresAccCell) Encode() Cell {
	var w uint32
	w = extremePresMaxField.Pack(w, c.PressureMax)
	w = extremePresMinField.Pack(w, c.PressureMin)
	w = extremeAccMaxField.Pack(w, c.AccelerationMax)
	return Cell(cellbits.PutLeUint32(w))
}

// DecodePresAccCell unpacks a pressure/acceleration min/max cell.
func DecodePresAccCell(c Cell) PresAccCell {
	w, _ := cellbits.LeUint32(c[:])
	return PresAccCell{
		PressureMax:     extremePresMaxField.Unpack(w),
		PressureMin:     extremePresMinField.Unpack(w),
		AccelerationMax: extremeAccMaxField.Unpack(w),
	}
}

// resetTempHumCell is written after a configuration change so the first
// sample becomes both minimum and maximum.
func resetTempHumCell() TempHumCell {
	return TempHumCell{
		TemperatureMax: TemperatureRange.Min,
		TemperatureMin: TemperatureRange.Max,
		HumidityMax:    HumidityRange.Min,
		HumidityMin:    HumidityRange.Max,
	}
}

func resetPresAccCell() PresAccCell {
	return PresAccCell{
		PressureMax:     PressureRange.Min,
		PressureMin:     PressureRange.Max,
		AccelerationMax: AccelerationRange.Min,
	}
}

// DataExtreme is the minimum and maximum recorded for one channel. A zero
// date marks a bound that has not been observed since the last reset; the
// acceleration minimum is never recorded and is NaN.
type DataExtreme struct {
	MinDate  time.Time
	MaxDate  time.Time
	MinValue float64
	MaxValue float64
}

// MinObserved reports whether the minimum was recorded by the tag.
func (e DataExtreme) MinObserved() bool {
	return !e.MinDate.IsZero() && !math.IsNaN(e.MinValue)
}

// MaxObserved reports whether the maximum was recorded by the tag.
func (e DataExtreme) MaxObserved() bool {
	return !e.MaxDate.IsZero() && !math.IsNaN(e.MaxValue)
}

// TagExtreme holds the extremes recorded since acquisition start. Channels
// disabled in the configuration are nil.
type TagExtreme struct {
	AcquisitionStart time.Time
	Temperature      *DataExtreme
	Humidity         *DataExtreme
	Pressure         *DataExtreme
	Acceleration     *DataExtreme
}
