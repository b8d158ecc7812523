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
	"context"
	"time"

	"github.com/ZaparooProject/go-smartag"
)

// Firmware emulates the sensor board side of the protocol: it appends
// samples to the ring buffer, tracks extremes and answers single-shot
// requests, writing straight into the tag memory.
type Firmware struct {
	tag    *Tag
	loc    *time.Location
	layout smartag.MemoryLayout
}

// NewFirmware resolves the layout of a formatted tag.
func NewFirmware(tag *Tag, loc *time.Location) (*Firmware, error) {
	if loc == nil {
		loc = time.Local
	}
	layout, err := smartag.ResolveLayout(context.Background(), direct{t: tag})
	if err != nil {
		return nil, err
	}
	return &Firmware{tag: tag, layout: layout, loc: loc}, nil
}

// Layout returns the resolved memory layout.
func (f *Firmware) Layout() smartag.MemoryLayout {
	return f.layout
}

func (f *Firmware) cell(rel uint16) smartag.Cell {
	return f.tag.Cell(f.layout.Address(rel))
}

func (f *Firmware) setCell(rel uint16, c smartag.Cell) {
	f.tag.SetCell(f.layout.Address(rel), c)
}

// SetVersion stores the firmware version cell.
func (f *Firmware) SetVersion(v smartag.Version) {
	f.setCell(smartag.AddrFirmwareVersion, v.Encode())
}

// Configuration decodes the configuration currently stored on the tag.
func (f *Firmware) Configuration() *smartag.SamplingConfiguration {
	return smartag.DecodeConfiguration(
		f.cell(smartag.AddrSamplingConfig),
		f.cell(smartag.AddrTempHumThreshold),
		f.cell(smartag.AddrPresAccThreshold),
	)
}

// LoadConfiguration acknowledges a new configuration by clearing the status
// flag. It reports whether a new configuration was pending.
func (f *Firmware) LoadConfiguration() bool {
	status := smartag.DecodeTagStatus(f.cell(smartag.AddrStatus))
	if !status.NewConfigurationAvailable {
		return false
	}
	status.NewConfigurationAvailable = false
	f.setCell(smartag.AddrStatus, status.Encode())
	return true
}

// Log appends a sample to the ring buffer, overwriting the oldest entry
// once the buffer is full, and updates the extremes of sensor samples.
func (f *Firmware) Log(sample smartag.DataSample) {
	posAddr := f.layout.Address(smartag.AddrSamplePosition)
	pos := smartag.DecodeSamplePosition(f.tag.Cell(posAddr))
	index, err := f.layout.SampleIndex(pos.NextSampleAddress)
	if err != nil {
		index = 0
	}

	ts, value := smartag.EncodeSample(sample)
	tsAddr, valueAddr := f.layout.SampleSlot(index)
	f.tag.SetCell(tsAddr, ts)
	f.tag.SetCell(valueAddr, value)

	next, _ := f.layout.SampleSlot((index + 1) % f.layout.MaxSamples)
	pos.NextSampleAddress = next
	if pos.SampleCounter < 0xFFFF {
		pos.SampleCounter++
	}
	f.tag.SetCell(posAddr, pos.Encode())

	if s, ok := sample.(*smartag.SensorDataSample); ok {
		f.updateExtremes(s)
	}
}

func (f *Firmware) observed(rel uint16) bool {
	_, ok := smartag.DecodeDateTime(f.cell(rel), f.loc)
	return ok
}

func (f *Firmware) track(value *float64, current *float64, dateRel uint16, date smartag.Cell, better func(v, cur float64) bool) {
	if value == nil {
		return
	}
	if !f.observed(dateRel) || better(*value, *current) {
		*current = *value
		f.setCell(dateRel, date)
	}
}

func lower(v, cur float64) bool  { return v < cur }
func higher(v, cur float64) bool { return v > cur }

func (f *Firmware) updateExtremes(s *smartag.SensorDataSample) {
	conf := f.Configuration()
	date := smartag.EncodeDateTime(s.Date.In(f.loc))

	th := smartag.DecodeTempHumCell(f.cell(smartag.AddrTempHumExtremes))
	if conf.Temperature.Enabled {
		f.track(s.Temperature, &th.TemperatureMax, smartag.AddrMaxTemperatureDate, date, higher)
		f.track(s.Temperature, &th.TemperatureMin, smartag.AddrMinTemperatureDate, date, lower)
	}
	if conf.Humidity.Enabled {
		f.track(s.Humidity, &th.HumidityMax, smartag.AddrMaxHumidityDate, date, higher)
		f.track(s.Humidity, &th.HumidityMin, smartag.AddrMinHumidityDate, date, lower)
	}
	f.setCell(smartag.AddrTempHumExtremes, th.Encode())

	pa := smartag.DecodePresAccCell(f.cell(smartag.AddrPresAccExtremes))
	if conf.Pressure.Enabled {
		f.track(s.Pressure, &pa.PressureMax, smartag.AddrMaxPressureDate, date, higher)
		f.track(s.Pressure, &pa.PressureMin, smartag.AddrMinPressureDate, date, lower)
	}
	if conf.Acceleration.Enabled {
		f.track(s.Acceleration, &pa.AccelerationMax, smartag.AddrMaxAccelerationDate, date, higher)
	}
	f.setCell(smartag.AddrPresAccExtremes, pa.Encode())
}

// CompleteSingleShot stores an on-demand acquisition in the extreme cells
// and raises the single-shot ready flag.
func (f *Firmware) CompleteSingleShot(temperature, pressure, humidity, acceleration float64) {
	f.setCell(smartag.AddrTempHumExtremes, smartag.TempHumCell{
		TemperatureMax: temperature,
		TemperatureMin: temperature,
		HumidityMax:    humidity,
		HumidityMin:    humidity,
	}.Encode())
	f.setCell(smartag.AddrPresAccExtremes, smartag.PresAccCell{
		PressureMax:     pressure,
		PressureMin:     pressure,
		AccelerationMax: acceleration,
	}.Encode())

	status := smartag.DecodeTagStatus(f.cell(smartag.AddrStatus))
	status.SingleShotResponseReady = true
	f.setCell(smartag.AddrStatus, status.Encode())
}
