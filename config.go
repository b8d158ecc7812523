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
	"strings"

	"github.com/ZaparooProject/go-smartag/internal/cellbits"
)

// Mode is the acquisition mode of the tag.
type Mode uint8

// Acquisition modes. The numeric values are the stored mode codes, except
// ModeUnknown which stands for any unrecognized code.
const (
	ModeInactive              Mode = 0
	ModeSampling              Mode = 1
	ModeOneShot               Mode = 2
	ModeSamplingWithThreshold Mode = 3
	ModeSaveNextSample        Mode = 4
	ModeUnknown               Mode = 0xFF
)

var modeNames = map[Mode]string{
	ModeInactive:              "inactive",
	ModeSampling:              "sampling",
	ModeOneShot:               "one_shot",
	ModeSamplingWithThreshold: "sampling_with_threshold",
	ModeSaveNextSample:        "save_next_sample",
	ModeUnknown:               "unknown",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode parses a mode name as printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s && m != ModeUnknown {
			return m, nil
		}
	}
	return ModeUnknown, fmt.Errorf("%w: unknown mode %q", ErrInvalidParameter, s)
}

func decodeMode(code byte) Mode {
	if code <= byte(ModeSaveNextSample) {
		return Mode(code)
	}
	return ModeUnknown
}

// Threshold bounds for one channel. Nil bounds are unset.
type Threshold struct {
	Min *float64
	Max *float64
}

// SensorConfiguration enables a channel and sets its threshold.
type SensorConfiguration struct {
	Threshold Threshold
	Enabled   bool
}

// SamplingConfiguration is the acquisition setup stored on the tag.
type SamplingConfiguration struct {
	Temperature     SensorConfiguration
	Humidity        SensorConfiguration
	Pressure        SensorConfiguration
	Acceleration    SensorConfiguration
	Orientation     SensorConfiguration
	WakeUp          SensorConfiguration
	IntervalSeconds int
	Mode            Mode
}

const (
	configIntervalOffset = 0
	configModeOffset     = 2
	configFlagsOffset    = 3

	flagTemperature  = 0
	flagHumidity     = 1
	flagPressure     = 2
	flagAcceleration = 3
	flagOrientation  = 4
	flagWakeUp       = 5
)

// Validate checks that the configuration can be written to a tag.
func (c *SamplingConfiguration) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil configuration", ErrInvalidParameter)
	}
	if c.Mode == ModeUnknown || c.Mode > ModeSaveNextSample {
		return fmt.Errorf("%w: %v", ErrUnknownMode, c.Mode)
	}
	if !IntervalRange.Contains(float64(c.IntervalSeconds)) {
		return fmt.Errorf("%w: sampling interval %ds outside %v..%v",
			ErrInvalidParameter, c.IntervalSeconds, IntervalRange.Min, IntervalRange.Max)
	}
	channels := []struct {
		name string
		conf SensorConfiguration
		r    Range
	}{
		{"temperature", c.Temperature, TemperatureRange},
		{"humidity", c.Humidity, HumidityRange},
		{"pressure", c.Pressure, PressureRange},
		{"acceleration", c.Acceleration, AccelerationRange},
		{"wake-up", c.WakeUp, AccelerationRange},
	}
	for _, ch := range channels {
		for _, bound := range []*float64{ch.conf.Threshold.Min, ch.conf.Threshold.Max} {
			if bound != nil && !ch.r.Contains(*bound) {
				return fmt.Errorf("%w: %s threshold %v outside %v..%v",
					ErrInvalidParameter, ch.name, *bound, ch.r.Min, ch.r.Max)
			}
		}
	}
	return nil
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func ptr(v float64) *float64 {
	return &v
}

// EncodeConfiguration packs the configuration cell and both threshold cells.
// Unset temperature and humidity thresholds are stored as the inverted
// channel range, unset pressure thresholds as the range itself, and an unset
// acceleration threshold as zero.
func EncodeConfiguration(c *SamplingConfiguration) (config, tempHum, presAcc Cell, err error) {
	if err = c.Validate(); err != nil {
		return Cell{}, Cell{}, Cell{}, err
	}

	interval := cellbits.PutLeUint16(uint16(c.IntervalSeconds))
	config[configIntervalOffset] = interval[0]
	config[configIntervalOffset+1] = interval[1]
	config[configModeOffset] = byte(c.Mode)

	var flags uint32
	flags = cellbits.SetBit(flags, flagTemperature, c.Temperature.Enabled)
	flags = cellbits.SetBit(flags, flagHumidity, c.Humidity.Enabled)
	flags = cellbits.SetBit(flags, flagPressure, c.Pressure.Enabled)
	flags = cellbits.SetBit(flags, flagAcceleration, c.Acceleration.Enabled)
	flags = cellbits.SetBit(flags, flagOrientation, c.Orientation.Enabled)
	flags = cellbits.SetBit(flags, flagWakeUp, c.WakeUp.Enabled)
	config[configFlagsOffset] = byte(flags)

	tempHum = TempHumCell{
		TemperatureMax: valueOr(c.Temperature.Threshold.Max, TemperatureRange.Min),
		TemperatureMin: valueOr(c.Temperature.Threshold.Min, TemperatureRange.Max),
		HumidityMax:    valueOr(c.Humidity.Threshold.Max, HumidityRange.Min),
		HumidityMin:    valueOr(c.Humidity.Threshold.Min, HumidityRange.Max),
	}.Encode()

	accMax := c.Acceleration.Threshold.Max
	if accMax == nil {
		accMax = c.WakeUp.Threshold.Max
	}
	presAcc = PresAccCell{
		PressureMax:     valueOr(c.Pressure.Threshold.Max, PressureRange.Max),
		PressureMin:     valueOr(c.Pressure.Threshold.Min, PressureRange.Min),
		AccelerationMax: valueOr(accMax, AccelerationRange.Min),
	}.Encode()

	return config, tempHum, presAcc, nil
}

// DecodeConfiguration unpacks the configuration cell and its thresholds. An
// unrecognized mode code decodes to ModeUnknown.
func DecodeConfiguration(config, tempHum, presAcc Cell) *SamplingConfiguration {
	interval, _ := cellbits.LeUint16(config[configIntervalOffset:])
	flags := uint32(config[configFlagsOffset])
	th := DecodeTempHumCell(tempHum)
	pa := DecodePresAccCell(presAcc)

	return &SamplingConfiguration{
		IntervalSeconds: int(interval),
		Mode:            decodeMode(config[configModeOffset]),
		Temperature: SensorConfiguration{
			Enabled:   cellbits.Bit(flags, flagTemperature),
			Threshold: Threshold{Min: ptr(th.TemperatureMin), Max: ptr(th.TemperatureMax)},
		},
		Humidity: SensorConfiguration{
			Enabled:   cellbits.Bit(flags, flagHumidity),
			Threshold: Threshold{Min: ptr(th.HumidityMin), Max: ptr(th.HumidityMax)},
		},
		Pressure: SensorConfiguration{
			Enabled:   cellbits.Bit(flags, flagPressure),
			Threshold: Threshold{Min: ptr(pa.PressureMin), Max: ptr(pa.PressureMax)},
		},
		Acceleration: SensorConfiguration{
			Enabled:   cellbits.Bit(flags, flagAcceleration),
			Threshold: Threshold{Max: ptr(pa.AccelerationMax)},
		},
		Orientation: SensorConfiguration{
			Enabled: cellbits.Bit(flags, flagOrientation),
		},
		WakeUp: SensorConfiguration{
			Enabled:   cellbits.Bit(flags, flagWakeUp),
			Threshold: Threshold{Max: ptr(pa.AccelerationMax)},
		},
	}
}
