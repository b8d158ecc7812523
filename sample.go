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
	"strings"
	"time"

	"github.com/ZaparooProject/go-smartag/internal/cellbits"
)

var (
	samplePressureField     = QuantizedField{Shift: 20, Width: 12, Offset: PressureRange.Min, Scale: 10, Sentinel: true}
	sampleTemperatureField  = QuantizedField{Shift: 13, Width: 7, Offset: TemperatureRange.Min, Scale: 1, Sentinel: true}
	sampleHumidityField     = QuantizedField{Shift: 6, Width: 7, Offset: HumidityRange.Min, Scale: 1, Sentinel: true}
	sampleAccelerationField = QuantizedField{Shift: 0, Width: 6, Offset: AccelerationRange.Min, Scale: 1.0 / 256, Sentinel: true}

	eventAccelerationField = QuantizedField{Shift: 16, Width: 16, Offset: 0, Scale: 1, Sentinel: true}
)

const (
	eventMaskShift        = 0
	eventMaskWidth        = 8
	eventOrientationShift = 8
	eventOrientationWidth = 3
)

// DataSample is one entry of the sample log: a *SensorDataSample or an
// *EventDataSample.
type DataSample interface {
	SampleDate() time.Time
	isDataSample()
}

// SensorDataSample is a periodic measurement. A nil channel was disabled
// when the sample was taken.
type SensorDataSample struct {
	Date         time.Time
	Temperature  *float64
	Pressure     *float64
	Humidity     *float64
	Acceleration *float64
}

// SampleDate returns when the sample was taken.
func (s *SensorDataSample) SampleDate() time.Time { return s.Date }
func (*SensorDataSample) isDataSample()           {}

// EventDataSample is an accelerometer event.
type EventDataSample struct {
	Date         time.Time
	Acceleration *float64
	Orientation  Orientation
	Events       AccelerationEvents
}

// SampleDate returns when the event happened.
func (s *EventDataSample) SampleDate() time.Time { return s.Date }
func (*EventDataSample) isDataSample()           {}

// AccelerationEvents is a set of accelerometer events.
type AccelerationEvents uint8

// Accelerometer event flags.
const (
	EventWakeUp      AccelerationEvents = 0x01
	EventOrientation AccelerationEvents = 0x02
	EventSingleTap   AccelerationEvents = 0x04
	EventDoubleTap   AccelerationEvents = 0x08
	EventFreeFall    AccelerationEvents = 0x10
	EventTilt        AccelerationEvents = 0x20

	allAccelerationEvents = EventWakeUp | EventOrientation | EventSingleTap |
		EventDoubleTap | EventFreeFall | EventTilt
)

var accelerationEventNames = []struct {
	name  string
	event AccelerationEvents
}{
	{"wake_up", EventWakeUp},
	{"orientation", EventOrientation},
	{"single_tap", EventSingleTap},
	{"double_tap", EventDoubleTap},
	{"free_fall", EventFreeFall},
	{"tilt", EventTilt},
}

// Has reports whether all events of e are in the set.
func (s AccelerationEvents) Has(e AccelerationEvents) bool {
	return s&e == e
}

// List returns the events of the set in flag order.
func (s AccelerationEvents) List() []AccelerationEvents {
	var out []AccelerationEvents
	for _, n := range accelerationEventNames {
		if s.Has(n.event) {
			out = append(out, n.event)
		}
	}
	return out
}

// Names returns the snake case names of the events in the set.
func (s AccelerationEvents) Names() []string {
	var out []string
	for _, n := range accelerationEventNames {
		if s.Has(n.event) {
			out = append(out, n.name)
		}
	}
	return out
}

func (s AccelerationEvents) String() string {
	return strings.Join(s.Names(), "|")
}

// Orientation of the tag reported with orientation events.
type Orientation uint8

// Orientation values.
const (
	OrientationUnknown Orientation = iota
	OrientationUpRight
	OrientationTop
	OrientationDownLeft
	OrientationBottom
	OrientationUpLeft
	OrientationDownRight
)

func (o Orientation) String() string {
	switch o {
	case OrientationUpRight:
		return "up_right"
	case OrientationTop:
		return "top"
	case OrientationDownLeft:
		return "down_left"
	case OrientationBottom:
		return "bottom"
	case OrientationUpLeft:
		return "up_left"
	case OrientationDownRight:
		return "down_right"
	default:
		return "unknown"
	}
}

// SensorValues is the content of a sample value cell.
type SensorValues struct {
	Temperature  *float64
	Pressure     *float64
	Humidity     *float64
	Acceleration *float64
}

// EncodeSensorValues packs a sample value cell. Nil channels are stored as
// the field sentinel.
func EncodeSensorValues(v SensorValues) Cell {
	var w uint32
	w = samplePressureField.PackOptional(w, v.Pressure)
	w = sampleTemperatureField.PackOptional(w, v.Temperature)
	w = sampleHumidityField.PackOptional(w, v.Humidity)
	w = sampleAccelerationField.PackOptional(w, v.Acceleration)
	return Cell(cellbits.PutLeUint32(w))
}

// DecodeSensorValues unpacks a sample value cell.
func DecodeSensorValues(c Cell) SensorValues {
	w, _ := cellbits.LeUint32(c[:])
	return SensorValues{
		Pressure:     samplePressureField.UnpackOptional(w),
		Temperature:  sampleTemperatureField.UnpackOptional(w),
		Humidity:     sampleHumidityField.UnpackOptional(w),
		Acceleration: sampleAccelerationField.UnpackOptional(w),
	}
}

// EventValues is the content of an event value cell.
type EventValues struct {
	Acceleration *float64
	Orientation  Orientation
	Events       AccelerationEvents
}

// EncodeEventValues packs an event value cell: event flags in byte 0, the
// orientation in the low bits of byte 1 and the acceleration in mg in the
// upper half word.
func EncodeEventValues(v EventValues) Cell {
	var w uint32
	w = cellbits.SetField(w, eventMaskShift, eventMaskWidth, uint32(v.Events&allAccelerationEvents))
	w = cellbits.SetField(w, eventOrientationShift, eventOrientationWidth, uint32(v.Orientation))
	w = eventAccelerationField.PackOptional(w, v.Acceleration)
	return Cell(cellbits.PutLeUint32(w))
}

// DecodeEventValues unpacks an event value cell.
func DecodeEventValues(c Cell) EventValues {
	w, _ := cellbits.LeUint32(c[:])
	return EventValues{
		Events:       AccelerationEvents(cellbits.Field(w, eventMaskShift, eventMaskWidth)) & allAccelerationEvents,
		Orientation:  Orientation(cellbits.Field(w, eventOrientationShift, eventOrientationWidth)),
		Acceleration: eventAccelerationField.UnpackOptional(w),
	}
}

// EncodeSample produces the timestamp and value cells of a sample slot.
func EncodeSample(s DataSample) (timestamp, value Cell) {
	switch v := s.(type) {
	case *EventDataSample:
		return markEventTimestamp(EncodeDateTime(v.Date), true), EncodeEventValues(EventValues{
			Acceleration: v.Acceleration,
			Orientation:  v.Orientation,
			Events:       v.Events,
		})
	case *SensorDataSample:
		return markEventTimestamp(EncodeDateTime(v.Date), false), EncodeSensorValues(SensorValues{
			Temperature:  v.Temperature,
			Pressure:     v.Pressure,
			Humidity:     v.Humidity,
			Acceleration: v.Acceleration,
		})
	default:
		return Cell{}, Cell{}
	}
}

// DecodeSample decodes a sample slot. The event marker of the timestamp
// selects the value cell format. Channels disabled in conf are dropped from
// sensor samples; conf may be nil to keep every stored channel.
func DecodeSample(timestamp, value Cell, conf *SamplingConfiguration, loc *time.Location) DataSample {
	dateCell, isEvent := splitSampleTimestamp(timestamp)
	date, _ := DecodeDateTime(dateCell, loc)

	if isEvent {
		ev := DecodeEventValues(value)
		return &EventDataSample{
			Date:         date,
			Acceleration: ev.Acceleration,
			Orientation:  ev.Orientation,
			Events:       ev.Events,
		}
	}

	sv := DecodeSensorValues(value)
	sample := &SensorDataSample{
		Date:         date,
		Temperature:  sv.Temperature,
		Pressure:     sv.Pressure,
		Humidity:     sv.Humidity,
		Acceleration: sv.Acceleration,
	}
	if conf != nil {
		if !conf.Temperature.Enabled {
			sample.Temperature = nil
		}
		if !conf.Pressure.Enabled {
			sample.Pressure = nil
		}
		if !conf.Humidity.Enabled {
			sample.Humidity = nil
		}
		if !conf.Acceleration.Enabled {
			sample.Acceleration = nil
		}
	}
	return sample
}
