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

// Package export renders session snapshots as CSV logs and JSON documents.
package export

import (
	"encoding/json"
	"io"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/session"
)

// SensorData is the JSON form of a sensor sample. Disabled channels are
// omitted.
type SensorData struct {
	Date         time.Time `json:"date"`
	Acceleration *float64  `json:"acc,omitempty"`
	Pressure     *float64  `json:"pres,omitempty"`
	Temperature  *float64  `json:"temp,omitempty"`
	Humidity     *float64  `json:"hum,omitempty"`
}

// EventData is the JSON form of an event sample.
type EventData struct {
	Date         time.Time `json:"date"`
	Acceleration *float64  `json:"acc,omitempty"`
	Orientation  string    `json:"ori,omitempty"`
	Events       []string  `json:"evn"`
}

// Extreme is the JSON form of a DataExtreme; unobserved bounds are omitted.
type Extreme struct {
	MinDate *time.Time `json:"minDate,omitempty"`
	Min     *float64   `json:"min,omitempty"`
	MaxDate *time.Time `json:"maxDate,omitempty"`
	Max     *float64   `json:"max,omitempty"`
}

// Extremes is the JSON form of a TagExtreme.
type Extremes struct {
	Started      time.Time `json:"started"`
	Humidity     *Extreme  `json:"hum,omitempty"`
	Temperature  *Extreme  `json:"temp,omitempty"`
	Pressure     *Extreme  `json:"pres,omitempty"`
	Acceleration *Extreme  `json:"acc,omitempty"`
}

// Threshold is the JSON form of a channel threshold.
type Threshold struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Channel is the JSON form of a SensorConfiguration.
type Channel struct {
	Threshold *Threshold `json:"threshold,omitempty"`
	Enabled   bool       `json:"enabled"`
}

// Configuration is the JSON form of a SamplingConfiguration.
type Configuration struct {
	Mode         string  `json:"mode"`
	Temperature  Channel `json:"temp"`
	Humidity     Channel `json:"hum"`
	Pressure     Channel `json:"pres"`
	Acceleration Channel `json:"acc"`
	Orientation  Channel `json:"ori"`
	WakeUp       Channel `json:"wakeUp"`
	Interval     int     `json:"interval"`
}

// Document is the JSON export of a snapshot.
type Document struct {
	Taken         time.Time      `json:"taken"`
	Configuration *Configuration `json:"configuration,omitempty"`
	Extremes      *Extremes      `json:"Extremes,omitempty"`
	Session       string         `json:"session"`
	Firmware      string         `json:"firmware"`
	SensorData    []SensorData   `json:"SensorData"`
	EventData     []EventData    `json:"EventData"`
}

// NewSensorData converts a sensor sample.
func NewSensorData(s *smartag.SensorDataSample) SensorData {
	return SensorData{
		Date:         s.Date,
		Acceleration: s.Acceleration,
		Pressure:     s.Pressure,
		Temperature:  s.Temperature,
		Humidity:     s.Humidity,
	}
}

// NewEventData converts an event sample.
func NewEventData(s *smartag.EventDataSample) EventData {
	e := EventData{
		Date:         s.Date,
		Acceleration: s.Acceleration,
		Events:       s.Events.Names(),
	}
	if e.Events == nil {
		e.Events = []string{}
	}
	if s.Orientation != smartag.OrientationUnknown {
		e.Orientation = s.Orientation.String()
	}
	return e
}

// SplitSamples separates sensor and event samples, keeping their order.
func SplitSamples(samples []smartag.DataSample) (sensors []SensorData, events []EventData) {
	sensors = []SensorData{}
	events = []EventData{}
	for _, s := range samples {
		switch v := s.(type) {
		case *smartag.SensorDataSample:
			sensors = append(sensors, NewSensorData(v))
		case *smartag.EventDataSample:
			events = append(events, NewEventData(v))
		}
	}
	return sensors, events
}

func newExtreme(e *smartag.DataExtreme) *Extreme {
	if e == nil {
		return nil
	}
	out := &Extreme{}
	if e.MinObserved() {
		v, d := e.MinValue, e.MinDate
		out.Min, out.MinDate = &v, &d
	}
	if e.MaxObserved() {
		v, d := e.MaxValue, e.MaxDate
		out.Max, out.MaxDate = &v, &d
	}
	return out
}

// NewExtremes converts the extremes of a tag; nil stays nil.
func NewExtremes(e *smartag.TagExtreme) *Extremes {
	if e == nil {
		return nil
	}
	return &Extremes{
		Started:      e.AcquisitionStart,
		Humidity:     newExtreme(e.Humidity),
		Temperature:  newExtreme(e.Temperature),
		Pressure:     newExtreme(e.Pressure),
		Acceleration: newExtreme(e.Acceleration),
	}
}

func newChannel(c smartag.SensorConfiguration) Channel {
	ch := Channel{Enabled: c.Enabled}
	if c.Threshold.Min != nil || c.Threshold.Max != nil {
		ch.Threshold = &Threshold{Min: c.Threshold.Min, Max: c.Threshold.Max}
	}
	return ch
}

// NewConfiguration converts a sampling configuration; nil stays nil.
func NewConfiguration(c *smartag.SamplingConfiguration) *Configuration {
	if c == nil {
		return nil
	}
	return &Configuration{
		Mode:         c.Mode.String(),
		Interval:     c.IntervalSeconds,
		Temperature:  newChannel(c.Temperature),
		Humidity:     newChannel(c.Humidity),
		Pressure:     newChannel(c.Pressure),
		Acceleration: newChannel(c.Acceleration),
		Orientation:  newChannel(c.Orientation),
		WakeUp:       newChannel(c.WakeUp),
	}
}

// NewDocument converts a snapshot.
func NewDocument(snap *session.Snapshot) *Document {
	sensors, events := SplitSamples(snap.Samples)
	return &Document{
		Taken:         snap.Taken,
		Session:       snap.SessionID,
		Firmware:      snap.Firmware.String(),
		Configuration: NewConfiguration(snap.Configuration),
		Extremes:      NewExtremes(snap.Extremes),
		SensorData:    sensors,
		EventData:     events,
	}
}

// WriteJSON writes the snapshot as an indented JSON document.
func WriteJSON(w io.Writer, snap *session.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(snap))
}
