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

package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/session"
)

// CSVDateFormat is the date layout used inside CSV logs.
const CSVDateFormat = "02/01/06 15:04:05"

// FileName returns the conventional name of a CSV log taken at t.
func FileName(t time.Time) string {
	return t.Format("02-Jan-06_150405") + ".csv"
}

type csvWriter struct {
	w   *csv.Writer
	loc *time.Location
}

func (c *csvWriter) row(fields ...string) {
	// Write only fails through the underlying writer, reported by Error.
	_ = c.w.Write(fields)
}

func (c *csvWriter) blank() {
	c.row("")
	c.row("")
}

func (c *csvWriter) date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(c.loc).Format(CSVDateFormat)
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func optional(v *float64) string {
	if v == nil {
		return "NaN"
	}
	return number(*v)
}

func oneDecimal(v *float64) string {
	if v == nil {
		return "NaN"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// WriteCSV writes the snapshot as a CSV log: configuration, thresholds
// when the tag samples on threshold, extremes, sensor samples and events.
// Dates are rendered in loc.
func WriteCSV(w io.Writer, snap *session.Snapshot, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	c := &csvWriter{w: csv.NewWriter(w), loc: loc}

	if snap.Configuration != nil {
		c.configuration(snap.Configuration)
	}
	if snap.Extremes != nil {
		c.extremes(snap.Extremes)
	}

	var sensors []*smartag.SensorDataSample
	var events []*smartag.EventDataSample
	for _, s := range snap.Samples {
		switch v := s.(type) {
		case *smartag.SensorDataSample:
			sensors = append(sensors, v)
		case *smartag.EventDataSample:
			events = append(events, v)
		}
	}
	if len(sensors) > 0 {
		c.sensors(sensors)
	}
	if len(events) > 0 {
		c.events(events)
	}

	c.w.Flush()
	return c.w.Error()
}

func (c *csvWriter) configuration(conf *smartag.SamplingConfiguration) {
	c.row("Sampling Interval", strconv.Itoa(conf.IntervalSeconds), "seconds")
	c.row("Temperature Enabled:", yesNo(conf.Temperature.Enabled))
	c.row("Humidity Enabled:", yesNo(conf.Humidity.Enabled))
	c.row("Pressure Enabled:", yesNo(conf.Pressure.Enabled))
	c.row("Acceleration Enabled:", yesNo(conf.Acceleration.Enabled))
	if conf.Acceleration.Enabled {
		c.row("Orientation Enabled:", yesNo(conf.Orientation.Enabled))
		c.row("Wake Up Enabled:", yesNo(conf.WakeUp.Enabled))
	}

	if conf.Mode == smartag.ModeSamplingWithThreshold {
		c.row("Threshold")
		c.row("", "Min", "Max")
		channels := []struct {
			name string
			conf smartag.SensorConfiguration
		}{
			{"Temperature", conf.Temperature},
			{"Humidity", conf.Humidity},
			{"Pressure", conf.Pressure},
			{"Acceleration", conf.Acceleration},
			{"Orientation", conf.Orientation},
			{"Wake Up", conf.WakeUp},
		}
		for _, ch := range channels {
			if ch.conf.Enabled {
				c.row(ch.name, oneDecimal(ch.conf.Threshold.Min), oneDecimal(ch.conf.Threshold.Max))
			}
		}
	}
	c.blank()
}

func (c *csvWriter) extremes(e *smartag.TagExtreme) {
	c.row("Extreme measurements")
	c.row("Acquisition start:", c.date(e.AcquisitionStart))
	c.row("", "Value", "Unit", "Date")

	bounds := func(name, unit string, d *smartag.DataExtreme) {
		if d == nil {
			return
		}
		if d.MaxObserved() {
			c.row("Maximum "+name+":", number(d.MaxValue), unit, c.date(d.MaxDate))
		}
		if d.MinObserved() {
			c.row("Minimum "+name+":", number(d.MinValue), unit, c.date(d.MinDate))
		}
	}
	bounds("Temperature", "°C", e.Temperature)
	bounds("Humidity", "%", e.Humidity)
	bounds("Pressure", "mBar", e.Pressure)
	if e.Acceleration != nil && e.Acceleration.MaxObserved() {
		c.row("Maximum Acceleration:", number(e.Acceleration.MaxValue), "mg", c.date(e.Acceleration.MaxDate))
	}
	c.blank()
}

func (c *csvWriter) sensors(samples []*smartag.SensorDataSample) {
	c.row("Data Log")
	c.row("Date", "Pressure (mBar)", "Humidity (%)", "Temperature (°C)", "Acceleration (mg)")
	for _, s := range samples {
		c.row(c.date(s.Date), optional(s.Pressure), optional(s.Humidity), optional(s.Temperature), optional(s.Acceleration))
	}
	c.blank()
}

func (c *csvWriter) events(samples []*smartag.EventDataSample) {
	c.row("Events")
	c.row("Date", "Event", "Orientation", "Acceleration (mg)")
	for _, s := range samples {
		c.row(c.date(s.Date), strings.Join(s.Events.Names(), " "), s.Orientation.String(), optional(s.Acceleration))
	}
	c.blank()
}
