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

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/detection"
)

const dateLayout = "2006-01-02 15:04:05"

// Output handles consistent formatting of messages
type Output struct {
	w io.Writer
}

// NewOutput creates a new output handler
func NewOutput(w io.Writer) *Output {
	return &Output{w: w}
}

// Info prints an info message
func (o *Output) Info(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, "INFO: "+format+"\n", args...)
}

// OK prints a success message
func (o *Output) OK(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, "OK: "+format+"\n", args...)
}

// Warning prints a warning message
func (o *Output) Warning(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, "WARNING: "+format+"\n", args...)
}

func (o *Output) table(header string, rows func(tw *tabwriter.Writer)) {
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, header)
	rows(tw)
	_ = tw.Flush()
}

func confidence(c detection.Confidence) string {
	switch c {
	case detection.High:
		return "high"
	case detection.Medium:
		return "medium"
	default:
		return "low"
	}
}

// Devices prints detected devices, most likely first.
func (o *Output) Devices(devices []detection.DeviceInfo) {
	o.table("TRANSPORT\tPATH\tNAME\tCONFIDENCE", func(tw *tabwriter.Writer) {
		for _, d := range devices {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Transport, d.Path, d.Name, confidence(d.Confidence))
		}
	})
}

// TagInfo prints the firmware version, status flags and memory layout.
func (o *Output) TagInfo(version smartag.Version, status smartag.TagStatus, layout smartag.MemoryLayout) {
	o.table("FIELD\tVALUE", func(tw *tabwriter.Writer) {
		_, _ = fmt.Fprintf(tw, "Firmware\t%s\n", version)
		_, _ = fmt.Fprintf(tw, "Memory\t%d bytes\n", int(layout.TotalSize)*smartag.CellSize)
		_, _ = fmt.Fprintf(tw, "Payload offset\t0x%04X\n", layout.PayloadOffset)
		_, _ = fmt.Fprintf(tw, "Sample capacity\t%d\n", layout.MaxSamples)
		_, _ = fmt.Fprintf(tw, "Configuration pending\t%t\n", status.NewConfigurationAvailable)
		_, _ = fmt.Fprintf(tw, "Single-shot ready\t%t\n", status.SingleShotResponseReady)
	})
}

func bound(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// Configuration prints the sampling configuration.
func (o *Output) Configuration(conf *smartag.SamplingConfiguration) {
	_, _ = fmt.Fprintf(o.w, "Mode: %s\nInterval: %ds\n", conf.Mode, conf.IntervalSeconds)
	o.table("CHANNEL\tENABLED\tMIN\tMAX", func(tw *tabwriter.Writer) {
		for _, ch := range []struct {
			name string
			conf smartag.SensorConfiguration
		}{
			{"temperature", conf.Temperature},
			{"humidity", conf.Humidity},
			{"pressure", conf.Pressure},
			{"acceleration", conf.Acceleration},
			{"orientation", conf.Orientation},
			{"wake_up", conf.WakeUp},
		} {
			_, _ = fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n",
				ch.name, ch.conf.Enabled, bound(ch.conf.Threshold.Min), bound(ch.conf.Threshold.Max))
		}
	})
}

func extremeDate(t time.Time, observed bool) string {
	if !observed {
		return "-"
	}
	return t.Format(dateLayout)
}

// Extremes prints the extreme values; nil means no acquisition has started.
func (o *Output) Extremes(e *smartag.TagExtreme) {
	if e == nil {
		o.Info("no acquisition started")
		return
	}
	_, _ = fmt.Fprintf(o.w, "Acquisition start: %s\n", e.AcquisitionStart.Format(dateLayout))
	o.table("SENSOR\tMIN\tMIN DATE\tMAX\tMAX DATE", func(tw *tabwriter.Writer) {
		for _, ex := range []struct {
			name string
			e    *smartag.DataExtreme
		}{
			{"temperature", e.Temperature},
			{"humidity", e.Humidity},
			{"pressure", e.Pressure},
			{"acceleration", e.Acceleration},
		} {
			if ex.e == nil {
				continue
			}
			minValue, maxValue := "-", "-"
			if ex.e.MinObserved() {
				minValue = strconv.FormatFloat(ex.e.MinValue, 'f', 2, 64)
			}
			if ex.e.MaxObserved() {
				maxValue = strconv.FormatFloat(ex.e.MaxValue, 'f', 2, 64)
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ex.name,
				minValue, extremeDate(ex.e.MinDate, ex.e.MinObserved()),
				maxValue, extremeDate(ex.e.MaxDate, ex.e.MaxObserved()))
		}
	})
}

func sampleRow(s smartag.DataSample) string {
	switch v := s.(type) {
	case *smartag.SensorDataSample:
		return fmt.Sprintf("%s\tsensor\t%s\t%s\t%s\t%s\t\t",
			v.Date.Format(dateLayout), bound(v.Temperature), bound(v.Humidity),
			bound(v.Pressure), bound(v.Acceleration))
	case *smartag.EventDataSample:
		return fmt.Sprintf("%s\tevent\t\t\t\t%s\t%s\t%s",
			v.Date.Format(dateLayout), bound(v.Acceleration), v.Orientation,
			strings.Join(v.Events.Names(), ","))
	default:
		return ""
	}
}

// Samples prints the sample log.
func (o *Output) Samples(samples []smartag.DataSample) {
	o.table("DATE\tKIND\tTEMP\tHUM\tPRES\tACC\tORIENTATION\tEVENTS", func(tw *tabwriter.Writer) {
		for _, s := range samples {
			_, _ = fmt.Fprintln(tw, sampleRow(s))
		}
	})
}

// Sample prints one sample on a line, for follow modes.
func (o *Output) Sample(s smartag.DataSample) {
	_, _ = fmt.Fprintln(o.w, strings.Join(strings.Fields(sampleRow(s)), " "))
}
