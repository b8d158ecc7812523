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
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/detection"
	"github.com/ZaparooProject/go-smartag/export"
	"github.com/ZaparooProject/go-smartag/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunUsage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{name: "no command", args: nil, code: 2, want: "Usage: smartag"},
		{name: "unknown command", args: []string{"format"}, code: 2, want: `unknown command "format"`},
		{name: "unknown flag", args: []string{"-bogus", "info"}, code: 2, want: "Commands:"},
		{name: "bad transport", args: []string{"-transport", "spi", "info"}, code: 1, want: "transport.type"},
		{name: "bad time zone", args: []string{"-tz", "Nowhere/Else", "info"}, code: 1, want: "timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestSimulateJSON(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, "-tz", "UTC", "simulate", "-samples", "6", "-interval", "120", "-format", "json")
	require.Equal(t, 0, code, stderr)

	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "1.2.0", doc.Firmware)
	require.NotNil(t, doc.Configuration)
	assert.Equal(t, "sampling", doc.Configuration.Mode)
	assert.Equal(t, 120, doc.Configuration.Interval)
	require.Len(t, doc.SensorData, 6)
	assert.Empty(t, doc.EventData)
	require.NotNil(t, doc.Extremes)
	require.NotNil(t, doc.Extremes.Temperature)
	assert.NotNil(t, doc.Extremes.Temperature.Max)

	for i := 1; i < len(doc.SensorData); i++ {
		gap := doc.SensorData[i].Date.Sub(doc.SensorData[i-1].Date)
		assert.Equal(t, 2*time.Minute, gap.Abs())
	}
}

func TestSimulateWithEvents(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
sampling:
  mode: sampling
  interval: 60
  temperature:
    enabled: true
  humidity:
    enabled: false
  pressure:
    enabled: false
  acceleration:
    enabled: true
`)
	code, stdout, stderr := runCLI(t, "-config", path, "-tz", "UTC", "simulate", "-samples", "8", "-format", "json")
	require.Equal(t, 0, code, stderr)

	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Len(t, doc.SensorData, 8)
	require.Len(t, doc.EventData, 2)
	assert.Equal(t, []string{"wake_up", "single_tap"}, doc.EventData[0].Events)
	assert.Equal(t, "top", doc.EventData[0].Orientation)
	for _, s := range doc.SensorData {
		assert.Nil(t, s.Humidity)
	}
}

func TestSimulateCSV(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, "-tz", "UTC", "simulate", "-samples", "3", "-format", "csv")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Extreme measurements")
	assert.Contains(t, stdout, "Data Log")
}

func TestSimulateText(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, "-tz", "UTC", "simulate", "-variant", "64k", "-samples", "2", "-single-shot")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "INFO: emulated ST25DV64K tag, firmware 1.2.0")
	assert.Contains(t, stdout, "INFO: single-shot sample")
	assert.Contains(t, stdout, "22.00")
	assert.Contains(t, stdout, "Mode: sampling")
	assert.Contains(t, stdout, "OK: ")
}

func TestSimulateBadFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "variant", args: []string{"simulate", "-variant", "16k"}},
		{name: "format", args: []string{"simulate", "-format", "xml"}},
		{name: "negative samples", args: []string{"simulate", "-samples", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, _, _ := runCLI(t, tt.args...)
			assert.Equal(t, 2, code)
		})
	}
}

func TestSimulateBadMode(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCLI(t, "simulate", "-mode", "turbo")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown mode")
}

func TestDevicePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		want   string
		device detection.DeviceInfo
	}{
		{
			name:   "i2c address stripped",
			device: detection.DeviceInfo{Transport: smartag.TransportI2C, Path: "/dev/i2c-1:0x53"},
			want:   "/dev/i2c-1",
		},
		{
			name:   "uart untouched",
			device: detection.DeviceInfo{Transport: smartag.TransportUART, Path: "/dev/ttyACM0"},
			want:   "/dev/ttyACM0",
		},
		{
			name:   "pcsc reader name untouched",
			device: detection.DeviceInfo{Transport: smartag.TransportPCSC, Path: "ACS ACR122U PICC Interface 00 00"},
			want:   "ACS ACR122U PICC Interface 00 00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, devicePath(tt.device))
		})
	}
}

func TestOutputSamples(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, time.March, 1, 8, 30, 0, 0, time.UTC)
	temp, acc := 21.5, 900.0
	var buf bytes.Buffer
	out := NewOutput(&buf)
	out.Samples([]smartag.DataSample{
		&smartag.SensorDataSample{Date: date, Temperature: &temp},
		&smartag.EventDataSample{
			Date:         date.Add(time.Minute),
			Acceleration: &acc,
			Orientation:  smartag.OrientationBottom,
			Events:       smartag.EventFreeFall,
		},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "DATE"))
	assert.Contains(t, lines[1], "2024-03-01 08:30:00")
	assert.Contains(t, lines[1], "21.50")
	assert.Contains(t, lines[2], "bottom")
	assert.Contains(t, lines[2], "free_fall")

	buf.Reset()
	out.Sample(&smartag.SensorDataSample{Date: date, Temperature: &temp})
	assert.Equal(t, "2024-03-01 08:30:00 sensor 21.50 - - -\n", buf.String())
}

func TestOutputExtremesWithoutAcquisition(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewOutput(&buf).Extremes(nil)
	assert.Equal(t, "INFO: no acquisition started\n", buf.String())
}

func TestExportSnapshotFile(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	a := &app{stdout: &stdout, out: NewOutput(&stdout), loc: time.UTC}
	snap := &session.Snapshot{
		Taken:         time.Date(2024, time.March, 1, 8, 30, 0, 0, time.UTC),
		Configuration: &smartag.SamplingConfiguration{Mode: smartag.ModeInactive, IntervalSeconds: 60},
		SessionID:     "test",
	}

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, a.exportSnapshot(snap, "json", path))
	assert.Contains(t, stdout.String(), "exported 0 samples")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc export.Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "test", doc.Session)
	assert.Equal(t, "inactive", doc.Configuration.Mode)
}
