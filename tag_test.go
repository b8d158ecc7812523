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

package smartag_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/memtag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)

type fixture struct {
	mem    *memtag.Tag
	fw     *memtag.Firmware
	tag    *smartag.Tag
	layout smartag.MemoryLayout
}

func newFixture(t *testing.T, variant memtag.Variant, opts ...smartag.Option) *fixture {
	t.Helper()

	mem, _, err := memtag.NewFormatted(variant)
	require.NoError(t, err)
	fw, err := memtag.NewFirmware(mem, time.UTC)
	require.NoError(t, err)

	base := []smartag.Option{
		smartag.WithRetryConfig(smartag.NoRetryConfig()),
		smartag.WithClock(func() time.Time { return testNow }),
		smartag.WithLocation(time.UTC),
		smartag.WithPollInterval(time.Millisecond),
	}
	tag, err := smartag.New(mem, append(base, opts...)...)
	require.NoError(t, err)
	return &fixture{mem: mem, fw: fw, tag: tag, layout: fw.Layout()}
}

func f64(v float64) *float64 { return &v }

func allChannels(mode smartag.Mode) *smartag.SamplingConfiguration {
	on := smartag.SensorConfiguration{Enabled: true}
	return &smartag.SamplingConfiguration{
		IntervalSeconds: 60,
		Mode:            mode,
		Temperature:     on,
		Humidity:        on,
		Pressure:        on,
		Acceleration:    on,
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	t.Parallel()

	_, err := smartag.New(nil)
	require.ErrorIs(t, err, smartag.ErrInvalidParameter)

	_, err = smartag.New(memtag.New(memtag.Variant4K), smartag.WithPollInterval(0))
	require.ErrorIs(t, err, smartag.ErrInvalidParameter)

	_, err = smartag.New(memtag.New(memtag.Variant4K), smartag.WithMaxRetries(0))
	require.ErrorIs(t, err, smartag.ErrInvalidParameter)
}

func TestTagLayoutIsResolvedOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	ctx := context.Background()

	layout, err := f.tag.Layout(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.layout, layout)
	scanReads, _, _ := f.mem.Stats()

	_, err = f.tag.Layout(ctx)
	require.NoError(t, err)
	reads, connects, closes := f.mem.Stats()
	assert.Equal(t, scanReads, reads)
	assert.Equal(t, 2, connects)
	assert.Equal(t, 2, closes)
	assert.False(t, f.mem.Connected())

	f.tag.InvalidateLayout()
	_, err = f.tag.Layout(ctx)
	require.NoError(t, err)
	reads, _, _ = f.mem.Stats()
	assert.Equal(t, 2*scanReads, reads)
}

func TestTagLayoutVariants(t *testing.T) {
	t.Parallel()

	for _, variant := range []memtag.Variant{memtag.Variant4K, memtag.Variant64K} {
		f := newFixture(t, variant)
		layout, err := f.tag.Layout(context.Background())
		require.NoError(t, err, variant.String())
		assert.Equal(t, variant.Cells(), layout.TotalSize)
		assert.Equal(t, variant.Cells()-1, layout.LastAddress)
	}
}

func TestTagUnformatted(t *testing.T) {
	t.Parallel()

	tag, err := smartag.New(memtag.New(memtag.Variant4K), smartag.WithRetryConfig(nil))
	require.NoError(t, err)
	_, err = tag.ReadConfiguration(context.Background())
	require.ErrorIs(t, err, smartag.ErrInvalidCapabilityContainer)
}

func TestTagAbsent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	f.mem.SetPresent(false)

	_, err := f.tag.ReadFirmwareVersion(context.Background())
	require.ErrorIs(t, err, smartag.ErrTagNotFound)
	var te *smartag.TransportError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.Retryable)
}

func TestReadFirmwareVersion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	f.fw.SetVersion(smartag.Version{Major: 1, Minor: 4, Patch: 2})

	v, err := f.tag.ReadFirmwareVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", v.String())
}

func TestConfigurationRoundTripThroughTag(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	ctx := context.Background()

	want := &smartag.SamplingConfiguration{
		IntervalSeconds: 60,
		Mode:            smartag.ModeSampling,
		Temperature:     smartag.SensorConfiguration{Enabled: true, Threshold: smartag.Threshold{Min: f64(2), Max: f64(8)}},
		Humidity:        smartag.SensorConfiguration{Threshold: smartag.Threshold{Min: f64(20), Max: f64(80)}},
		Pressure:        smartag.SensorConfiguration{Enabled: true, Threshold: smartag.Threshold{Min: f64(950), Max: f64(1050)}},
		Acceleration:    smartag.SensorConfiguration{Threshold: smartag.Threshold{Max: f64(2048)}},
		WakeUp:          smartag.SensorConfiguration{Threshold: smartag.Threshold{Max: f64(2048)}},
	}
	require.NoError(t, f.tag.WriteConfiguration(ctx, want))

	got, err := f.tag.ReadConfiguration(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	status, err := f.tag.ReadStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.NewConfigurationAvailable)
	assert.True(t, f.fw.LoadConfiguration())

	status, err = f.tag.ReadStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.NewConfigurationAvailable)
}

func TestWriteConfigurationFollowsPlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mode      smartag.Mode
		wantSteps int
	}{
		{name: "sampling resets the log", mode: smartag.ModeSampling, wantSteps: 15},
		{name: "inactive resets the log", mode: smartag.ModeInactive, wantSteps: 15},
		{name: "save next sample keeps the log", mode: smartag.ModeSaveNextSample, wantSteps: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, memtag.Variant4K)
			conf := allChannels(tt.mode)
			plan, err := smartag.ConfigurationWritePlan(f.layout, conf, testNow)
			require.NoError(t, err)
			require.Len(t, plan, tt.wantSteps)

			want := make([]uint16, 0, len(plan))
			for _, w := range plan {
				want = append(want, w.Address)
			}
			assert.Equal(t, f.layout.Address(smartag.AddrAcquisitionStart), want[0])
			assert.Equal(t, f.layout.Address(smartag.AddrSamplingConfig), want[1])
			assert.Equal(t, f.layout.Address(smartag.AddrStatus), want[len(want)-1])

			require.NoError(t, f.tag.WriteConfiguration(context.Background(), conf))
			assert.Equal(t, want, f.mem.WriteLog())

			start, ok := smartag.DecodeDateTime(f.mem.Cell(f.layout.Address(smartag.AddrAcquisitionStart)), time.UTC)
			require.True(t, ok)
			assert.True(t, testNow.Equal(start))
		})
	}
}

func TestSaveNextSampleKeepsLog(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	ctx := context.Background()
	require.NoError(t, f.tag.WriteConfiguration(ctx, allChannels(smartag.ModeSampling)))
	for i := 0; i < 4; i++ {
		f.fw.Log(&smartag.SensorDataSample{Date: testNow.Add(time.Duration(i) * time.Minute), Temperature: f64(20)})
	}

	require.NoError(t, f.tag.WriteConfiguration(ctx, allChannels(smartag.ModeSaveNextSample)))
	samples, err := f.tag.ReadSamples(ctx)
	require.NoError(t, err)
	assert.Len(t, samples, 4)
}

func TestExtremesResetAfterConfiguration(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	ctx := context.Background()

	// Leave stale extremes from an earlier acquisition.
	require.NoError(t, f.tag.WriteConfiguration(ctx, allChannels(smartag.ModeSampling)))
	f.fw.Log(&smartag.SensorDataSample{Date: testNow, Temperature: f64(30), Humidity: f64(90), Pressure: f64(1100), Acceleration: f64(4096)})

	require.NoError(t, f.tag.WriteConfiguration(ctx, allChannels(smartag.ModeSampling)))
	ext, err := f.tag.ReadExtremes(ctx)
	require.NoError(t, err)
	require.NotNil(t, ext)
	assert.True(t, testNow.Equal(ext.AcquisitionStart))

	ranges := []struct {
		name string
		e    *smartag.DataExtreme
		r    smartag.Range
	}{
		{"temperature", ext.Temperature, smartag.TemperatureRange},
		{"humidity", ext.Humidity, smartag.HumidityRange},
		{"pressure", ext.Pressure, smartag.PressureRange},
	}
	for _, c := range ranges {
		require.NotNil(t, c.e, c.name)
		assert.False(t, c.e.MaxObserved(), c.name)
		assert.False(t, c.e.MinObserved(), c.name)
		assert.LessOrEqual(t, c.e.MaxValue, c.r.Min, c.name)
		assert.GreaterOrEqual(t, c.e.MinValue, c.r.Max, c.name)
	}
	require.NotNil(t, ext.Acceleration)
	assert.False(t, ext.Acceleration.MaxObserved())

	// Any first sample, even one at a range edge, becomes both bounds.
	sampleAt := testNow.Add(time.Hour)
	f.fw.Log(&smartag.SensorDataSample{Date: sampleAt, Temperature: f64(-40), Humidity: f64(100), Pressure: f64(1013.2), Acceleration: f64(512)})

	ext, err = f.tag.ReadExtremes(ctx)
	require.NoError(t, err)
	assert.InDelta(t, -40.0, ext.Temperature.MaxValue, 1e-9)
	assert.InDelta(t, -40.0, ext.Temperature.MinValue, 1e-9)
	assert.InDelta(t, 100.0, ext.Humidity.MaxValue, 1e-9)
	assert.InDelta(t, 100.0, ext.Humidity.MinValue, 1e-9)
	assert.InDelta(t, 1013.2, ext.Pressure.MaxValue, 1e-6)
	assert.InDelta(t, 1013.2, ext.Pressure.MinValue, 1e-6)
	assert.InDelta(t, 512.0, ext.Acceleration.MaxValue, 1e-9)
	for _, e := range []*smartag.DataExtreme{ext.Temperature, ext.Humidity, ext.Pressure} {
		assert.True(t, sampleAt.Equal(e.MaxDate))
		assert.True(t, sampleAt.Equal(e.MinDate))
	}
	assert.True(t, sampleAt.Equal(ext.Acceleration.MaxDate))
}

func TestReadExtremesWithoutAcquisition(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	ext, err := f.tag.ReadExtremes(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ext)
}

func TestReadExtremesOnlyEnabledChannels(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	ctx := context.Background()
	conf := allChannels(smartag.ModeSampling)
	conf.Humidity.Enabled = false
	conf.Acceleration.Enabled = false
	require.NoError(t, f.tag.WriteConfiguration(ctx, conf))

	// Reading a disabled channel would hit the fault.
	f.mem.SetReadFault(f.layout.Address(smartag.AddrMaxHumidityDate), errors.New("humidity date read"))

	ext, err := f.tag.ReadExtremes(ctx)
	require.NoError(t, err)
	assert.NotNil(t, ext.Temperature)
	assert.NotNil(t, ext.Pressure)
	assert.Nil(t, ext.Humidity)
	assert.Nil(t, ext.Acceleration)
}

func sensorSample(i int) *smartag.SensorDataSample {
	return &smartag.SensorDataSample{
		Date:         testNow.Add(time.Duration(i) * time.Minute),
		Temperature:  f64(float64(i%100 - 40)),
		Pressure:     f64(900 + float64(i%50)),
		Humidity:     f64(float64(i % 100)),
		Acceleration: f64(256 * float64(i%10)),
	}
}

func TestReadSamplesRingBuffer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	n := int(f.layout.MaxSamples)

	tests := []struct {
		name    string
		written int
	}{
		{name: "empty", written: 0},
		{name: "partial", written: 3},
		{name: "exactly full", written: n},
		{name: "wrapped", written: n + 7},
		{name: "wrapped twice", written: 2*n + 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, memtag.Variant4K)
			ctx := context.Background()
			require.NoError(t, f.tag.WriteConfiguration(ctx, allChannels(smartag.ModeSampling)))
			for i := 0; i < tt.written; i++ {
				f.fw.Log(sensorSample(i))
			}

			samples, err := f.tag.ReadSamples(ctx)
			require.NoError(t, err)

			want := min(tt.written, n)
			require.Len(t, samples, want)
			first := tt.written - want
			for j, s := range samples {
				expected := sensorSample(first + j)
				got, ok := s.(*smartag.SensorDataSample)
				require.True(t, ok)
				assert.True(t, expected.Date.Equal(got.Date), "sample %d", j)
				require.NotNil(t, got.Temperature)
				assert.InDelta(t, *expected.Temperature, *got.Temperature, 1e-9)
				require.NotNil(t, got.Pressure)
				assert.InDelta(t, *expected.Pressure, *got.Pressure, 1e-6)
			}
		})
	}
}

func TestReadSamplesEventsAndDisabledChannels(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	ctx := context.Background()
	conf := &smartag.SamplingConfiguration{
		IntervalSeconds: 30,
		Mode:            smartag.ModeSampling,
		Temperature:     smartag.SensorConfiguration{Enabled: true},
		Pressure:        smartag.SensorConfiguration{Enabled: true},
		Orientation:     smartag.SensorConfiguration{Enabled: true},
	}
	require.NoError(t, f.tag.WriteConfiguration(ctx, conf))

	f.fw.Log(sensorSample(1))
	f.fw.Log(&smartag.EventDataSample{
		Date:         testNow.Add(2 * time.Minute),
		Events:       smartag.EventOrientation | smartag.EventTilt,
		Orientation:  smartag.OrientationBottom,
		Acceleration: f64(1500),
	})
	f.fw.Log(sensorSample(3))

	samples, err := f.tag.ReadSamples(ctx)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	first := samples[0].(*smartag.SensorDataSample)
	assert.NotNil(t, first.Temperature)
	assert.NotNil(t, first.Pressure)
	assert.Nil(t, first.Humidity)
	assert.Nil(t, first.Acceleration)

	event, ok := samples[1].(*smartag.EventDataSample)
	require.True(t, ok)
	assert.Equal(t, smartag.EventOrientation|smartag.EventTilt, event.Events)
	assert.Equal(t, smartag.OrientationBottom, event.Orientation)
	require.NotNil(t, event.Acceleration)
	assert.InDelta(t, 1500.0, *event.Acceleration, 1e-9)

	assert.IsType(t, &smartag.SensorDataSample{}, samples[2])
}

func TestSampleStream(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	ctx := context.Background()
	require.NoError(t, f.tag.WriteConfiguration(ctx, allChannels(smartag.ModeSampling)))
	for i := 0; i < 5; i++ {
		f.fw.Log(sensorSample(i))
	}

	stream, err := f.tag.OpenSamples(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stream.Len())
	assert.Equal(t, smartag.ModeSampling, stream.Configuration().Mode)
	assert.True(t, f.mem.Connected())

	readsBefore, _, _ := f.mem.Stats()
	s, err := stream.Next(ctx)
	require.NoError(t, err)
	assert.True(t, testNow.Equal(s.SampleDate()))
	readsAfter, _, _ := f.mem.Stats()
	assert.Equal(t, 2, readsAfter-readsBefore)

	count := 1
	for s, err := range stream.All(ctx) {
		require.NoError(t, err)
		require.NotNil(t, s)
		count++
	}
	assert.Equal(t, 5, count)

	_, err = stream.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
	assert.False(t, f.mem.Connected())

	// The tag is usable again once the stream is closed.
	_, err = f.tag.ReadStatus(ctx)
	require.NoError(t, err)
}

func TestSampleStreamReadError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	ctx := context.Background()
	require.NoError(t, f.tag.WriteConfiguration(ctx, allChannels(smartag.ModeSampling)))
	for i := 0; i < 3; i++ {
		f.fw.Log(sensorSample(i))
	}
	_, value := f.layout.SampleSlot(1)
	f.mem.SetReadFault(value, smartag.NewTransportError("read", "memory", smartag.ErrTransportRead, smartag.ErrorTypePermanent))

	_, err := f.tag.ReadSamples(ctx)
	require.ErrorIs(t, err, smartag.ErrTransportRead)
	assert.False(t, f.mem.Connected())
}

func TestReadSamplesInvalidPosition(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	ctx := context.Background()
	require.NoError(t, f.tag.WriteConfiguration(ctx, allChannels(smartag.ModeSampling)))
	f.mem.SetCell(f.layout.Address(smartag.AddrSamplePosition), smartag.SamplePosition{
		NextSampleAddress: f.layout.FirstSampleAddress + 1,
		SampleCounter:     f.layout.MaxSamples + 1,
	}.Encode())

	_, err := f.tag.ReadSamples(ctx)
	require.ErrorIs(t, err, smartag.ErrInvalidSamplePosition)
}

func TestReadSingleShot(t *testing.T) {
	t.Parallel()

	var polls int
	f := newFixture(t, memtag.Variant4K,
		smartag.WithEnergyHarvesting(true),
		smartag.WithWaitNotifier(func(attempt int, wait time.Duration) {
			polls = attempt
			assert.Equal(t, time.Millisecond, wait)
		}),
	)
	status := f.layout.Address(smartag.AddrStatus)
	var statusReads int
	f.mem.OnRead(func(address uint16) {
		if address != status {
			return
		}
		statusReads++
		if statusReads == 3 {
			f.fw.CompleteSingleShot(21, 1000.5, 40, 512)
		}
	})

	sample, err := f.tag.ReadSingleShot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, polls)
	assert.True(t, testNow.Equal(sample.Date))
	assert.InDelta(t, 21.0, *sample.Temperature, 1e-9)
	assert.InDelta(t, 1000.5, *sample.Pressure, 1e-6)
	assert.InDelta(t, 40.0, *sample.Humidity, 1e-9)
	assert.InDelta(t, 512.0, *sample.Acceleration, 1e-9)
	assert.False(t, f.mem.Connected())
}

func TestReadSingleShotCancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.tag.ReadSingleShot(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, f.mem.Connected())
}

func TestWriteConfigurationPartialFailure(t *testing.T) {
	t.Parallel()

	failure := smartag.NewTransportError("write", "memory", smartag.ErrTransportWrite, smartag.ErrorTypePermanent)

	tests := []struct {
		name          string
		rel           uint16
		wantStep      string
		wantCompleted int
	}{
		{name: "first write", rel: smartag.AddrAcquisitionStart, wantStep: "acquisition start", wantCompleted: 0},
		{name: "configuration cell", rel: smartag.AddrSamplingConfig, wantStep: "configuration", wantCompleted: 1},
		{name: "status flag", rel: smartag.AddrStatus, wantStep: "status", wantCompleted: 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, memtag.Variant4K)
			f.mem.SetWriteFault(f.layout.Address(tt.rel), failure)

			err := f.tag.WriteConfiguration(context.Background(), allChannels(smartag.ModeSampling))
			var pw *smartag.PartialWriteError
			require.ErrorAs(t, err, &pw)
			assert.Equal(t, tt.wantStep, pw.Step)
			assert.Equal(t, tt.wantCompleted, pw.Completed)
			assert.Equal(t, 15, pw.Total)
			assert.Equal(t, tt.wantCompleted > 0, pw.StateUnknown())
			require.ErrorIs(t, err, smartag.ErrTransportWrite)
			assert.Len(t, f.mem.WriteLog(), tt.wantCompleted)
			assert.False(t, f.mem.Connected())
		})
	}
}

func TestWriteConfigurationRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	ctx := context.Background()
	f.mem.SetCell(f.layout.Address(smartag.AddrSamplingConfig), smartag.Cell{60, 0, 9, 0})

	conf, err := f.tag.ReadConfiguration(ctx)
	require.NoError(t, err)
	assert.Equal(t, smartag.ModeUnknown, conf.Mode)

	err = f.tag.WriteConfiguration(ctx, conf)
	require.ErrorIs(t, err, smartag.ErrUnknownMode)
	assert.Empty(t, f.mem.WriteLog())
}

func TestReadErrorsAreTransportErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, memtag.Variant4K)
	f.mem.SetReadFault(f.layout.Address(smartag.AddrTempHumThreshold), errors.New("nack"))

	_, err := f.tag.ReadConfiguration(context.Background())
	var te *smartag.TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Op, "read cell")
	assert.False(t, f.mem.Connected())
}

func TestWriteVerificationOption(t *testing.T) {
	t.Parallel()

	cfg := smartag.DefaultValidationConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.SettleDelay = 0
	f := newFixture(t, memtag.Variant4K, smartag.WithWriteVerification(cfg))

	require.NoError(t, f.tag.WriteConfiguration(context.Background(), allChannels(smartag.ModeSampling)))
	v, ok := f.tag.Transport().(*smartag.ValidatingTransport)
	require.True(t, ok)
	assert.Equal(t, uint64(15), v.Metrics().TotalOperations)
	assert.Zero(t, v.Metrics().FailedValidations)
}
