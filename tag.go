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
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"sync"
	"time"
)

// Tag runs the SmarTag memory protocol over a Transport.
//
// Every operation opens the transport, acts and closes it again. Operations
// on one Tag are serialized; two Tags must not be used against the same
// physical tag at the same time.
type Tag struct {
	transport Transport
	config    *TagConfig
	layout    *MemoryLayout
	mu        sync.Mutex
}

// New creates a Tag over transport.
func New(transport Transport, opts ...Option) (*Tag, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}
	config := DefaultTagConfig()
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	if config.RetryConfig != nil {
		transport = NewTransportWithRetry(transport, config.RetryConfig)
	}
	if config.Validation != nil {
		transport = NewValidatingTransport(transport, config.Validation)
	}
	return &Tag{transport: transport, config: config}, nil
}

// Transport returns the (possibly wrapped) transport used by the tag.
func (t *Tag) Transport() Transport {
	return t.transport
}

// InvalidateLayout drops the cached memory layout, e.g. after another tag
// was presented to the reader.
func (t *Tag) InvalidateLayout() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.layout = nil
}

func (t *Tag) now() time.Time {
	return t.config.Clock().In(t.config.Location)
}

// open connects and resolves the layout. The caller holds t.mu.
func (t *Tag) open(ctx context.Context) (MemoryLayout, error) {
	if err := t.transport.Connect(ctx); err != nil {
		return MemoryLayout{}, wrapTransportError("connect", err)
	}
	if t.layout != nil {
		return *t.layout, nil
	}
	layout, err := ResolveLayout(ctx, t.transport)
	if err != nil {
		_ = t.transport.Close()
		return MemoryLayout{}, err
	}
	t.layout = &layout
	return layout, nil
}

func (t *Tag) finish(err error) error {
	closeErr := t.transport.Close()
	var te *TransportError
	if errors.As(err, &te) {
		t.layout = nil
	}
	if err != nil {
		return err
	}
	if closeErr != nil {
		return wrapTransportError("close", closeErr)
	}
	return nil
}

// withConnection runs fn inside one open/close cycle.
func (t *Tag) withConnection(ctx context.Context, fn func(layout MemoryLayout) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	layout, err := t.open(ctx)
	if err != nil {
		return err
	}
	return t.finish(fn(layout))
}

func (t *Tag) readCell(ctx context.Context, address uint16) (Cell, error) {
	c, err := t.transport.ReadCell(ctx, address)
	if err != nil {
		return Cell{}, wrapTransportError(fmt.Sprintf("read cell 0x%04X", address), err)
	}
	return c, nil
}

func (t *Tag) writeCell(ctx context.Context, address uint16, data Cell) error {
	if err := t.transport.WriteCell(ctx, address, data); err != nil {
		return wrapTransportError(fmt.Sprintf("write cell 0x%04X", address), err)
	}
	return nil
}

// Layout returns the memory layout of the tag.
func (t *Tag) Layout(ctx context.Context) (MemoryLayout, error) {
	var out MemoryLayout
	err := t.withConnection(ctx, func(layout MemoryLayout) error {
		out = layout
		return nil
	})
	return out, err
}

// ReadFirmwareVersion reads the firmware version cell.
func (t *Tag) ReadFirmwareVersion(ctx context.Context) (Version, error) {
	var v Version
	err := t.withConnection(ctx, func(layout MemoryLayout) error {
		c, err := t.readCell(ctx, layout.Address(AddrFirmwareVersion))
		if err != nil {
			return err
		}
		v = DecodeVersion(c)
		return nil
	})
	return v, err
}

// ReadStatus reads the status cell.
func (t *Tag) ReadStatus(ctx context.Context) (TagStatus, error) {
	var s TagStatus
	err := t.withConnection(ctx, func(layout MemoryLayout) error {
		c, err := t.readCell(ctx, layout.Address(AddrStatus))
		if err != nil {
			return err
		}
		s = DecodeTagStatus(c)
		return nil
	})
	return s, err
}

func (t *Tag) readConfiguration(ctx context.Context, layout MemoryLayout) (*SamplingConfiguration, error) {
	conf, err := t.readCell(ctx, layout.Address(AddrSamplingConfig))
	if err != nil {
		return nil, err
	}
	tempHum, err := t.readCell(ctx, layout.Address(AddrTempHumThreshold))
	if err != nil {
		return nil, err
	}
	presAcc, err := t.readCell(ctx, layout.Address(AddrPresAccThreshold))
	if err != nil {
		return nil, err
	}
	return DecodeConfiguration(conf, tempHum, presAcc), nil
}

// ReadConfiguration reads the sampling configuration and its thresholds.
func (t *Tag) ReadConfiguration(ctx context.Context) (*SamplingConfiguration, error) {
	var out *SamplingConfiguration
	err := t.withConnection(ctx, func(layout MemoryLayout) error {
		var err error
		out, err = t.readConfiguration(ctx, layout)
		return err
	})
	return out, err
}

// PlannedWrite is one cell write of a write plan.
type PlannedWrite struct {
	Step    string
	Address uint16
	Data    Cell
}

// ConfigurationWritePlan returns the ordered cell writes that store conf.
// Unless conf keeps the running log (ModeSaveNextSample), the plan also
// rewinds the sample ring buffer and resets every extreme so that the first
// recorded sample becomes both minimum and maximum. The status flag asking
// the firmware to reload its configuration is always written last.
func ConfigurationWritePlan(layout MemoryLayout, conf *SamplingConfiguration, now time.Time) ([]PlannedWrite, error) {
	confCell, tempHum, presAcc, err := EncodeConfiguration(conf)
	if err != nil {
		return nil, err
	}

	plan := []PlannedWrite{
		{Step: "acquisition start", Address: layout.Address(AddrAcquisitionStart), Data: EncodeDateTime(now)},
		{Step: "configuration", Address: layout.Address(AddrSamplingConfig), Data: confCell},
		{Step: "temperature/humidity threshold", Address: layout.Address(AddrTempHumThreshold), Data: tempHum},
		{Step: "pressure/acceleration threshold", Address: layout.Address(AddrPresAccThreshold), Data: presAcc},
	}

	if conf.Mode != ModeSaveNextSample {
		var noDate Cell
		plan = append(plan,
			PlannedWrite{
				Step:    "sample position",
				Address: layout.Address(AddrSamplePosition),
				Data:    SamplePosition{NextSampleAddress: layout.FirstSampleAddress}.Encode(),
			},
			PlannedWrite{Step: "temperature/humidity extremes", Address: layout.Address(AddrTempHumExtremes), Data: resetTempHumCell().Encode()},
			PlannedWrite{Step: "max temperature date", Address: layout.Address(AddrMaxTemperatureDate), Data: noDate},
			PlannedWrite{Step: "min temperature date", Address: layout.Address(AddrMinTemperatureDate), Data: noDate},
			PlannedWrite{Step: "max humidity date", Address: layout.Address(AddrMaxHumidityDate), Data: noDate},
			PlannedWrite{Step: "min humidity date", Address: layout.Address(AddrMinHumidityDate), Data: noDate},
			PlannedWrite{Step: "pressure/acceleration extremes", Address: layout.Address(AddrPresAccExtremes), Data: resetPresAccCell().Encode()},
			PlannedWrite{Step: "max pressure date", Address: layout.Address(AddrMaxPressureDate), Data: noDate},
			PlannedWrite{Step: "min pressure date", Address: layout.Address(AddrMinPressureDate), Data: noDate},
			PlannedWrite{Step: "max acceleration date", Address: layout.Address(AddrMaxAccelerationDate), Data: noDate},
		)
	}

	plan = append(plan, PlannedWrite{
		Step:    "status",
		Address: layout.Address(AddrStatus),
		Data:    TagStatus{NewConfigurationAvailable: true}.Encode(),
	})
	return plan, nil
}

// WriteConfiguration stores conf on the tag following ConfigurationWritePlan.
// Cells are written one at a time and nothing is rolled back: when a write
// fails after others succeeded a *PartialWriteError is returned and the tag
// configuration must be considered unknown until read again.
func (t *Tag) WriteConfiguration(ctx context.Context, conf *SamplingConfiguration) error {
	if err := conf.Validate(); err != nil {
		return err
	}
	return t.withConnection(ctx, func(layout MemoryLayout) error {
		plan, err := ConfigurationWritePlan(layout, conf, t.now())
		if err != nil {
			return err
		}
		for i, w := range plan {
			debugf("write plan %d/%d: %s -> 0x%04X", i+1, len(plan), w.Step, w.Address)
			if err := t.writeCell(ctx, w.Address, w.Data); err != nil {
				return &PartialWriteError{Err: err, Step: w.Step, Completed: i, Total: len(plan)}
			}
		}
		return nil
	})
}

// extremeReader reads the shared extreme cells at most once.
type extremeReader struct {
	tag     *Tag
	tempHum *TempHumCell
	presAcc *PresAccCell
	layout  MemoryLayout
}

func (r *extremeReader) date(ctx context.Context, rel uint16) (time.Time, error) {
	c, err := r.tag.readCell(ctx, r.layout.Address(rel))
	if err != nil {
		return time.Time{}, err
	}
	d, _ := DecodeDateTime(c, r.tag.config.Location)
	return d, nil
}

func (r *extremeReader) tempHumCell(ctx context.Context) (TempHumCell, error) {
	if r.tempHum == nil {
		c, err := r.tag.readCell(ctx, r.layout.Address(AddrTempHumExtremes))
		if err != nil {
			return TempHumCell{}, err
		}
		v := DecodeTempHumCell(c)
		r.tempHum = &v
	}
	return *r.tempHum, nil
}

func (r *extremeReader) presAccCell(ctx context.Context) (PresAccCell, error) {
	if r.presAcc == nil {
		c, err := r.tag.readCell(ctx, r.layout.Address(AddrPresAccExtremes))
		if err != nil {
			return PresAccCell{}, err
		}
		v := DecodePresAccCell(c)
		r.presAcc = &v
	}
	return *r.presAcc, nil
}

func (r *extremeReader) extreme(ctx context.Context, minRel, maxRel uint16, minValue, maxValue float64) (*DataExtreme, error) {
	maxDate, err := r.date(ctx, maxRel)
	if err != nil {
		return nil, err
	}
	minDate, err := r.date(ctx, minRel)
	if err != nil {
		return nil, err
	}
	return &DataExtreme{MinDate: minDate, MinValue: minValue, MaxDate: maxDate, MaxValue: maxValue}, nil
}

func (r *extremeReader) read(ctx context.Context, conf *SamplingConfiguration) (*TagExtreme, error) {
	out := &TagExtreme{}

	if conf.Temperature.Enabled {
		th, err := r.tempHumCell(ctx)
		if err != nil {
			return nil, err
		}
		if out.Temperature, err = r.extreme(ctx, AddrMinTemperatureDate, AddrMaxTemperatureDate,
			th.TemperatureMin, th.TemperatureMax); err != nil {
			return nil, err
		}
	}
	if conf.Humidity.Enabled {
		th, err := r.tempHumCell(ctx)
		if err != nil {
			return nil, err
		}
		if out.Humidity, err = r.extreme(ctx, AddrMinHumidityDate, AddrMaxHumidityDate,
			th.HumidityMin, th.HumidityMax); err != nil {
			return nil, err
		}
	}
	if conf.Pressure.Enabled {
		pa, err := r.presAccCell(ctx)
		if err != nil {
			return nil, err
		}
		if out.Pressure, err = r.extreme(ctx, AddrMinPressureDate, AddrMaxPressureDate,
			pa.PressureMin, pa.PressureMax); err != nil {
			return nil, err
		}
	}
	if conf.Acceleration.Enabled {
		pa, err := r.presAccCell(ctx)
		if err != nil {
			return nil, err
		}
		maxDate, err := r.date(ctx, AddrMaxAccelerationDate)
		if err != nil {
			return nil, err
		}
		out.Acceleration = &DataExtreme{MinValue: math.NaN(), MaxDate: maxDate, MaxValue: pa.AccelerationMax}
	}
	return out, nil
}

// ReadExtremes reads the extremes of the enabled channels. It returns nil
// without error when no acquisition has been started on the tag.
func (t *Tag) ReadExtremes(ctx context.Context) (*TagExtreme, error) {
	var out *TagExtreme
	err := t.withConnection(ctx, func(layout MemoryLayout) error {
		c, err := t.readCell(ctx, layout.Address(AddrAcquisitionStart))
		if err != nil {
			return err
		}
		start, ok := DecodeDateTime(c, t.config.Location)
		if !ok {
			debugln("no acquisition start recorded")
			return nil
		}
		conf, err := t.readConfiguration(ctx, layout)
		if err != nil {
			return err
		}
		r := &extremeReader{tag: t, layout: layout}
		if out, err = r.read(ctx, conf); err != nil {
			return err
		}
		out.AcquisitionStart = start
		return nil
	})
	return out, err
}

// SampleStream reads the sample log lazily, oldest sample first. It keeps
// the transport open and the Tag locked until Close.
type SampleStream struct {
	tag    *Tag
	conf   *SamplingConfiguration
	layout MemoryLayout
	count  int
	read   int
	index  uint16
	closed bool
	err    error
}

// sampleWindow returns how many samples survive in the ring buffer and the
// ring index of the oldest one.
func sampleWindow(layout MemoryLayout, pos SamplePosition) (count int, start uint16, err error) {
	if layout.MaxSamples == 0 || pos.SampleCounter == 0 {
		return 0, 0, nil
	}
	if pos.SampleCounter < layout.MaxSamples {
		return int(pos.SampleCounter), 0, nil
	}
	next, err := layout.SampleIndex(pos.NextSampleAddress)
	if err != nil {
		return 0, 0, err
	}
	return int(layout.MaxSamples), next, nil
}

// OpenSamples starts reading the sample log. Len is known before the first
// call to Next. Close must always be called.
func (t *Tag) OpenSamples(ctx context.Context) (*SampleStream, error) {
	t.mu.Lock()
	layout, err := t.open(ctx)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}

	s := &SampleStream{tag: t, layout: layout}
	if err := s.init(ctx); err != nil {
		_ = t.finish(err)
		t.mu.Unlock()
		return nil, err
	}
	return s, nil
}

func (s *SampleStream) init(ctx context.Context) error {
	conf, err := s.tag.readConfiguration(ctx, s.layout)
	if err != nil {
		return err
	}
	c, err := s.tag.readCell(ctx, s.layout.Address(AddrSamplePosition))
	if err != nil {
		return err
	}
	pos := DecodeSamplePosition(c)
	count, start, err := sampleWindow(s.layout, pos)
	if err != nil {
		return err
	}
	debugf("sample log: counter=%d next=0x%04X count=%d start=%d",
		pos.SampleCounter, pos.NextSampleAddress, count, start)
	s.conf, s.count, s.index = conf, count, start
	return nil
}

// Len returns the number of samples the stream yields.
func (s *SampleStream) Len() int {
	return s.count
}

// Configuration returns the configuration the samples are decoded with.
func (s *SampleStream) Configuration() *SamplingConfiguration {
	return s.conf
}

// Next returns the next sample, or io.EOF after the last one.
func (s *SampleStream) Next(ctx context.Context) (DataSample, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.closed || s.read >= s.count {
		return nil, io.EOF
	}

	tsAddr, valueAddr := s.layout.SampleSlot(s.index)
	ts, err := s.tag.readCell(ctx, tsAddr)
	if err != nil {
		s.err = err
		return nil, err
	}
	value, err := s.tag.readCell(ctx, valueAddr)
	if err != nil {
		s.err = err
		return nil, err
	}

	s.read++
	s.index = (s.index + 1) % s.layout.MaxSamples
	return DecodeSample(ts, value, s.conf, s.tag.config.Location), nil
}

// All iterates over the remaining samples. Iteration stops after the first
// error, which is yielded with a nil sample.
func (s *SampleStream) All(ctx context.Context) iter.Seq2[DataSample, error] {
	return func(yield func(DataSample, error) bool) {
		for {
			sample, err := s.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(sample, err) || err != nil {
				return
			}
		}
	}
}

// Close closes the transport and releases the Tag.
func (s *SampleStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.tag.mu.Unlock()
	return s.tag.finish(s.err)
}

// ReadSamples reads the whole sample log.
func (t *Tag) ReadSamples(ctx context.Context) ([]DataSample, error) {
	stream, err := t.OpenSamples(ctx)
	if err != nil {
		return nil, err
	}

	samples := make([]DataSample, 0, stream.Len())
	for sample, err := range stream.All(ctx) {
		if err != nil {
			_ = stream.Close()
			return nil, err
		}
		samples = append(samples, sample)
	}
	if err := stream.Close(); err != nil {
		return nil, err
	}
	return samples, nil
}

// ReadSingleShot waits for the tag to complete an on-demand acquisition and
// returns it. The status cell is polled every PollInterval with no upper
// bound on the number of polls; cancel ctx to give up.
func (t *Tag) ReadSingleShot(ctx context.Context) (*SensorDataSample, error) {
	var out *SensorDataSample
	err := t.withConnection(ctx, func(layout MemoryLayout) error {
		if t.config.EnergyHarvesting {
			if eh, ok := energyHarvester(t.transport); ok {
				if err := eh.SetEnergyHarvesting(ctx, true); err != nil {
					return err
				}
				defer func() { _ = eh.SetEnergyHarvesting(context.WithoutCancel(ctx), false) }()
			}
		}

		if err := t.waitSingleShot(ctx, layout); err != nil {
			return err
		}

		th, err := t.readCell(ctx, layout.Address(AddrTempHumExtremes))
		if err != nil {
			return err
		}
		pa, err := t.readCell(ctx, layout.Address(AddrPresAccExtremes))
		if err != nil {
			return err
		}
		tempHum := DecodeTempHumCell(th)
		presAcc := DecodePresAccCell(pa)
		out = &SensorDataSample{
			Date:         t.now(),
			Temperature:  ptr(tempHum.TemperatureMin),
			Pressure:     ptr(presAcc.PressureMin),
			Humidity:     ptr(tempHum.HumidityMin),
			Acceleration: ptr(presAcc.AccelerationMax),
		}
		return nil
	})
	return out, err
}

type unwrapper interface {
	Unwrap() Transport
}

// energyHarvester returns the outermost layer able to drive energy
// harvesting, provided the underlying transport supports it.
func energyHarvester(transport Transport) (EnergyHarvester, bool) {
	base := transport
	for {
		w, ok := base.(unwrapper)
		if !ok {
			break
		}
		base = w.Unwrap()
	}
	if _, ok := base.(EnergyHarvester); !ok {
		return nil, false
	}
	for cur := transport; ; {
		if eh, ok := cur.(EnergyHarvester); ok {
			return eh, true
		}
		w, ok := cur.(unwrapper)
		if !ok {
			return nil, false
		}
		cur = w.Unwrap()
	}
}

func (t *Tag) waitSingleShot(ctx context.Context, layout MemoryLayout) error {
	interval := t.config.PollInterval
	for attempt := 1; ; attempt++ {
		if t.config.WaitNotifier != nil {
			t.config.WaitNotifier(attempt, interval)
		}
		if err := sleepContext(ctx, interval); err != nil {
			return fmt.Errorf("single-shot wait cancelled after %d polls: %w", attempt-1, err)
		}

		c, err := t.readCell(ctx, layout.Address(AddrStatus))
		if err != nil {
			return err
		}
		if DecodeTagStatus(c).SingleShotResponseReady {
			debugf("single-shot ready after %d polls", attempt)
			return nil
		}
	}
}
