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

package session

import (
	"context"
	"errors"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
)

// DefaultMonitorInterval is the delay between two reads of the sample log.
const DefaultMonitorInterval = time.Minute

// Monitor periodically reads the sample log and reports samples it has not
// reported before.
type Monitor struct {
	session *Session
	// OnSample is called for each new sample, oldest first. An error stops
	// the monitor.
	OnSample func(sample smartag.DataSample) error
	// OnError is called when a read fails; the monitor keeps running.
	OnError func(err error)
	// OnAcquisitionRestart is called when the sample log was reset.
	OnAcquisitionRestart func()
	state    monitorState
	interval time.Duration
}

// monitorState remembers the newest sample reported so far. Samples sharing
// its date are tracked by kind so an event logged in the same second as a
// measurement is not dropped.
type monitorState struct {
	last     time.Time
	atLast   map[string]bool
	reported int
}

func sampleKey(s smartag.DataSample) string {
	switch s.(type) {
	case *smartag.EventDataSample:
		return "event"
	default:
		return "sensor"
	}
}

func (st *monitorState) isNew(s smartag.DataSample) bool {
	d := s.SampleDate()
	switch {
	case d.After(st.last):
		return true
	case d.Equal(st.last):
		return !st.atLast[sampleKey(s)]
	default:
		return false
	}
}

func (st *monitorState) record(s smartag.DataSample) {
	d := s.SampleDate()
	if d.After(st.last) {
		st.last = d
		st.atLast = map[string]bool{}
	}
	st.atLast[sampleKey(s)] = true
	st.reported++
}

// reset forgets the newest sample after an acquisition restart. The
// reported count spans restarts.
func (st *monitorState) reset() {
	st.last = time.Time{}
	st.atLast = map[string]bool{}
}

// NewMonitor creates a monitor reading the log every interval. A non
// positive interval selects DefaultMonitorInterval.
func NewMonitor(session *Session, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	m := &Monitor{session: session, interval: interval}
	m.state.reset()
	return m
}

// Reported returns how many samples the monitor has reported.
func (m *Monitor) Reported() int {
	return m.state.reported
}

// Start polls until ctx is done or OnSample fails.
func (m *Monitor) Start(ctx context.Context) error {
	for {
		if err := m.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var cbErr *callbackError
			if errors.As(err, &cbErr) {
				return cbErr.err
			}
			if m.OnError != nil {
				m.OnError(err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.interval):
		}
	}
}

type callbackError struct{ err error }

func (e *callbackError) Error() string { return e.err.Error() }
func (e *callbackError) Unwrap() error { return e.err }

// Poll reads the log once and reports new samples.
func (m *Monitor) Poll(ctx context.Context) error {
	samples, err := m.session.ReadSamples(ctx)
	if err != nil {
		return err
	}

	// Newest sample older than the last reported: the log was restarted.
	if n := len(samples); n > 0 && m.state.reported > 0 && samples[n-1].SampleDate().Before(m.state.last) {
		m.state.reset()
		if m.OnAcquisitionRestart != nil {
			m.OnAcquisitionRestart()
		}
	}

	for _, s := range samples {
		if !m.state.isNew(s) {
			continue
		}
		m.state.record(s)
		if m.OnSample != nil {
			if err := m.OnSample(s); err != nil {
				return &callbackError{err: err}
			}
		}
	}
	return nil
}
