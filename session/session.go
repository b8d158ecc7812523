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

// Package session holds the per-tag state a caller keeps around a
// smartag.Tag: a session identifier for logs, operation metrics and the
// guard that lets only one single-shot request be outstanding at a time.
package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrSingleShotPending is returned when a single-shot request is made while
// another one on the same session has not completed.
var ErrSingleShotPending = errors.New("single-shot request already pending")

// Metrics are counters of the operations run through a session.
type Metrics struct {
	Operations  int64         // Operations started
	Errors      int64         // Operations that failed
	SingleShots int64         // Single-shot samples read
	Rejected    int64         // Single-shot requests rejected as duplicates
	LastLatency time.Duration // Duration of the last operation
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger; the session id is added as a field.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock sets the clock used to date snapshots.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.now = clock
		}
	}
}

// Session wraps a Tag for one caller.
type Session struct {
	started     time.Time
	tag         *smartag.Tag
	log         *logrus.Entry
	now         func() time.Time
	operations  atomic.Int64
	errors      atomic.Int64
	singleShots atomic.Int64
	rejected    atomic.Int64
	lastLatency atomic.Int64
	singleShot  atomic.Bool
	id          uuid.UUID
}

// New starts a session on tag.
func New(tag *smartag.Tag, opts ...Option) *Session {
	s := &Session{
		tag: tag,
		id:  uuid.New(),
		log: smartag.Logger(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("session", s.id.String())
	s.started = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Tag returns the underlying engine.
func (s *Session) Tag() *smartag.Tag {
	return s.tag
}

// Logger returns the session logger.
func (s *Session) Logger() *logrus.Entry {
	return s.log
}

// Metrics returns a copy of the session counters.
func (s *Session) Metrics() Metrics {
	return Metrics{
		Operations:  s.operations.Load(),
		Errors:      s.errors.Load(),
		SingleShots: s.singleShots.Load(),
		Rejected:    s.rejected.Load(),
		LastLatency: time.Duration(s.lastLatency.Load()),
	}
}

func (s *Session) run(op string, fn func() error) error {
	s.operations.Add(1)
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	s.lastLatency.Store(int64(latency))

	log := s.log.WithFields(logrus.Fields{"op": op, "latency": latency})
	if err != nil {
		s.errors.Add(1)
		var pw *smartag.PartialWriteError
		if errors.As(err, &pw) && pw.StateUnknown() {
			log.WithError(err).Warn("tag configuration state unknown, re-read before trusting it")
		} else {
			log.WithError(err).Debug("operation failed")
		}
		return err
	}
	log.Debug("operation done")
	return nil
}

// ReadFirmwareVersion reads the firmware version of the tag.
func (s *Session) ReadFirmwareVersion(ctx context.Context) (smartag.Version, error) {
	var v smartag.Version
	err := s.run("firmware version", func() (err error) {
		v, err = s.tag.ReadFirmwareVersion(ctx)
		return err
	})
	return v, err
}

// ReadConfiguration reads the sampling configuration.
func (s *Session) ReadConfiguration(ctx context.Context) (*smartag.SamplingConfiguration, error) {
	var conf *smartag.SamplingConfiguration
	err := s.run("read configuration", func() (err error) {
		conf, err = s.tag.ReadConfiguration(ctx)
		return err
	})
	return conf, err
}

// WriteConfiguration writes conf and restarts the acquisition.
func (s *Session) WriteConfiguration(ctx context.Context, conf *smartag.SamplingConfiguration) error {
	return s.run("write configuration", func() error {
		return s.tag.WriteConfiguration(ctx, conf)
	})
}

// ReadExtremes reads the recorded extremes; nil when no acquisition ran.
func (s *Session) ReadExtremes(ctx context.Context) (*smartag.TagExtreme, error) {
	var ext *smartag.TagExtreme
	err := s.run("read extremes", func() (err error) {
		ext, err = s.tag.ReadExtremes(ctx)
		return err
	})
	return ext, err
}

// ReadSamples reads the sample log, oldest first.
func (s *Session) ReadSamples(ctx context.Context) ([]smartag.DataSample, error) {
	var samples []smartag.DataSample
	err := s.run("read samples", func() (err error) {
		samples, err = s.tag.ReadSamples(ctx)
		return err
	})
	return samples, err
}

// SingleShotPending reports whether a single-shot request is outstanding.
func (s *Session) SingleShotPending() bool {
	return s.singleShot.Load()
}

// SingleShot waits for an on-demand sample. Only one request per session
// may be outstanding; a second one fails with ErrSingleShotPending instead
// of queueing behind the first. Bound the wait through ctx.
func (s *Session) SingleShot(ctx context.Context) (*smartag.SensorDataSample, error) {
	if !s.singleShot.CompareAndSwap(false, true) {
		s.rejected.Add(1)
		return nil, ErrSingleShotPending
	}
	defer s.singleShot.Store(false)

	var sample *smartag.SensorDataSample
	err := s.run("single shot", func() (err error) {
		sample, err = s.tag.ReadSingleShot(ctx)
		return err
	})
	if err == nil {
		s.singleShots.Add(1)
	}
	return sample, err
}

// Snapshot is everything a session read from the tag at one point in time.
type Snapshot struct {
	Taken         time.Time
	Configuration *smartag.SamplingConfiguration
	Extremes      *smartag.TagExtreme
	SessionID     string
	Samples       []smartag.DataSample
	Firmware      smartag.Version
}

// Snapshot reads the firmware version, configuration, extremes and sample
// log of the tag.
func (s *Session) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{SessionID: s.id.String(), Taken: s.now()}

	var err error
	if snap.Firmware, err = s.ReadFirmwareVersion(ctx); err != nil {
		return nil, err
	}
	if snap.Configuration, err = s.ReadConfiguration(ctx); err != nil {
		return nil, err
	}
	if snap.Extremes, err = s.ReadExtremes(ctx); err != nil {
		return nil, err
	}
	if snap.Samples, err = s.ReadSamples(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}
