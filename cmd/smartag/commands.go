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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/detection"
	"github.com/ZaparooProject/go-smartag/export"
	"github.com/ZaparooProject/go-smartag/publish"
	"github.com/ZaparooProject/go-smartag/session"
)

// withSession opens the configured tag and runs fn on a new session.
func (a *app) withSession(ctx context.Context, fn func(s *session.Session) error) error {
	tag, cleanup, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(session.New(tag, session.WithLogger(a.log)))
}

// stopped reports whether err only says that the user interrupted a follow
// mode.
func stopped(err error) bool {
	return errors.Is(err, context.Canceled)
}

func parseDetectionMode(s string) (detection.Mode, error) {
	switch s {
	case "passive":
		return detection.Passive, nil
	case "safe":
		return detection.Safe, nil
	case "full":
		return detection.Full, nil
	default:
		return 0, fmt.Errorf("%w: detection mode %q", errUsage, s)
	}
}

func runDetect(ctx context.Context, a *app, args []string) error {
	fs := a.flags("detect")
	mode := fs.String("mode", "safe", "Detection mode: passive, safe or full")
	ignore := fs.String("ignore", "", "Comma separated device paths to skip")
	if err := parse(fs, args); err != nil {
		return err
	}

	opts := detection.DefaultOptions()
	var err error
	if opts.Mode, err = parseDetectionMode(*mode); err != nil {
		return err
	}
	if *ignore != "" {
		opts.IgnorePaths = strings.Split(*ignore, ",")
	}

	ctx, cancel := a.bounded(ctx)
	defer cancel()
	devices, err := detection.DetectAll(ctx, opts)
	if err != nil {
		return err
	}
	a.out.Devices(devices)
	return nil
}

func runInfo(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("info"), args); err != nil {
		return err
	}
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	return a.withSession(ctx, func(s *session.Session) error {
		version, err := s.ReadFirmwareVersion(ctx)
		if err != nil {
			return err
		}
		status, err := s.Tag().ReadStatus(ctx)
		if err != nil {
			return err
		}
		layout, err := s.Tag().Layout(ctx)
		if err != nil {
			return err
		}
		a.out.TagInfo(version, status, layout)
		return nil
	})
}

func runConfig(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("config"), args); err != nil {
		return err
	}
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	return a.withSession(ctx, func(s *session.Session) error {
		conf, err := s.ReadConfiguration(ctx)
		if err != nil {
			return err
		}
		a.out.Configuration(conf)
		return nil
	})
}

// samplingOverrides applies the -mode and -interval flags of write-config and
// simulate to the configured sampling.
func (a *app) samplingOverrides(mode string, interval int) (*smartag.SamplingConfiguration, error) {
	conf, err := a.cfg.SamplingConfiguration()
	if err != nil {
		return nil, err
	}
	if mode != "" {
		if conf.Mode, err = smartag.ParseMode(mode); err != nil {
			return nil, err
		}
	}
	if interval > 0 {
		conf.IntervalSeconds = interval
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func runWriteConfig(ctx context.Context, a *app, args []string) error {
	fs := a.flags("write-config")
	mode := fs.String("mode", "", "Sampling mode, overrides the configuration file")
	interval := fs.Int("interval", 0, "Sampling interval in seconds, overrides the configuration file")
	if err := parse(fs, args); err != nil {
		return err
	}
	conf, err := a.samplingOverrides(*mode, *interval)
	if err != nil {
		return err
	}

	ctx, cancel := a.bounded(ctx)
	defer cancel()
	return a.withSession(ctx, func(s *session.Session) error {
		err := s.WriteConfiguration(ctx, conf)
		var partial *smartag.PartialWriteError
		if errors.As(err, &partial) && partial.StateUnknown() {
			a.out.Warning("write interrupted after %d of %d cells, tag configuration is unknown; write it again",
				partial.Completed, partial.Total)
		}
		if err != nil {
			return err
		}
		a.out.OK("configuration written (mode %s, interval %ds)", conf.Mode, conf.IntervalSeconds)
		return nil
	})
}

func runExtremes(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("extremes"), args); err != nil {
		return err
	}
	ctx, cancel := a.bounded(ctx)
	defer cancel()

	return a.withSession(ctx, func(s *session.Session) error {
		extremes, err := s.ReadExtremes(ctx)
		if err != nil {
			return err
		}
		a.out.Extremes(extremes)
		return nil
	})
}

// follow runs a monitor until ctx is cancelled.
func (a *app) follow(ctx context.Context, s *session.Session, interval time.Duration, onSample func(smartag.DataSample) error) error {
	monitor := session.NewMonitor(s, interval)
	monitor.OnSample = onSample
	monitor.OnError = func(err error) {
		a.log.WithError(err).Warn("reading sample log failed")
	}
	monitor.OnAcquisitionRestart = func() {
		a.out.Info("sample log restarted")
	}
	if err := monitor.Start(ctx); err != nil && !stopped(err) {
		return err
	}
	return nil
}

func runSamples(ctx context.Context, a *app, args []string) error {
	fs := a.flags("samples")
	follow := fs.Bool("follow", false, "Keep reading and print new samples")
	interval := fs.Duration("interval", session.DefaultMonitorInterval, "Delay between reads with -follow")
	if err := parse(fs, args); err != nil {
		return err
	}

	if *follow {
		return a.withSession(ctx, func(s *session.Session) error {
			return a.follow(ctx, s, *interval, func(sample smartag.DataSample) error {
				a.out.Sample(sample)
				return nil
			})
		})
	}

	ctx, cancel := a.bounded(ctx)
	defer cancel()
	return a.withSession(ctx, func(s *session.Session) error {
		samples, err := s.ReadSamples(ctx)
		if err != nil {
			return err
		}
		a.out.Samples(samples)
		return nil
	})
}

func runSingleShot(ctx context.Context, a *app, args []string) error {
	fs := a.flags("single-shot")
	timeout := fs.Duration("wait", a.cfg.SingleShot.Timeout, "How long to wait for the tag, 0 for no limit")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	return a.withSession(ctx, func(s *session.Session) error {
		a.out.Info("waiting for the tag to complete a single-shot acquisition...")
		sample, err := s.SingleShot(ctx)
		if err != nil {
			return err
		}
		a.out.Samples([]smartag.DataSample{sample})
		return nil
	})
}

func writeSnapshot(w io.Writer, format string, snap *session.Snapshot, loc *time.Location) error {
	switch format {
	case "csv":
		return export.WriteCSV(w, snap, loc)
	case "json":
		return export.WriteJSON(w, snap)
	default:
		return fmt.Errorf("%w: export format %q", errUsage, format)
	}
}

// exportSnapshot writes snap to path, "-" being stdout. An empty path picks
// a dated file name.
func (a *app) exportSnapshot(snap *session.Snapshot, format, path string) error {
	if path == "-" {
		return writeSnapshot(a.stdout, format, snap, a.loc)
	}
	if path == "" {
		path = strings.TrimSuffix(export.FileName(snap.Taken.In(a.loc)), ".csv") + "." + format
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := writeSnapshot(f, format, snap, a.loc); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	a.out.OK("exported %d samples to %s", len(snap.Samples), path)
	return nil
}

func runExport(ctx context.Context, a *app, args []string) error {
	fs := a.flags("export")
	format := fs.String("format", "csv", "Export format: csv or json")
	output := fs.String("o", "", "Output file, - for stdout (default: dated file name)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *format != "csv" && *format != "json" {
		return fmt.Errorf("%w: export format %q", errUsage, *format)
	}

	ctx, cancel := a.bounded(ctx)
	defer cancel()
	return a.withSession(ctx, func(s *session.Session) error {
		snap, err := s.Snapshot(ctx)
		if err != nil {
			return err
		}
		return a.exportSnapshot(snap, *format, *output)
	})
}

// publishOnce sends the sample log and the extremes.
func publishOnce(ctx context.Context, s *session.Session, p *publish.Publisher) (int, error) {
	samples, err := s.ReadSamples(ctx)
	if err != nil {
		return 0, err
	}
	sent, err := p.PublishSamples(ctx, samples)
	if err != nil {
		return sent, err
	}
	extremes, err := s.ReadExtremes(ctx)
	if err != nil {
		return sent, err
	}
	if extremes != nil {
		err = p.PublishExtremes(ctx, extremes)
	}
	return sent, err
}

func runPublish(ctx context.Context, a *app, args []string) error {
	fs := a.flags("publish")
	follow := fs.Bool("follow", false, "Keep reading and publish new samples")
	interval := fs.Duration("interval", session.DefaultMonitorInterval, "Delay between reads with -follow")
	if err := parse(fs, args); err != nil {
		return err
	}

	publisher, err := publish.Connect(a.cfg.MQTT, a.log.WithField("component", "mqtt"))
	if err != nil {
		return err
	}
	defer publisher.Close()

	if *follow {
		return a.withSession(ctx, func(s *session.Session) error {
			return a.follow(ctx, s, *interval, func(sample smartag.DataSample) error {
				return publisher.PublishSample(ctx, sample)
			})
		})
	}

	ctx, cancel := a.bounded(ctx)
	defer cancel()
	return a.withSession(ctx, func(s *session.Session) error {
		sent, err := publishOnce(ctx, s, publisher)
		if err != nil {
			return err
		}
		a.out.OK("published %d new samples for device %s", sent, publisher.DeviceID())
		return nil
	})
}
