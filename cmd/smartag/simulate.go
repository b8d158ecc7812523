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
	"fmt"
	"math"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/memtag"
	"github.com/ZaparooProject/go-smartag/session"
)

func parseVariant(s string) (memtag.Variant, error) {
	switch s {
	case "4k":
		return memtag.Variant4K, nil
	case "64k":
		return memtag.Variant64K, nil
	default:
		return 0, fmt.Errorf("%w: tag variant %q", errUsage, s)
	}
}

func value(enabled bool, v float64) *float64 {
	if !enabled {
		return nil
	}
	return &v
}

// simulatedSample returns the i-th synthetic measurement: slow sine waves
// around typical indoor values.
func simulatedSample(conf *smartag.SamplingConfiguration, date time.Time, i int) *smartag.SensorDataSample {
	phase := float64(i) / 8
	return &smartag.SensorDataSample{
		Date:         date,
		Temperature:  value(conf.Temperature.Enabled, math.Round((21+3*math.Sin(phase))*10)/10),
		Humidity:     value(conf.Humidity.Enabled, math.Round(45+10*math.Cos(phase))),
		Pressure:     value(conf.Pressure.Enabled, math.Round(1013+5*math.Sin(phase/2))),
		Acceleration: value(conf.Acceleration.Enabled, float64(100+(i%5)*50)),
	}
}

func runSimulate(ctx context.Context, a *app, args []string) error {
	fs := a.flags("simulate")
	count := fs.Int("samples", 10, "Number of samples logged by the emulated firmware")
	variantName := fs.String("variant", "4k", "Emulated tag: 4k or 64k")
	mode := fs.String("mode", "", "Sampling mode, overrides the configuration file")
	interval := fs.Int("interval", 0, "Sampling interval in seconds, overrides the configuration file")
	format := fs.String("format", "text", "Output format: text, csv or json")
	singleShot := fs.Bool("single-shot", false, "Also run a single-shot acquisition")
	if err := parse(fs, args); err != nil {
		return err
	}
	variant, err := parseVariant(*variantName)
	if err != nil {
		return err
	}
	if *count < 0 {
		return fmt.Errorf("%w: negative sample count", errUsage)
	}
	conf, err := a.samplingOverrides(*mode, *interval)
	if err != nil {
		return err
	}

	mem, _, err := memtag.NewFormatted(variant)
	if err != nil {
		return err
	}
	fw, err := memtag.NewFirmware(mem, a.loc)
	if err != nil {
		return err
	}
	fw.SetVersion(smartag.Version{Major: 1, Minor: 2, Patch: 0})

	start := time.Now().In(a.loc).Truncate(time.Second)
	opts, err := a.cfg.TagOptions()
	if err != nil {
		return err
	}
	opts = append(opts,
		smartag.WithClock(func() time.Time { return start }),
		smartag.WithPollInterval(10*time.Millisecond),
	)
	tag, err := smartag.New(mem, opts...)
	if err != nil {
		return err
	}
	s := session.New(tag, session.WithLogger(a.log), session.WithClock(func() time.Time { return start }))

	if err := s.WriteConfiguration(ctx, conf); err != nil {
		return err
	}
	fw.LoadConfiguration()
	a.log.WithField("layout", fmt.Sprintf("%+v", fw.Layout())).Debug("emulated tag ready")

	step := time.Duration(conf.IntervalSeconds) * time.Second
	for i := range *count {
		date := start.Add(time.Duration(i+1) * step)
		fw.Log(simulatedSample(conf, date, i))
		if conf.Acceleration.Enabled && i%4 == 3 {
			acc := 1500.0
			fw.Log(&smartag.EventDataSample{
				Date:         date.Add(time.Second),
				Acceleration: &acc,
				Orientation:  smartag.OrientationTop,
				Events:       smartag.EventWakeUp | smartag.EventSingleTap,
			})
		}
	}

	if *singleShot {
		fw.CompleteSingleShot(22, 1010, 48, 120)
		sample, err := s.SingleShot(ctx)
		if err != nil {
			return err
		}
		if *format == "text" {
			a.out.Info("single-shot sample")
			a.out.Samples([]smartag.DataSample{sample})
		}
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if *format != "text" {
		return writeSnapshot(a.stdout, *format, snap, a.loc)
	}

	a.out.Info("emulated %s tag, firmware %s", variant, snap.Firmware)
	a.out.Configuration(snap.Configuration)
	a.out.Extremes(snap.Extremes)
	a.out.Samples(snap.Samples)
	m := s.Metrics()
	a.out.OK("%d operations, %d errors", m.Operations, m.Errors)
	return nil
}
