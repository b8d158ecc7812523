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
	"strings"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/detection"
	// Import all detectors to register them
	_ "github.com/ZaparooProject/go-smartag/detection/i2c"
	_ "github.com/ZaparooProject/go-smartag/detection/pcsc"
	_ "github.com/ZaparooProject/go-smartag/detection/uart"
	"github.com/ZaparooProject/go-smartag/transport/i2c"
	"github.com/ZaparooProject/go-smartag/transport/pcsc"
	"github.com/ZaparooProject/go-smartag/transport/uart"
	"github.com/sirupsen/logrus"
)

type releaser interface {
	Release() error
}

// newTransport creates a transport of the given type.
func newTransport(kind smartag.TransportType, path string, cfg *TransportConfig) (smartag.Transport, error) {
	pwd, err := (&Config{Transport: *cfg}).Password()
	if err != nil {
		return nil, err
	}

	switch kind {
	case smartag.TransportUART:
		transport := uart.New(path)
		if cfg.Timeout > 0 {
			if err := transport.SetTimeout(cfg.Timeout); err != nil {
				return nil, err
			}
		}
		transport.SetPassword(pwd)
		return transport, nil
	case smartag.TransportI2C:
		transport, err := i2c.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport: %w", err)
		}
		return transport, nil
	case smartag.TransportPCSC:
		transport, err := pcsc.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create PC/SC transport: %w", err)
		}
		transport.SetPassword(pwd)
		return transport, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", kind)
	}
}

// devicePath converts a detected device path to the form its transport
// opens: I2C devices are reported as bus:address.
func devicePath(device detection.DeviceInfo) string {
	if device.Transport == smartag.TransportI2C {
		if i := strings.LastIndex(device.Path, ":"); i > 0 {
			return device.Path[:i]
		}
	}
	return device.Path
}

// detectTransport picks the most likely device found by the detectors.
func (a *app) detectTransport(ctx context.Context) (smartag.Transport, error) {
	opts := detection.DefaultOptions()
	devices, err := detection.DetectAll(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("auto-detection failed: %w", err)
	}
	device := devices[0]
	a.log.WithFields(logrus.Fields{
		"transport": device.Transport,
		"path":      device.Path,
	}).Info("using detected device")
	return newTransport(device.Transport, devicePath(device), &a.cfg.Transport)
}

// openTag creates the tag engine over the configured transport. The returned
// cleanup releases the transport.
func (a *app) openTag(ctx context.Context) (*smartag.Tag, func(), error) {
	var (
		transport smartag.Transport
		err       error
	)
	kind := smartag.TransportType(strings.ToLower(a.cfg.Transport.Type))
	if kind == "auto" {
		transport, err = a.detectTransport(ctx)
	} else {
		transport, err = newTransport(kind, a.cfg.Transport.Device, &a.cfg.Transport)
	}
	if err != nil {
		return nil, nil, err
	}

	opts, err := a.cfg.TagOptions()
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, smartag.WithWaitNotifier(func(attempt int, wait time.Duration) {
		a.log.Debugf("single-shot poll %d, next in %s", attempt, wait)
	}))
	tag, err := smartag.New(transport, opts...)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = transport.Close()
		if r, ok := transport.(releaser); ok {
			_ = r.Release()
		}
	}
	return tag, cleanup, nil
}
