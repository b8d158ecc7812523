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

// Package i2c detects ST25DV dual interface tags wired to an I2C bus.
package i2c

import (
	"context"
	"fmt"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/detection"
)

const (
	// DefaultTagAddress is the user memory device address of the ST25DV.
	DefaultTagAddress = 0x53
	// SystemAddress is the system area device address of the ST25DV.
	SystemAddress = 0x57

	probeTimeout = time.Second
)

// prober talks to the I2C buses of the host.
type prober interface {
	buses() ([]string, error)
	// readCC reads the first four bytes of user memory.
	readCC(ctx context.Context, bus string, addr uint8) ([]byte, error)
	present(bus string, addr uint8) bool
}

type detector struct {
	p prober
}

// New creates a new I2C detector
func New() detection.Detector {
	return &detector{p: platformProber()}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() smartag.TransportType {
	return smartag.TransportI2C
}

// Detect looks for an ST25DV on every I2C bus. Passive mode lists buses
// without opening them.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if d.p == nil {
		return nil, detection.ErrUnsupportedPlatform
	}
	buses, err := d.p.buses()
	if err != nil {
		return nil, err
	}

	var devices []detection.DeviceInfo
	for _, bus := range buses {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		dev, ok := d.detectBus(ctx, bus, opts)
		if ok {
			devices = append(devices, dev)
		}
	}
	return devices, nil
}

func (d *detector) detectBus(ctx context.Context, bus string, opts *detection.Options) (detection.DeviceInfo, bool) {
	path := fmt.Sprintf("%s:0x%02X", bus, DefaultTagAddress)
	if detection.IsPathIgnored(path, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	dev := detection.DeviceInfo{
		Transport:  smartag.TransportI2C,
		Path:       path,
		Name:       "ST25DV on " + bus,
		Confidence: detection.Low,
		Metadata: map[string]string{
			"bus":     bus,
			"address": fmt.Sprintf("0x%02X", DefaultTagAddress),
		},
	}
	if opts.Mode == detection.Passive {
		return dev, true
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	cc, err := d.p.readCC(probeCtx, bus, DefaultTagAddress)
	if err != nil || len(cc) < smartag.CellSize {
		return detection.DeviceInfo{}, false
	}
	dev.Metadata["cc"] = fmt.Sprintf("% X", cc)

	// Both device addresses answer only on an ST25DV.
	if d.p.present(bus, SystemAddress) {
		dev.Confidence = detection.Medium
	}
	if _, err := smartag.DecodeCapabilityContainer(smartag.Cell(cc[:smartag.CellSize])); err == nil {
		dev.Confidence = detection.High
	}
	return dev, true
}
