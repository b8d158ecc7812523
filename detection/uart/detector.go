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

// Package uart detects serial RF bridges that can reach a SmarTag.
package uart

import (
	"context"
	"errors"
	"strings"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/detection"
	"github.com/ZaparooProject/go-smartag/transport/uart"
	"go.bug.st/serial/enumerator"
)

const probeTimeout = 500 * time.Millisecond

// knownBridges are USB serial chips used by SmarTag RF bridges.
var knownBridges = map[string]string{
	"0483:5740": "STMicroelectronics virtual COM port",
	"0403:6001": "FTDI FT232R",
	"10C4:EA60": "Silicon Labs CP210x",
	"1A86:7523": "WCH CH340",
}

// serialPort is an enumerated serial port.
type serialPort struct {
	Path         string
	VIDPID       string
	Product      string
	SerialNumber string
	IsUSB        bool
}

type detector struct {
	list  func() ([]serialPort, error)
	probe func(ctx context.Context, path string) error
}

// New creates a serial bridge detector
func New() detection.Detector {
	return &detector{list: getSerialPorts, probe: probeBridge}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() smartag.TransportType {
	return smartag.TransportUART
}

// Detect lists serial ports and, unless passive, asks each one to select a
// tag. A bridge that answers "no tag" is still reported.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, err
	}

	var devices []detection.DeviceInfo
	for _, p := range ports {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		if !shouldInclude(p) || detection.IsPathIgnored(p.Path, opts.IgnorePaths) {
			continue
		}

		dev := detection.DeviceInfo{
			Transport:  smartag.TransportUART,
			Path:       p.Path,
			Name:       p.Product,
			Confidence: detection.Low,
			Metadata:   map[string]string{},
		}
		if p.VIDPID != "" {
			dev.Metadata["vidpid"] = p.VIDPID
		}
		if p.SerialNumber != "" {
			dev.Metadata["serial"] = p.SerialNumber
		}
		if chip, ok := knownBridges[p.VIDPID]; ok {
			dev.Confidence = detection.Medium
			if dev.Name == "" {
				dev.Name = chip
			}
		}

		if opts.Mode != detection.Passive && !detection.IsBlocked(p.VIDPID, opts.Blocklist) {
			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := d.probe(probeCtx, p.Path)
			cancel()
			switch {
			case err == nil:
				dev.Confidence = detection.High
				dev.Metadata["tag"] = "present"
			case errors.Is(err, smartag.ErrTagNotFound):
				dev.Confidence = detection.High
				dev.Metadata["tag"] = "absent"
			case dev.Confidence == detection.Low:
				continue
			}
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

func probeBridge(ctx context.Context, path string) error {
	t := uart.New(path)
	if err := t.SetTimeout(probeTimeout); err != nil {
		return err
	}
	defer func() { _ = t.Close() }()
	return t.Connect(ctx)
}

func getSerialPorts() ([]serialPort, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]serialPort, 0, len(details))
	for _, d := range details {
		p := serialPort{Path: d.Name, IsUSB: d.IsUSB}
		if d.IsUSB {
			p.VIDPID = detection.FormatVIDPID(d.VID, d.PID)
			p.Product = d.Product
			p.SerialNumber = d.SerialNumber
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// shouldInclude drops ports that are never RF bridges.
func shouldInclude(p serialPort) bool {
	name := strings.ToLower(p.Path)
	if strings.Contains(name, "bluetooth") {
		return false
	}
	if p.IsUSB {
		return true
	}
	// Built-in UARTs are only worth a look on boards exposing them.
	for _, prefix := range []string{"/dev/ttyama", "/dev/serial", "/dev/ttys0"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
