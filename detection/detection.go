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

// Package detection discovers readers and boards that can reach a SmarTag.
//
// Transport specific detectors register themselves on import:
//
//	import (
//		"github.com/ZaparooProject/go-smartag/detection"
//		_ "github.com/ZaparooProject/go-smartag/detection/i2c"
//		_ "github.com/ZaparooProject/go-smartag/detection/uart"
//	)
//
//	devices, err := detection.DetectAll(ctx, detection.DefaultOptions())
package detection

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
)

var (
	// ErrNoDevicesFound is returned when no candidate device was found.
	ErrNoDevicesFound = errors.New("no devices found")
	// ErrUnsupportedPlatform is returned by detectors that cannot run on the
	// current operating system.
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	// ErrDetectionTimeout is returned when the detection context expires.
	ErrDetectionTimeout = errors.New("detection timed out")
)

// Mode controls how intrusive detection is.
type Mode int

const (
	// Passive only enumerates devices, nothing is opened.
	Passive Mode = iota
	// Safe opens devices and performs read-only probes.
	Safe
	// Full may send commands to the device.
	Full
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Confidence rates how likely a device is to reach a SmarTag.
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

// Options configures detection.
type Options struct {
	// IgnorePaths lists device paths that are never reported or probed.
	IgnorePaths []string
	// Blocklist lists USB VID:PID pairs that are never probed.
	Blocklist []string
	Timeout   time.Duration
	Mode      Mode
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Mode:      Safe,
		Timeout:   5 * time.Second,
		Blocklist: DefaultBlocklist(),
	}
}

// DeviceInfo describes a detected device.
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  smartag.TransportType
	Path       string
	Name       string
	Confidence Confidence
}

// Detector finds devices of one transport type.
type Detector interface {
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
	Transport() smartag.TransportType
}

var (
	registryMu sync.Mutex
	registry   []Detector
)

// RegisterDetector adds d to the detectors used by DetectAll.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, d)
}

// Detectors returns the registered detectors.
func Detectors() []Detector {
	registryMu.Lock()
	defer registryMu.Unlock()
	return append([]Detector(nil), registry...)
}

// DetectAll runs every registered detector and returns the devices found,
// most confident first. Detectors that fail are skipped.
func DetectAll(ctx context.Context, opts Options) ([]DeviceInfo, error) {
	return detectWith(ctx, Detectors(), opts)
}

func detectWith(ctx context.Context, detectors []Detector, opts Options) ([]DeviceInfo, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	log := smartag.Logger().WithField("op", "detect")
	seen := make(map[string]bool)
	var devices []DeviceInfo

	for _, d := range detectors {
		if ctx.Err() != nil {
			if len(devices) > 0 {
				break
			}
			return nil, ErrDetectionTimeout
		}

		found, err := d.Detect(ctx, &opts)
		if err != nil {
			log.WithError(err).WithField("transport", d.Transport()).Debug("detector failed")
			continue
		}
		for _, dev := range found {
			if seen[dev.Path] || IsPathIgnored(dev.Path, opts.IgnorePaths) {
				continue
			}
			seen[dev.Path] = true
			devices = append(devices, dev)
		}
	}

	if len(devices) == 0 {
		return nil, ErrNoDevicesFound
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	return devices, nil
}
