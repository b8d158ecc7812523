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

// Package pcsc detects PC/SC contactless readers.
package pcsc

import (
	"context"
	"errors"
	"strings"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/detection"
	"github.com/ebfe/scard"
)

// service is the part of the PC/SC resource manager used for detection.
type service interface {
	ListReaders() ([]string, error)
	// CardPresent connects to reader and disconnects again.
	CardPresent(reader string) (bool, error)
	Release() error
}

type scardService struct {
	ctx *scard.Context
}

func (s scardService) ListReaders() ([]string, error) {
	return s.ctx.ListReaders()
}

func (s scardService) CardPresent(reader string) (bool, error) {
	card, err := s.ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if errors.Is(err, scard.ErrNoSmartcard) || errors.Is(err, scard.ErrRemovedCard) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, card.Disconnect(scard.LeaveCard)
}

func (s scardService) Release() error {
	return s.ctx.Release()
}

type detector struct {
	open func() (service, error)
}

// New creates a PC/SC reader detector
func New() detection.Detector {
	return &detector{open: func() (service, error) {
		ctx, err := scard.EstablishContext()
		if err != nil {
			return nil, err
		}
		return scardService{ctx: ctx}, nil
	}}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() smartag.TransportType {
	return smartag.TransportPCSC
}

// Detect lists the readers known to the PC/SC service. Outside passive mode
// each reader is checked for a card in its field.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	svc, err := d.open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = svc.Release() }()

	readers, err := svc.ListReaders()
	if err != nil {
		return nil, err
	}

	devices := make([]detection.DeviceInfo, 0, len(readers))
	for _, reader := range readers {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		if detection.IsPathIgnored(reader, opts.IgnorePaths) {
			continue
		}
		dev := detection.DeviceInfo{
			Transport:  smartag.TransportPCSC,
			Path:       reader,
			Name:       reader,
			Confidence: detection.Low,
			Metadata:   map[string]string{},
		}
		upper := strings.ToUpper(reader)
		// SAM slots never hold a contactless tag.
		if strings.Contains(upper, "SAM") {
			continue
		}
		if strings.Contains(upper, "PICC") || strings.Contains(upper, "CONTACTLESS") {
			dev.Confidence = detection.Medium
		}
		if opts.Mode != detection.Passive {
			present, err := svc.CardPresent(reader)
			if err != nil {
				continue
			}
			if present {
				dev.Confidence = detection.High
				dev.Metadata["tag"] = "present"
			} else {
				dev.Metadata["tag"] = "absent"
			}
		}
		devices = append(devices, dev)
	}
	return devices, nil
}
