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

// Package uart provides the serial transport for SmarTag reader bridges.
//
// The bridge wraps raw ISO 15693 requests in checksummed frames and relays
// them to the tag in its field.
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/internal/frame"
	"github.com/ZaparooProject/go-smartag/internal/iso15693"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate of reader bridges.
	DefaultBaudRate = 115200

	defaultTimeout = 500 * time.Millisecond
	readChunk      = 64
	pollTimeout    = 10 * time.Millisecond
)

// Port is the part of serial.Port used by the transport.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Transport implements smartag.Transport over a serial reader bridge.
type Transport struct {
	port     Port
	open     func() (Port, error)
	client   *iso15693.Client
	portName string
	timeout  time.Duration
	mu       sync.Mutex
	selected bool
}

// New creates a transport for the serial device at portName. The port is
// opened on Connect.
func New(portName string) *Transport {
	t := &Transport{portName: portName, timeout: defaultTimeout}
	t.open = func() (Port, error) {
		p, err := serial.Open(portName, &serial.Mode{BaudRate: DefaultBaudRate})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	t.client = iso15693.NewClient(t, portName)
	return t
}

// NewWithPort creates a transport over an already open port.
func NewWithPort(port Port, name string) *Transport {
	t := &Transport{portName: name, timeout: defaultTimeout}
	t.open = func() (Port, error) { return port, nil }
	t.client = iso15693.NewClient(t, name)
	return t
}

// SetTimeout sets how long to wait for a bridge response.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout %v", smartag.ErrInvalidParameter, timeout)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// SetPassword sets the configuration password used for energy harvesting.
func (t *Transport) SetPassword(password [8]byte) {
	t.client.SetPassword(password)
}

// Connect opens the port and selects the tag in the field.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		p, err := t.open()
		if err != nil {
			return smartag.NewTransportError("open", t.portName,
				fmt.Errorf("%w: %w", smartag.ErrDeviceNotFound, err), smartag.ErrorTypePermanent)
		}
		if err := p.SetReadTimeout(pollTimeout); err != nil {
			_ = p.Close()
			return smartag.NewTransportError("open", t.portName, err, smartag.ErrorTypePermanent)
		}
		t.port = p
	}

	if _, err := t.command(ctx, frame.CmdSelectTag, nil); err != nil {
		return err
	}
	t.selected = true
	return nil
}

// Close releases the tag and closes the port.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	var releaseErr error
	if t.selected {
		_, releaseErr = t.command(context.Background(), frame.CmdReleaseTag, nil)
		t.selected = false
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", t.portName, err)
	}
	return releaseErr
}

// IsConnected reports whether a tag is selected.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil && t.selected
}

// Type implements smartag.Transport.
func (*Transport) Type() smartag.TransportType {
	return smartag.TransportUART
}

// Transceive sends a raw ISO 15693 request to the tag.
func (t *Transport) Transceive(ctx context.Context, request []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil || !t.selected {
		return nil, smartag.NewTransportError("transceive", t.portName, smartag.ErrNotConnected, smartag.ErrorTypePermanent)
	}
	return t.command(ctx, frame.CmdTransceive, request)
}

// ReadCell implements smartag.Transport.
func (t *Transport) ReadCell(ctx context.Context, address uint16) (smartag.Cell, error) {
	return t.client.ReadCell(ctx, address)
}

// WriteCell implements smartag.Transport.
func (t *Transport) WriteCell(ctx context.Context, address uint16, data smartag.Cell) error {
	return t.client.WriteCell(ctx, address, data)
}

// SetEnergyHarvesting implements smartag.EnergyHarvester.
func (t *Transport) SetEnergyHarvesting(ctx context.Context, enabled bool) error {
	return t.client.SetEnergyHarvesting(ctx, enabled)
}

// command runs one bridge exchange. The caller holds t.mu.
func (t *Transport) command(ctx context.Context, cmd byte, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req, err := frame.Build(frame.HostToReader, append([]byte{cmd}, payload...))
	if err != nil {
		return nil, smartag.NewTransportError("send", t.portName, err, smartag.ErrorTypePermanent)
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return nil, smartag.NewTransportError("send", t.portName, err, smartag.ErrorTypeTransient)
	}
	if _, err := t.port.Write(req); err != nil {
		return nil, smartag.NewTransportError("send", t.portName,
			fmt.Errorf("%w: %w", smartag.ErrTransportWrite, err), smartag.ErrorTypeTransient)
	}

	data, err := t.receive(ctx)
	if err != nil {
		return nil, err
	}
	return t.checkResponse(cmd, data)
}

// receive reads until a response frame arrives, skipping the ACK.
func (t *Transport) receive(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(t.timeout)
	buf := make([]byte, 0, readChunk)
	chunk := make([]byte, readChunk)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, smartag.NewTimeoutError("receive", t.portName)
		}

		n, err := t.port.Read(chunk)
		if err != nil {
			return nil, smartag.NewTransportError("receive", t.portName,
				fmt.Errorf("%w: %w", smartag.ErrTransportRead, err), smartag.ErrorTypeTransient)
		}
		buf = append(buf, chunk[:n]...)

		for len(buf) > 0 {
			data, consumed, err := frame.Parse(buf, frame.ReaderToHost)
			switch {
			case errors.Is(err, frame.ErrIncomplete), errors.Is(err, frame.ErrNoStartCode):
				consumed = 0
			case err != nil:
				return nil, smartag.NewTransportError("receive", t.portName,
					fmt.Errorf("%w: %w", smartag.ErrFrameCorrupted, err), smartag.ErrorTypeTransient)
			case data != nil:
				return data, nil
			}
			if consumed == 0 {
				break
			}
			buf = buf[consumed:] // ACK
		}
	}
}

func (t *Transport) checkResponse(cmd byte, data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != frame.ResponseCommand(cmd) {
		return nil, smartag.NewFrameCorruptedError("receive", t.portName)
	}
	switch data[1] {
	case frame.StatusOK:
		return data[2:], nil
	case frame.StatusNoTag:
		return nil, smartag.NewTransportError("select", t.portName, smartag.ErrTagNotFound, smartag.ErrorTypePermanent)
	case frame.StatusTimeout:
		return nil, smartag.NewTimeoutError("transceive", t.portName)
	default:
		return nil, smartag.NewTransportError("transceive", t.portName,
			fmt.Errorf("%w: bridge status 0x%02X", smartag.ErrCommunicationFailed, data[1]), smartag.ErrorTypeTransient)
	}
}

var (
	_ smartag.Transport       = (*Transport)(nil)
	_ smartag.EnergyHarvester = (*Transport)(nil)
	_ iso15693.Transceiver    = (*Transport)(nil)
)
