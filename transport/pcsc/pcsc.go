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

// Package pcsc provides a transport for SmarTag tags on PC/SC contactless
// readers that expose ISO 15693 block access through the standard storage
// card APDUs.
package pcsc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/internal/iso15693"
	"github.com/ebfe/scard"
)

const (
	claPCSC         = 0xFF
	insReadBinary   = 0xB0
	insUpdateBinary = 0xD6
	// insDirect wraps a raw tag request (FF 00 00 00 Lc data).
	insDirect = 0x00
)

// Card is the part of a connected scard.Card used by the transport.
type Card interface {
	Transmit(cmd []byte) ([]byte, error)
	Disconnect(d scard.Disposition) error
}

// Connector opens a card session on a reader.
type Connector func(reader string) (Card, error)

// Transport implements smartag.Transport over a PC/SC reader
type Transport struct {
	connect Connector
	release func() error
	card    Card
	client  *iso15693.Client
	reader  string
	mu      sync.Mutex
}

// New establishes a PC/SC context for reader. An empty reader selects the
// first one listed.
func New(reader string) (*Transport, error) {
	sctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("failed to establish PC/SC context: %w", err)
	}

	if reader == "" {
		readers, err := sctx.ListReaders()
		if err != nil || len(readers) == 0 {
			_ = sctx.Release()
			return nil, fmt.Errorf("%w: no PC/SC readers", smartag.ErrDeviceNotFound)
		}
		reader = readers[0]
	}

	connect := func(name string) (Card, error) {
		return sctx.Connect(name, scard.ShareShared, scard.ProtocolAny)
	}
	t := NewWithConnector(reader, connect)
	t.release = sctx.Release
	return t, nil
}

// NewWithConnector creates a transport that opens card sessions with connect.
func NewWithConnector(reader string, connect Connector) *Transport {
	t := &Transport{connect: connect, reader: reader}
	t.client = iso15693.NewClient(t, reader)
	return t
}

// SetPassword sets the configuration password used for energy harvesting.
func (t *Transport) SetPassword(pwd [8]byte) {
	t.client.SetPassword(pwd)
}

// Connect opens a session with the tag on the reader.
func (t *Transport) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.card != nil {
		return nil
	}
	card, err := t.connect(t.reader)
	if err != nil {
		if errors.Is(err, scard.ErrNoSmartcard) || errors.Is(err, scard.ErrRemovedCard) {
			return smartag.NewTransportError("connect", t.reader, smartag.ErrTagNotFound, smartag.ErrorTypePermanent)
		}
		return smartag.NewTransportError("connect", t.reader,
			fmt.Errorf("%w: %w", smartag.ErrDeviceNotFound, err), smartag.ErrorTypePermanent)
	}
	t.card = card
	return nil
}

// Close disconnects from the card and leaves it powered.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.card == nil {
		return nil
	}
	err := t.card.Disconnect(scard.LeaveCard)
	t.card = nil
	return err
}

// Release closes the PC/SC context.
func (t *Transport) Release() error {
	_ = t.Close()
	if t.release == nil {
		return nil
	}
	return t.release()
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.card != nil
}

// Type returns the transport type
func (*Transport) Type() smartag.TransportType {
	return smartag.TransportPCSC
}

// transmit sends an APDU and strips a 90 00 status word.
func (t *Transport) transmit(ctx context.Context, op string, apdu []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.card == nil {
		return nil, smartag.NewTransportError(op, t.reader, smartag.ErrNotConnected, smartag.ErrorTypePermanent)
	}

	resp, err := t.card.Transmit(apdu)
	if err != nil {
		if errors.Is(err, scard.ErrRemovedCard) {
			return nil, smartag.NewTransportError(op, t.reader, smartag.ErrTagNotFound, smartag.ErrorTypePermanent)
		}
		return nil, smartag.NewTransportError(op, t.reader,
			fmt.Errorf("%w: %w", smartag.ErrCommunicationFailed, err), smartag.ErrorTypeTransient)
	}
	if len(resp) < 2 {
		return nil, smartag.NewFrameCorruptedError(op, t.reader)
	}
	sw1, sw2 := resp[len(resp)-2], resp[len(resp)-1]
	if sw1 != 0x90 || sw2 != 0x00 {
		return nil, smartag.NewTransportError(op, t.reader,
			fmt.Errorf("%w: status %02X %02X", smartag.ErrTagResponse, sw1, sw2), smartag.ErrorTypeTransient)
	}
	return resp[:len(resp)-2], nil
}

// ReadCell implements smartag.Transport with READ BINARY on one block.
func (t *Transport) ReadCell(ctx context.Context, address uint16) (smartag.Cell, error) {
	apdu := []byte{claPCSC, insReadBinary, byte(address >> 8), byte(address), smartag.CellSize}
	data, err := t.transmit(ctx, "read block", apdu)
	if err != nil {
		return smartag.Cell{}, err
	}
	if len(data) < smartag.CellSize {
		return smartag.Cell{}, smartag.NewFrameCorruptedError("read block", t.reader)
	}
	var c smartag.Cell
	copy(c[:], data)
	return c, nil
}

// WriteCell implements smartag.Transport with UPDATE BINARY on one block.
func (t *Transport) WriteCell(ctx context.Context, address uint16, data smartag.Cell) error {
	apdu := make([]byte, 0, 5+smartag.CellSize)
	apdu = append(apdu, claPCSC, insUpdateBinary, byte(address>>8), byte(address), smartag.CellSize)
	apdu = append(apdu, data[:]...)
	_, err := t.transmit(ctx, "update block", apdu)
	return err
}

// Transceive implements iso15693.Transceiver with the reader's direct
// transmit pseudo-APDU.
func (t *Transport) Transceive(ctx context.Context, req []byte) ([]byte, error) {
	if len(req) > 0xFF {
		return nil, fmt.Errorf("%w: request of %d bytes", smartag.ErrInvalidParameter, len(req))
	}
	apdu := make([]byte, 0, 5+len(req))
	apdu = append(apdu, claPCSC, insDirect, 0x00, 0x00, byte(len(req)))
	apdu = append(apdu, req...)
	return t.transmit(ctx, "direct transmit", apdu)
}

// SetEnergyHarvesting implements smartag.EnergyHarvester.
func (t *Transport) SetEnergyHarvesting(ctx context.Context, enabled bool) error {
	return t.client.SetEnergyHarvesting(ctx, enabled)
}

// Ensure Transport implements smartag.Transport
var (
	_ smartag.Transport       = (*Transport)(nil)
	_ smartag.EnergyHarvester = (*Transport)(nil)
	_ iso15693.Transceiver    = (*Transport)(nil)
)
