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

// Package iso15693 builds and parses the ST25DV requests used to access the
// SmarTag memory over an ISO 15693 link.
package iso15693

import (
	"context"
	"fmt"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/internal/cellbits"
)

// Request flags and command codes.
const (
	FlagHighDataRate = 0x02

	CmdExtendedReadSingleBlock  = 0x30
	CmdExtendedWriteSingleBlock = 0x31
	CmdWriteDynamicConfig       = 0xAE
	CmdPresentPassword          = 0xB3

	// ManufacturerST is the IC manufacturer code of custom commands.
	ManufacturerST = 0x02

	// RegEnergyHarvestingCtrl is the EH_CTRL_Dyn dynamic register.
	RegEnergyHarvestingCtrl = 0x02

	responseErrorFlag = 0x01
)

// Transceiver exchanges one raw request with the tag and returns the raw
// response, starting with the response flags byte.
type Transceiver interface {
	Transceive(ctx context.Context, request []byte) ([]byte, error)
}

// ReadRequest builds an extended read single block request. The block
// address is little endian.
func ReadRequest(address uint16) []byte {
	a := cellbits.PutLeUint16(address)
	return []byte{FlagHighDataRate, CmdExtendedReadSingleBlock, a[0], a[1]}
}

// WriteRequest builds an extended write single block request.
func WriteRequest(address uint16, data smartag.Cell) []byte {
	a := cellbits.PutLeUint16(address)
	return []byte{
		FlagHighDataRate, CmdExtendedWriteSingleBlock, a[0], a[1],
		data[0], data[1], data[2], data[3],
	}
}

// PresentPasswordRequest opens a security session with the password of the
// given number.
func PresentPasswordRequest(number byte, password [8]byte) []byte {
	req := []byte{FlagHighDataRate, CmdPresentPassword, ManufacturerST, number}
	return append(req, password[:]...)
}

// EnergyHarvestingRequest switches the energy harvesting output.
func EnergyHarvestingRequest(enabled bool) []byte {
	var v byte
	if enabled {
		v = 0x01
	}
	return []byte{FlagHighDataRate, CmdWriteDynamicConfig, ManufacturerST, RegEnergyHarvestingCtrl, v}
}

// ParseResponse checks the response flags and returns the data after them.
// A tag error is reported as a retryable TransportError carrying the error
// code.
func ParseResponse(op, port string, resp []byte) ([]byte, error) {
	if len(resp) == 0 {
		return nil, smartag.NewFrameCorruptedError(op, port)
	}
	if resp[0]&responseErrorFlag != 0 {
		var code byte
		if len(resp) > 1 {
			code = resp[1]
		}
		return nil, smartag.NewTagResponseError(op, port, code)
	}
	return resp[1:], nil
}

// Client runs cell operations through a Transceiver.
type Client struct {
	tx       Transceiver
	port     string
	password [8]byte
}

// NewClient returns a client for tx. The port names the link in errors.
func NewClient(tx Transceiver, port string) *Client {
	return &Client{tx: tx, port: port}
}

// SetPassword sets the configuration password presented before changing
// energy harvesting. The factory default is all zeros.
func (c *Client) SetPassword(password [8]byte) {
	c.password = password
}

func (c *Client) exchange(ctx context.Context, op string, req []byte) ([]byte, error) {
	resp, err := c.tx.Transceive(ctx, req)
	if err != nil {
		return nil, err
	}
	return ParseResponse(op, c.port, resp)
}

// ReadCell reads one memory cell.
func (c *Client) ReadCell(ctx context.Context, address uint16) (smartag.Cell, error) {
	data, err := c.exchange(ctx, "read", ReadRequest(address))
	if err != nil {
		return smartag.Cell{}, err
	}
	if len(data) < smartag.CellSize {
		return smartag.Cell{}, smartag.NewTransportError("read", c.port,
			fmt.Errorf("%w: %d data bytes", smartag.ErrFrameCorrupted, len(data)), smartag.ErrorTypeTransient)
	}
	return smartag.Cell(data[:smartag.CellSize]), nil
}

// WriteCell writes one memory cell.
func (c *Client) WriteCell(ctx context.Context, address uint16, data smartag.Cell) error {
	_, err := c.exchange(ctx, "write", WriteRequest(address, data))
	return err
}

// SetEnergyHarvesting presents the configuration password and switches the
// energy harvesting output.
func (c *Client) SetEnergyHarvesting(ctx context.Context, enabled bool) error {
	if _, err := c.exchange(ctx, "present password", PresentPasswordRequest(0, c.password)); err != nil {
		return err
	}
	_, err := c.exchange(ctx, "energy harvesting", EnergyHarvestingRequest(enabled))
	return err
}
