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

package smartag

import (
	"context"
	"encoding/hex"
	"fmt"
)

// CellSize is the number of bytes in one addressable tag memory cell.
const CellSize = 4

// Cell is one 4-byte unit of tag memory. Every read and write moves whole cells.
type Cell [CellSize]byte

func (c Cell) String() string {
	return hex.EncodeToString(c[:])
}

// Transport is raw cell I/O against one physical tag. Implementations are
// provided for I2C, PC/SC readers, serial bridges and an in-memory tag.
//
// Address is a cell index, not a byte offset. Errors returned after a
// transport's own retries should be *TransportError values so callers can
// classify them.
type Transport interface {
	// Connect opens the channel to the tag.
	Connect(ctx context.Context) error

	// Close releases the channel opened by Connect.
	Close() error

	// ReadCell reads the cell at address.
	ReadCell(ctx context.Context, address uint16) (Cell, error)

	// WriteCell writes data to the cell at address.
	WriteCell(ctx context.Context, address uint16, data Cell) error

	// Type returns the transport type
	Type() TransportType
}

// EnergyHarvester is implemented by transports able to switch the tag's
// energy harvesting output, which powers the sensor board during a
// single-shot acquisition.
type EnergyHarvester interface {
	SetEnergyHarvesting(ctx context.Context, enabled bool) error
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportI2C is the ST25DV wired I2C interface.
	TransportI2C TransportType = "i2c"
	// TransportPCSC is a PC/SC contactless reader.
	TransportPCSC TransportType = "pcsc"
	// TransportUART is a serial RF bridge.
	TransportUART TransportType = "uart"
	// TransportMemory is an in-memory tag image.
	TransportMemory TransportType = "memory"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// TransportWithRetry wraps a Transport with retry capabilities
type TransportWithRetry struct {
	transport Transport
	config    *RetryConfig
}

// NewTransportWithRetry creates a new transport wrapper with retry logic
func NewTransportWithRetry(transport Transport, config *RetryConfig) *TransportWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &TransportWithRetry{
		transport: transport,
		config:    config,
	}
}

func wrapTransportError(op string, err error) error {
	if te, ok := err.(*TransportError); ok {
		return te
	}
	return &TransportError{
		Op:        op,
		Err:       err,
		Type:      GetErrorType(err),
		Retryable: IsRetryable(err),
	}
}

// Connect opens the underlying transport with retry.
func (t *TransportWithRetry) Connect(ctx context.Context) error {
	return RetryWithConfig(ctx, t.config, func() error {
		if err := t.transport.Connect(ctx); err != nil {
			return wrapTransportError("connect", err)
		}
		return nil
	})
}

// ReadCell reads a cell with retry.
func (t *TransportWithRetry) ReadCell(ctx context.Context, address uint16) (Cell, error) {
	var result Cell
	err := RetryWithConfig(ctx, t.config, func() error {
		var err error
		result, err = t.transport.ReadCell(ctx, address)
		if err != nil {
			return wrapTransportError(fmt.Sprintf("read cell 0x%04X", address), err)
		}
		return nil
	})
	return result, err
}

// WriteCell writes a cell with retry.
func (t *TransportWithRetry) WriteCell(ctx context.Context, address uint16, data Cell) error {
	return RetryWithConfig(ctx, t.config, func() error {
		if err := t.transport.WriteCell(ctx, address, data); err != nil {
			return wrapTransportError(fmt.Sprintf("write cell 0x%04X", address), err)
		}
		return nil
	})
}

// Close closes the transport connection
func (t *TransportWithRetry) Close() error {
	if err := t.transport.Close(); err != nil {
		return fmt.Errorf("failed to close underlying transport: %w", err)
	}
	return nil
}

// Type returns the transport type
func (t *TransportWithRetry) Type() TransportType {
	return t.transport.Type()
}

// SetEnergyHarvesting forwards to the wrapped transport when it supports it.
func (t *TransportWithRetry) SetEnergyHarvesting(ctx context.Context, enabled bool) error {
	eh, ok := t.transport.(EnergyHarvester)
	if !ok {
		return fmt.Errorf("%w: %s transport has no energy harvesting control", ErrInvalidParameter, t.Type())
	}
	return RetryWithConfig(ctx, t.config, func() error {
		if err := eh.SetEnergyHarvesting(ctx, enabled); err != nil {
			return wrapTransportError("energy harvesting", err)
		}
		return nil
	})
}

// SetRetryConfig updates the retry configuration
func (t *TransportWithRetry) SetRetryConfig(config *RetryConfig) {
	t.config = config
}

// Unwrap returns the wrapped transport.
func (t *TransportWithRetry) Unwrap() Transport {
	return t.transport
}
