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

// Package i2c provides the wired I2C transport to the ST25DV tag of a SmarTag
// board.
package i2c

import (
	"context"
	"fmt"
	"sync"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/internal/transport"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// UserMemoryAddr is the device address of the user memory and the
	// dynamic registers.
	UserMemoryAddr = 0x53
	// SystemAddr is the device address of the system configuration area.
	SystemAddr = 0x57

	// regEnergyHarvestingDyn is the EH_CTRL_Dyn dynamic register.
	regEnergyHarvestingDyn = 0x2002
	ehEnable               = 0x01

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	// The tag NACKs its address during the EEPROM write cycle.
	writeCycleTimeout = 20 * time.Millisecond
	writePollInterval = time.Millisecond
)

// Bus is the part of a periph I2C bus used by the transport.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Transport implements smartag.Transport for the ST25DV I2C interface
type Transport struct {
	bus       Bus
	closer    func() error
	busName   string
	mu        sync.Mutex
	connected bool
}

// New opens the I2C bus busName, e.g. "/dev/i2c-1" or "" for the first bus.
func New(busName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	// Ignore error, continue with default speed
	_ = bus.SetSpeed(maxClockFreq)

	return &Transport{bus: bus, closer: bus.Close, busName: busName}, nil
}

// NewWithBus creates a transport over an open bus.
func NewWithBus(bus Bus, name string) *Transport {
	return &Transport{bus: bus, busName: name}
}

func (t *Transport) dev(addr uint16) *i2c.Dev {
	return &i2c.Dev{Addr: addr, Bus: busAdapter{t.bus}}
}

// Connect checks that the tag answers on the bus.
func (t *Transport) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	probe := make([]byte, 1)
	if err := t.dev(UserMemoryAddr).Tx([]byte{0x00, 0x00}, probe); err != nil {
		return smartag.NewTransportError("connect", t.busName,
			fmt.Errorf("%w: %w", smartag.ErrDeviceNotFound, err), smartag.ErrorTypePermanent)
	}
	t.connected = true
	return nil
}

// Close ends the session. The bus stays open; see Release.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	return nil
}

// Release closes the I2C bus.
func (t *Transport) Release() error {
	_ = t.Close()
	if t.closer == nil {
		return nil
	}
	return t.closer()
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Type returns the transport type
func (*Transport) Type() smartag.TransportType {
	return smartag.TransportI2C
}

func byteAddress(cell uint16) []byte {
	a := uint32(cell) * smartag.CellSize
	return []byte{byte(a >> 8), byte(a)}
}

func (t *Transport) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.connected {
		return smartag.NewTransportError(op, t.busName, smartag.ErrNotConnected, smartag.ErrorTypePermanent)
	}
	return nil
}

// ReadCell implements smartag.Transport.
func (t *Transport) ReadCell(ctx context.Context, address uint16) (smartag.Cell, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(ctx, "read"); err != nil {
		return smartag.Cell{}, err
	}

	var c smartag.Cell
	if err := t.dev(UserMemoryAddr).Tx(byteAddress(address), c[:]); err != nil {
		return smartag.Cell{}, smartag.NewTransportError("read", t.busName,
			fmt.Errorf("%w: %w", smartag.ErrTransportRead, err), smartag.ErrorTypeTransient)
	}
	return c, nil
}

// WriteCell implements smartag.Transport. It returns once the EEPROM write
// cycle has completed.
func (t *Transport) WriteCell(ctx context.Context, address uint16, data smartag.Cell) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(ctx, "write"); err != nil {
		return err
	}
	return t.write(ctx, UserMemoryAddr, append(byteAddress(address), data[:]...))
}

func (t *Transport) write(ctx context.Context, dev uint16, w []byte) error {
	if err := t.dev(dev).Tx(w, nil); err != nil {
		return smartag.NewTransportError("write", t.busName,
			fmt.Errorf("%w: %w", smartag.ErrTransportWrite, err), smartag.ErrorTypeTransient)
	}
	return t.waitWriteCycle(ctx, dev)
}

// waitWriteCycle polls the device until it acknowledges again.
func (t *Transport) waitWriteCycle(ctx context.Context, dev uint16) error {
	_, err := transport.TimeoutRetry(ctx, writeCycleTimeout, writePollInterval,
		func() (struct{}, bool, error) {
			return struct{}{}, t.dev(dev).Tx(nil, nil) != nil, nil
		},
		func() error { return smartag.NewTimeoutError("write cycle", t.busName) },
	)
	return err
}

// SetEnergyHarvesting implements smartag.EnergyHarvester through the
// EH_CTRL_Dyn register, which needs no I2C security session.
func (t *Transport) SetEnergyHarvesting(ctx context.Context, enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(ctx, "energy harvesting"); err != nil {
		return err
	}
	var v byte
	if enabled {
		v = ehEnable
	}
	return t.write(ctx, UserMemoryAddr, []byte{byte(regEnergyHarvestingDyn >> 8), byte(regEnergyHarvestingDyn & 0xFF), v})
}

// busAdapter lets a narrow Bus back an i2c.Dev.
type busAdapter struct{ Bus }

func (busAdapter) String() string                  { return "smartag-i2c" }
func (busAdapter) SetSpeed(physic.Frequency) error { return nil }

// Ensure Transport implements smartag.Transport
var (
	_ smartag.Transport       = (*Transport)(nil)
	_ smartag.EnergyHarvester = (*Transport)(nil)
)
