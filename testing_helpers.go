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
	"sync"
)

// MockTransport is a map backed Transport for tests. Errors queued with
// FailNext are returned by the following cell operations, one per call,
// before the memory is touched.
type MockTransport struct {
	cells       map[uint16]Cell
	failures    []error
	ReadCalls   int
	WriteCalls  int
	Connects    int
	Closes      int
	mu          sync.Mutex
	connected   bool
	ConnectErr  error
	Unconnected bool
}

// NewMockTransport creates an empty mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{cells: make(map[uint16]Cell)}
}

// FailNext queues errors for the next cell operations.
func (m *MockTransport) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
}

// Set stores a cell directly.
func (m *MockTransport) Set(address uint16, c Cell) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[address] = c
}

// Get returns a cell directly.
func (m *MockTransport) Get(address uint16) Cell {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cells[address]
}

func (m *MockTransport) nextFailure() error {
	if len(m.failures) == 0 {
		return nil
	}
	err := m.failures[0]
	m.failures = m.failures[1:]
	return err
}

// Connect implements Transport.
func (m *MockTransport) Connect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Connects++
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.connected = true
	return nil
}

// Close implements Transport.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closes++
	m.connected = false
	return nil
}

// ReadCell implements Transport.
func (m *MockTransport) ReadCell(ctx context.Context, address uint16) (Cell, error) {
	if err := ctx.Err(); err != nil {
		return Cell{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls++
	if !m.connected && !m.Unconnected {
		return Cell{}, ErrNotConnected
	}
	if err := m.nextFailure(); err != nil {
		return Cell{}, err
	}
	return m.cells[address], nil
}

// WriteCell implements Transport.
func (m *MockTransport) WriteCell(ctx context.Context, address uint16, data Cell) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteCalls++
	if !m.connected && !m.Unconnected {
		return ErrNotConnected
	}
	if err := m.nextFailure(); err != nil {
		return err
	}
	m.cells[address] = data
	return nil
}

// Type implements Transport.
func (*MockTransport) Type() TransportType {
	return TransportMock
}
