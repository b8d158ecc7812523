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
	"fmt"
	"sync"
	"time"
)

// ValidationConfig holds configuration for data validation and reliability
type ValidationConfig struct {
	// RetryDelay specifies delay between retry attempts
	RetryDelay time.Duration

	// SettleDelay is waited between a write and its verification read.
	SettleDelay time.Duration

	// ReadRetries specifies max number of read retries on validation failure
	ReadRetries int

	// WriteRetries specifies max number of write retries on verification failure
	WriteRetries int

	// EnableReadVerification requires two consecutive identical reads
	EnableReadVerification bool

	// EnableWriteVerification reads every written cell back
	EnableWriteVerification bool
}

// DefaultValidationConfig verifies writes only. The status cell is changed
// by the firmware between reads, so read verification is opt-in.
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		EnableReadVerification:  false,
		ReadRetries:             3,
		EnableWriteVerification: true,
		WriteRetries:            3,
		RetryDelay:              50 * time.Millisecond,
		SettleDelay:             5 * time.Millisecond,
	}
}

// ValidationMetrics tracks validation statistics
type ValidationMetrics struct {
	LastValidation    time.Time
	TotalOperations   uint64
	FailedValidations uint64
}

// ValidatingTransport verifies cell reads and writes of the wrapped
// transport.
type ValidatingTransport struct {
	Transport
	config  *ValidationConfig
	metrics ValidationMetrics
	mu      sync.Mutex
}

// NewValidatingTransport wraps transport with verification.
func NewValidatingTransport(transport Transport, config *ValidationConfig) *ValidatingTransport {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &ValidatingTransport{Transport: transport, config: config}
}

// Unwrap returns the wrapped transport.
func (v *ValidatingTransport) Unwrap() Transport {
	return v.Transport
}

// Metrics returns current validation metrics
func (v *ValidatingTransport) Metrics() ValidationMetrics {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.metrics
}

func (v *ValidatingTransport) record(success bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.metrics.TotalOperations++
	v.metrics.LastValidation = time.Now()
	if !success {
		v.metrics.FailedValidations++
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ReadCell reads a cell, requiring two consecutive matching reads when read
// verification is enabled.
func (v *ValidatingTransport) ReadCell(ctx context.Context, address uint16) (Cell, error) {
	data, err := v.Transport.ReadCell(ctx, address)
	if !v.config.EnableReadVerification || err != nil {
		return data, err
	}

	var lastErr error
	last := data
	for retry := 0; retry < v.config.ReadRetries; retry++ {
		if retry > 0 {
			if err := sleepContext(ctx, v.config.RetryDelay); err != nil {
				return Cell{}, err
			}
		}
		verify, err := v.Transport.ReadCell(ctx, address)
		if err != nil {
			lastErr = err
			continue
		}
		if verify == last {
			v.record(true)
			return verify, nil
		}
		last = verify
	}

	v.record(false)
	if lastErr != nil {
		return Cell{}, fmt.Errorf("read validation of cell 0x%04X failed after %d retries: %w",
			address, v.config.ReadRetries, lastErr)
	}
	return Cell{}, fmt.Errorf("%w: inconsistent reads of cell 0x%04X after %d retries",
		ErrVerificationFailed, address, v.config.ReadRetries)
}

// WriteCell writes a cell and reads it back when write verification is
// enabled, rewriting on mismatch.
func (v *ValidatingTransport) WriteCell(ctx context.Context, address uint16, data Cell) error {
	var lastErr error
	for retry := 0; retry <= v.config.WriteRetries; retry++ {
		if retry > 0 {
			if err := sleepContext(ctx, v.config.RetryDelay); err != nil {
				return err
			}
		}

		if err := v.Transport.WriteCell(ctx, address, data); err != nil {
			return err
		}
		if !v.config.EnableWriteVerification {
			return nil
		}

		if err := sleepContext(ctx, v.config.SettleDelay); err != nil {
			return err
		}
		readBack, err := v.Transport.ReadCell(ctx, address)
		if err != nil {
			return err
		}
		if readBack == data {
			v.record(true)
			return nil
		}
		lastErr = fmt.Errorf("%w: cell 0x%04X wrote %s, read %s", ErrVerificationFailed, address, data, readBack)
	}

	v.record(false)
	return fmt.Errorf("write validation failed after %d retries: %w", v.config.WriteRetries, lastErr)
}
