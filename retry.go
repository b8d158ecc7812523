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
	"time"

	"github.com/cenkalti/backoff"
)

// RetryConfig configures retry behavior for transport operations.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first one.
	// Zero means attempts are bounded by RetryTimeout only.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
	// BackoffMultiplier grows the delay after each retry. 1 keeps it fixed.
	BackoffMultiplier float64
	// Jitter is the randomization factor applied to each delay (0.0-1.0).
	Jitter float64
	// RetryTimeout bounds the total time spent retrying. Zero disables it.
	RetryTimeout time.Duration
}

// DefaultRetryConfig returns the ST25DV driver behavior: five attempts with a
// fixed 5 ms delay between them.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 1.0,
		Jitter:            0,
		RetryTimeout:      2 * time.Second,
	}
}

// NoRetryConfig performs a single attempt.
func NoRetryConfig() *RetryConfig {
	return &RetryConfig{MaxAttempts: 1}
}

func (c *RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.InitialBackoff
	exp.MaxInterval = c.MaxBackoff
	if exp.MaxInterval < exp.InitialInterval {
		exp.MaxInterval = exp.InitialInterval
	}
	exp.Multiplier = c.BackoffMultiplier
	if exp.Multiplier < 1 {
		exp.Multiplier = 1
	}
	exp.RandomizationFactor = c.Jitter
	exp.MaxElapsedTime = c.RetryTimeout
	exp.Reset()

	var b backoff.BackOff = exp
	if c.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(c.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// RetryWithConfig runs fn until it succeeds, returns a non-retryable error,
// the attempts are exhausted or ctx is done. The last error is returned.
func RetryWithConfig(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("retry cancelled: %w", err)
	}

	var permanent error
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn()
		if err != nil && !IsRetryable(err) {
			permanent = err
			return nil
		}
		if err != nil {
			debugf("attempt %d failed, retrying: %v", attempt, err)
		}
		return err
	}, config.backOff(ctx))

	if permanent != nil {
		return permanent
	}
	if err != nil {
		return err
	}
	return nil
}
