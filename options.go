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
	"fmt"
	"time"
)

// DefaultPollInterval is the delay between status polls of a single-shot read.
const DefaultPollInterval = 7 * time.Second

// TagConfig contains configuration options for the Tag
type TagConfig struct {
	// RetryConfig wraps the transport with retries. Nil disables retries.
	RetryConfig *RetryConfig
	// Validation wraps the transport with read/write verification.
	Validation *ValidationConfig
	// Location is used to encode and decode tag timestamps.
	Location *time.Location
	// Clock returns the current time.
	Clock func() time.Time
	// WaitNotifier is called before each wait of a single-shot poll.
	WaitNotifier func(attempt int, wait time.Duration)
	// PollInterval is the delay between single-shot status polls.
	PollInterval time.Duration
	// EnergyHarvesting powers the sensor board from the RF field during
	// single-shot reads, when the transport supports it.
	EnergyHarvesting bool
}

// DefaultTagConfig returns default tag configuration
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		RetryConfig:  DefaultRetryConfig(),
		Location:     time.Local,
		Clock:        time.Now,
		PollInterval: DefaultPollInterval,
	}
}

// Option is a functional option for configuring a Tag
type Option func(*TagConfig) error

// WithRetryConfig sets the retry configuration. Nil disables retries.
func WithRetryConfig(config *RetryConfig) Option {
	return func(c *TagConfig) error {
		c.RetryConfig = config
		return nil
	}
}

// WithMaxRetries sets the maximum number of attempts per cell operation
func WithMaxRetries(maxAttempts int) Option {
	return func(c *TagConfig) error {
		if maxAttempts < 1 {
			return fmt.Errorf("%w: max attempts %d", ErrInvalidParameter, maxAttempts)
		}
		if c.RetryConfig == nil {
			c.RetryConfig = DefaultRetryConfig()
		}
		c.RetryConfig.MaxAttempts = maxAttempts
		return nil
	}
}

// WithRetryBackoff sets the initial backoff duration for retries
func WithRetryBackoff(initialBackoff time.Duration) Option {
	return func(c *TagConfig) error {
		if c.RetryConfig == nil {
			c.RetryConfig = DefaultRetryConfig()
		}
		c.RetryConfig.InitialBackoff = initialBackoff
		return nil
	}
}

// WithWriteVerification reads back every written cell.
func WithWriteVerification(config *ValidationConfig) Option {
	return func(c *TagConfig) error {
		if config == nil {
			config = DefaultValidationConfig()
		}
		c.Validation = config
		return nil
	}
}

// WithPollInterval sets the single-shot status poll interval.
func WithPollInterval(interval time.Duration) Option {
	return func(c *TagConfig) error {
		if interval <= 0 {
			return fmt.Errorf("%w: poll interval %v", ErrInvalidParameter, interval)
		}
		c.PollInterval = interval
		return nil
	}
}

// WithWaitNotifier registers a callback run before each single-shot wait.
func WithWaitNotifier(fn func(attempt int, wait time.Duration)) Option {
	return func(c *TagConfig) error {
		c.WaitNotifier = fn
		return nil
	}
}

// WithClock replaces the time source used for written timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *TagConfig) error {
		if clock == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidParameter)
		}
		c.Clock = clock
		return nil
	}
}

// WithLocation sets the time zone of the dates stored on the tag.
func WithLocation(loc *time.Location) Option {
	return func(c *TagConfig) error {
		if loc == nil {
			return fmt.Errorf("%w: nil location", ErrInvalidParameter)
		}
		c.Location = loc
		return nil
	}
}

// WithEnergyHarvesting enables the energy harvesting output during
// single-shot reads.
func WithEnergyHarvesting(enabled bool) Option {
	return func(c *TagConfig) error {
		c.EnergyHarvesting = enabled
		return nil
	}
}
