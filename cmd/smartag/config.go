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

package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/publish"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration file of the CLI.
type Config struct {
	Transport  TransportConfig  `yaml:"transport"`
	Sampling   SamplingConfig   `yaml:"sampling"`
	SingleShot SingleShotConfig `yaml:"single_shot"`
	Log        LogConfig        `yaml:"log"`
	Timezone   string           `yaml:"timezone"`
	MQTT       publish.Config   `yaml:"mqtt"`
}

// TransportConfig selects and tunes the link to the tag.
type TransportConfig struct {
	// Type is uart, i2c, pcsc or auto.
	Type   string `yaml:"type"`
	Device string `yaml:"device"`
	// Password is the 8 byte configuration password in hex.
	Password     string        `yaml:"password"`
	Timeout      time.Duration `yaml:"timeout"`
	Retries      int           `yaml:"retries"`
	VerifyWrites bool          `yaml:"verify_writes"`
}

// ChannelConfig enables a channel and sets its threshold.
type ChannelConfig struct {
	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
	Enabled bool     `yaml:"enabled"`
}

// SamplingConfig is the configuration written by write-config.
type SamplingConfig struct {
	Mode         string        `yaml:"mode"`
	Temperature  ChannelConfig `yaml:"temperature"`
	Humidity     ChannelConfig `yaml:"humidity"`
	Pressure     ChannelConfig `yaml:"pressure"`
	Acceleration ChannelConfig `yaml:"acceleration"`
	Orientation  ChannelConfig `yaml:"orientation"`
	WakeUp       ChannelConfig `yaml:"wake_up"`
	Interval     int           `yaml:"interval"`
}

// SingleShotConfig tunes single-shot reads.
type SingleShotConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"`
	Timeout          time.Duration `yaml:"timeout"`
	EnergyHarvesting bool          `yaml:"energy_harvesting"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			Type:    "auto",
			Timeout: time.Second,
			Retries: 5,
		},
		Sampling: SamplingConfig{
			Mode:        smartag.ModeSampling.String(),
			Interval:    60,
			Temperature: ChannelConfig{Enabled: true},
			Humidity:    ChannelConfig{Enabled: true},
			Pressure:    ChannelConfig{Enabled: true},
		},
		SingleShot: SingleShotConfig{
			PollInterval:     smartag.DefaultPollInterval,
			Timeout:          2 * time.Minute,
			EnergyHarvesting: true,
		},
		Log:  LogConfig{Level: "info"},
		MQTT: publish.DefaultConfig(),
	}
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

var transportTypes = map[string]bool{"auto": true, "uart": true, "i2c": true, "pcsc": true}

// Validate checks the configuration without changing it.
func (c *Config) Validate() error {
	kind := strings.ToLower(c.Transport.Type)
	if !transportTypes[kind] {
		return errors.Errorf("transport.type %q: want auto, uart, i2c or pcsc", c.Transport.Type)
	}
	if kind == "uart" && c.Transport.Device == "" {
		return errors.New("transport.device is required for uart")
	}
	if _, err := c.Password(); err != nil {
		return err
	}
	if c.Transport.Retries < 0 {
		return errors.New("transport.retries must not be negative")
	}
	if _, err := c.SamplingConfiguration(); err != nil {
		return errors.Wrap(err, "sampling")
	}
	if c.SingleShot.PollInterval <= 0 {
		return errors.New("single_shot.poll_interval must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Password decodes the transport password; empty is the factory default.
func (c *Config) Password() ([8]byte, error) {
	var pwd [8]byte
	if c.Transport.Password == "" {
		return pwd, nil
	}
	b, err := hex.DecodeString(strings.ReplaceAll(c.Transport.Password, " ", ""))
	if err != nil || len(b) != len(pwd) {
		return pwd, errors.New("transport.password must be 8 bytes of hex")
	}
	copy(pwd[:], b)
	return pwd, nil
}

// Location returns the time zone of the tag dates.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "timezone %q", c.Timezone)
	}
	return loc, nil
}

func (ch ChannelConfig) sensor() smartag.SensorConfiguration {
	return smartag.SensorConfiguration{
		Enabled:   ch.Enabled,
		Threshold: smartag.Threshold{Min: ch.Min, Max: ch.Max},
	}
}

// SamplingConfiguration converts the sampling section.
func (c *Config) SamplingConfiguration() (*smartag.SamplingConfiguration, error) {
	mode, err := smartag.ParseMode(c.Sampling.Mode)
	if err != nil {
		return nil, err
	}
	conf := &smartag.SamplingConfiguration{
		Mode:            mode,
		IntervalSeconds: c.Sampling.Interval,
		Temperature:     c.Sampling.Temperature.sensor(),
		Humidity:        c.Sampling.Humidity.sensor(),
		Pressure:        c.Sampling.Pressure.sensor(),
		Acceleration:    c.Sampling.Acceleration.sensor(),
		Orientation:     c.Sampling.Orientation.sensor(),
		WakeUp:          c.Sampling.WakeUp.sensor(),
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// TagOptions returns the engine options selected by the configuration.
func (c *Config) TagOptions() ([]smartag.Option, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	opts := []smartag.Option{
		smartag.WithLocation(loc),
		smartag.WithPollInterval(c.SingleShot.PollInterval),
		smartag.WithEnergyHarvesting(c.SingleShot.EnergyHarvesting),
	}
	if c.Transport.Retries <= 1 {
		opts = append(opts, smartag.WithRetryConfig(smartag.NoRetryConfig()))
	} else {
		opts = append(opts, smartag.WithMaxRetries(c.Transport.Retries))
	}
	if c.Transport.VerifyWrites {
		opts = append(opts, smartag.WithWriteVerification(nil))
	}
	return opts, nil
}

func (c *Config) String() string {
	return fmt.Sprintf("transport=%s device=%q mode=%s interval=%ds",
		c.Transport.Type, c.Transport.Device, c.Sampling.Mode, c.Sampling.Interval)
}
