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

// Package publish sends tag samples and extremes to an MQTT broker as JSON.
//
// Messages go to <device id>/sensorData, <device id>/eventData and
// <device id>/extremes. Samples already published by a Publisher are
// skipped, so the whole log can be re-sent after every read.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	"github.com/ZaparooProject/go-smartag/export"
	bloomFilter "github.com/bits-and-blooms/bloom/v3"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Topic suffixes appended to the device id.
const (
	SensorDataTopic = "/sensorData"
	EventDataTopic  = "/eventData"
	ExtremesTopic   = "/extremes"
)

// ErrNoBroker is returned when no broker URL is configured.
var ErrNoBroker = errors.New("mqtt broker address not specified")

// Config configures the MQTT connection and de-duplication.
type Config struct {
	Broker   string `yaml:"broker"`
	DeviceID string `yaml:"device_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// FilterCapacity is the number of samples the de-duplication filter is
	// sized for.
	FilterCapacity uint `yaml:"filter_capacity"`
	// FalsePositiveRate is the probability of skipping a new sample.
	FalsePositiveRate float64 `yaml:"false_positive_rate"`
	// MaxFilterUsage is the fill percentage at which the filter is cleared.
	MaxFilterUsage float32       `yaml:"max_filter_usage"`
	Timeout        time.Duration `yaml:"timeout"`
	QoS            byte          `yaml:"qos"`
}

// DefaultConfig returns a configuration without broker.
func DefaultConfig() Config {
	return Config{
		FilterCapacity:    100000,
		FalsePositiveRate: 0.001,
		MaxFilterUsage:    90,
		Timeout:           10 * time.Second,
		QoS:               1,
	}
}

// Client is the part of an MQTT client used to publish.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher publishes to one device topic tree.
type Publisher struct {
	client   Client
	filter   *bloomFilter.BloomFilter
	log      *logrus.Entry
	deviceID string
	config   Config
	mu       sync.Mutex
}

// Connect opens an MQTT connection described by cfg. An empty device id is
// replaced with a random one.
func Connect(cfg Config, log *logrus.Entry) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, ErrNoBroker
	}
	if cfg.DeviceID == "" {
		cfg.DeviceID = "smartag-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.DeviceID).
		SetCleanSession(true).
		SetConnectTimeout(cfg.Timeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Broker, token.Error())
	}
	return New(c, cfg, log), nil
}

// New creates a publisher over an existing client.
func New(client Client, cfg Config, log *logrus.Entry) *Publisher {
	def := DefaultConfig()
	if cfg.FilterCapacity == 0 {
		cfg.FilterCapacity = def.FilterCapacity
	}
	if cfg.FalsePositiveRate <= 0 || cfg.FalsePositiveRate >= 1 {
		cfg.FalsePositiveRate = def.FalsePositiveRate
	}
	if cfg.MaxFilterUsage <= 0 {
		cfg.MaxFilterUsage = def.MaxFilterUsage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if log == nil {
		log = smartag.Logger()
	}
	return &Publisher{
		client:   client,
		filter:   bloomFilter.NewWithEstimates(cfg.FilterCapacity, cfg.FalsePositiveRate),
		log:      log.WithField("device", cfg.DeviceID),
		deviceID: cfg.DeviceID,
		config:   cfg,
	}
}

// DeviceID returns the root of the topic tree.
func (p *Publisher) DeviceID() string {
	return p.deviceID
}

// Close disconnects clients that support it.
func (p *Publisher) Close() {
	if c, ok := p.client.(interface{ Disconnect(quiesce uint) }); ok {
		c.Disconnect(250)
	}
}

func sampleKey(s smartag.DataSample) string {
	kind := "s"
	if _, ok := s.(*smartag.EventDataSample); ok {
		kind = "e"
	}
	return kind + "_" + strconv.FormatInt(s.SampleDate().Unix(), 10)
}

// resetFilter clears the filter once it is fuller than MaxFilterUsage.
func (p *Publisher) resetFilter() {
	usage := float32(p.filter.ApproximatedSize()) / float32(p.filter.Cap()) * 100
	if usage >= p.config.MaxFilterUsage {
		p.log.WithField("usage", usage).Debug("clearing duplication filter")
		p.filter.ClearAll()
	}
}

type sensorMessage struct {
	SensorData export.SensorData `json:"SensorData"`
}

type eventMessage struct {
	EventData export.EventData `json:"EventData"`
}

type extremesMessage struct {
	Extremes *export.Extremes `json:"Extremes"`
}

func (p *Publisher) send(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", topic, err)
	}

	token := p.client.Publish(p.deviceID+topic, p.config.QoS, false, payload)
	timer := time.NewTimer(p.config.Timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("publish to %s timed out after %v", p.deviceID+topic, p.config.Timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.deviceID+topic, err)
	}
	return nil
}

// PublishSamples publishes the samples not published before and returns
// how many were sent. Sensor samples are sent as one message, events as
// another; samples are remembered only once their message was delivered.
func (p *Publisher) PublishSamples(ctx context.Context, samples []smartag.DataSample) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sensors []sensorMessage
	var events []eventMessage
	var sensorKeys, eventKeys []string
	for _, s := range samples {
		key := sampleKey(s)
		if p.filter.TestString(key) {
			continue
		}
		switch v := s.(type) {
		case *smartag.SensorDataSample:
			sensors = append(sensors, sensorMessage{SensorData: export.NewSensorData(v)})
			sensorKeys = append(sensorKeys, key)
		case *smartag.EventDataSample:
			events = append(events, eventMessage{EventData: export.NewEventData(v)})
			eventKeys = append(eventKeys, key)
		}
	}

	sent := 0
	if len(sensors) > 0 {
		if err := p.send(ctx, SensorDataTopic, sensors); err != nil {
			return sent, err
		}
		p.remember(sensorKeys)
		sent += len(sensors)
	}
	if len(events) > 0 {
		if err := p.send(ctx, EventDataTopic, events); err != nil {
			return sent, err
		}
		p.remember(eventKeys)
		sent += len(events)
	}
	p.log.WithFields(logrus.Fields{"sent": sent, "skipped": len(samples) - sent}).Debug("samples published")
	return sent, nil
}

func (p *Publisher) remember(keys []string) {
	for _, k := range keys {
		p.resetFilter()
		p.filter.AddString(k)
	}
}

// PublishSample publishes a single sample, e.g. a single-shot reading.
func (p *Publisher) PublishSample(ctx context.Context, s smartag.DataSample) error {
	_, err := p.PublishSamples(ctx, []smartag.DataSample{s})
	return err
}

// PublishExtremes publishes the extremes of a tag. Nil extremes are not sent.
func (p *Publisher) PublishExtremes(ctx context.Context, e *smartag.TagExtreme) error {
	if e == nil {
		return nil
	}
	return p.send(ctx, ExtremesTopic, extremesMessage{Extremes: export.NewExtremes(e)})
}
