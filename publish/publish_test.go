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

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	smartag "github.com/ZaparooProject/go-smartag"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error, complete bool) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type message struct {
	topic   string
	payload []byte
	qos     byte
}

type fakeClient struct {
	fail         map[string]error
	messages     []message
	hang         bool
	mu           sync.Mutex
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hang {
		return newToken(nil, false)
	}
	if err := c.fail[topic]; err != nil {
		return newToken(err, true)
	}
	c.messages = append(c.messages, message{topic: topic, qos: qos, payload: payload.([]byte)})
	return newToken(nil, true)
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

var base = time.Date(2024, time.July, 4, 12, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

func sensor(minute int) smartag.DataSample {
	return &smartag.SensorDataSample{Date: base.Add(time.Duration(minute) * time.Minute), Temperature: f64(20)}
}

func event(minute int) smartag.DataSample {
	return &smartag.EventDataSample{Date: base.Add(time.Duration(minute) * time.Minute), Events: smartag.EventFreeFall}
}

func newTestPublisher(c *fakeClient) *Publisher {
	cfg := DefaultConfig()
	cfg.DeviceID = "tag-01"
	cfg.Timeout = 50 * time.Millisecond
	return New(c, cfg, nil)
}

func TestPublishSamples(t *testing.T) {
	t.Parallel()

	c := &fakeClient{}
	p := newTestPublisher(c)
	ctx := context.Background()

	n, err := p.PublishSamples(ctx, []smartag.DataSample{sensor(1), event(1), sensor(2)})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, c.messages, 2)
	assert.Equal(t, "tag-01/sensorData", c.messages[0].topic)
	assert.Equal(t, "tag-01/eventData", c.messages[1].topic)
	assert.Equal(t, byte(1), c.messages[0].qos)

	var sensors []map[string]map[string]any
	require.NoError(t, json.Unmarshal(c.messages[0].payload, &sensors))
	require.Len(t, sensors, 2)
	assert.Equal(t, "2024-07-04T12:01:00Z", sensors[0]["SensorData"]["date"])
	assert.InDelta(t, 20.0, sensors[0]["SensorData"]["temp"], 1e-9)

	var events []map[string]map[string]any
	require.NoError(t, json.Unmarshal(c.messages[1].payload, &events))
	assert.Equal(t, []any{"free_fall"}, events[0]["EventData"]["evn"])

	n, err = p.PublishSamples(ctx, []smartag.DataSample{sensor(1), event(1), sensor(2), sensor(3)})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "already published samples are skipped")
	assert.Len(t, c.messages, 3)
}

func TestPublishFailureIsRetried(t *testing.T) {
	t.Parallel()

	c := &fakeClient{fail: map[string]error{"tag-01/eventData": errors.New("not authorized")}}
	p := newTestPublisher(c)
	ctx := context.Background()

	n, err := p.PublishSamples(ctx, []smartag.DataSample{sensor(1), event(2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authorized")
	assert.Equal(t, 1, n)

	c.fail = nil
	n, err = p.PublishSamples(ctx, []smartag.DataSample{sensor(1), event(2)})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the event is sent again")
}

func TestPublishTimeoutAndCancel(t *testing.T) {
	t.Parallel()

	c := &fakeClient{hang: true}
	p := newTestPublisher(c)

	err := p.PublishSample(context.Background(), sensor(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.PublishSample(ctx, sensor(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublishExtremes(t *testing.T) {
	t.Parallel()

	c := &fakeClient{}
	p := newTestPublisher(c)

	require.NoError(t, p.PublishExtremes(context.Background(), nil))
	assert.Empty(t, c.messages)

	ext := &smartag.TagExtreme{
		AcquisitionStart: base,
		Temperature:      &smartag.DataExtreme{MinDate: base, MinValue: 4, MaxDate: base.Add(time.Hour), MaxValue: 9},
	}
	require.NoError(t, p.PublishExtremes(context.Background(), ext))
	require.Len(t, c.messages, 1)
	assert.Equal(t, "tag-01/extremes", c.messages[0].topic)

	var msg map[string]map[string]any
	require.NoError(t, json.Unmarshal(c.messages[0].payload, &msg))
	assert.Equal(t, "2024-07-04T12:00:00Z", msg["Extremes"]["started"])
	assert.Contains(t, msg["Extremes"], "temp")

	p.Close()
	assert.True(t, c.disconnected)
}

func TestFilterIsClearedWhenFull(t *testing.T) {
	t.Parallel()

	c := &fakeClient{}
	cfg := DefaultConfig()
	cfg.DeviceID = "tag-01"
	cfg.FilterCapacity = 10
	cfg.MaxFilterUsage = 50
	p := New(c, cfg, nil)

	samples := make([]smartag.DataSample, 0, 20)
	for i := range 20 {
		samples = append(samples, sensor(i))
	}
	_, err := p.PublishSamples(context.Background(), samples)
	require.NoError(t, err)
	assert.Less(t, p.filter.ApproximatedSize(), uint32(20))
}

func TestConnectRequiresBroker(t *testing.T) {
	t.Parallel()

	_, err := Connect(DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrNoBroker)
}
