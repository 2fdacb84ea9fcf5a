// grf-500-api
// Copyright (c) 2025 The grf-500-api Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of grf-500-api.
//
// grf-500-api is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// grf-500-api is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with grf-500-api; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeToken completes immediately unless pending is set
type fakeToken struct {
	err     error
	pending bool
}

func (t *fakeToken) Wait() bool {
	return !t.pending
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	if t.pending {
		time.Sleep(d)
		return false
	}
	return true
}

func (t *fakeToken) Error() error {
	return t.err
}

type published struct {
	payload  any
	topic    string
	qos      byte
	retained bool
}

type fakePublisher struct {
	token *fakeToken
	msgs  []published
	mu    sync.Mutex
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, qos: qos, retained: retained, payload: payload})
	if p.token != nil {
		return p.token
	}
	return &fakeToken{}
}

func TestMQTTSink_Publish(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	sink, err := NewMQTTSink(pub, WithTopicPrefix("site/lidar/"), WithQoS(1), WithRetained(true))
	require.NoError(t, err)

	require.NoError(t, sink.Write(context.Background(), sampleRecord()))
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, "site/lidar/grf/distance", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	payload, ok := msg.payload.([]byte)
	require.True(t, ok)
	var got Record
	require.NoError(t, json.Unmarshal(payload, &got))
	require.NotNil(t, got.FirstFilteredCM)
	assert.Equal(t, int32(101), *got.FirstFilteredCM)
}

func TestMQTTSink_CBORPayload(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	sink, err := NewMQTTSink(pub, WithPayloadFormat(FormatCBOR))
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), sampleRecord()))

	var got Record
	require.NoError(t, cbor.Unmarshal(pub.msgs[0].payload.([]byte), &got))
	assert.Equal(t, KindDistance, got.Kind)
	assert.Equal(t, "grf500/grf/distance", pub.msgs[0].topic)
}

func TestMQTTSink_Topic(t *testing.T) {
	t.Parallel()

	sink, err := NewMQTTSink(&fakePublisher{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		device string
		kind   Kind
		want   string
	}{
		{name: "plain", device: "grf", kind: KindDistance, want: "grf500/grf/distance"},
		{name: "path device", device: "/dev/ttyUSB0", kind: KindMulti, want: "grf500/_dev_ttyUSB0/multi"},
		{name: "wildcards replaced", device: "a+b#", kind: KindDistance, want: "grf500/a_b_/distance"},
		{name: "missing device", kind: KindDistance, want: "grf500/unknown/distance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sink.Topic(Record{Device: tt.device, Kind: tt.kind}))
		})
	}
}

func TestMQTTSink_Errors(t *testing.T) {
	t.Parallel()

	t.Run("nil client", func(t *testing.T) {
		t.Parallel()
		_, err := NewMQTTSink(nil)
		require.ErrorIs(t, err, grf500.ErrInvalidParameter)
	})

	t.Run("bad qos", func(t *testing.T) {
		t.Parallel()
		_, err := NewMQTTSink(&fakePublisher{}, WithQoS(3))
		require.ErrorIs(t, err, grf500.ErrInvalidParameter)
	})

	t.Run("bad format", func(t *testing.T) {
		t.Parallel()
		_, err := NewMQTTSink(&fakePublisher{}, WithPayloadFormat("xml"))
		require.Error(t, err)
	})

	t.Run("broker rejects", func(t *testing.T) {
		t.Parallel()
		refused := errors.New("not authorized")
		sink, err := NewMQTTSink(&fakePublisher{token: &fakeToken{err: refused}})
		require.NoError(t, err)
		require.ErrorIs(t, sink.Write(context.Background(), sampleRecord()), refused)
	})

	t.Run("publish timeout", func(t *testing.T) {
		t.Parallel()
		sink, err := NewMQTTSink(&fakePublisher{token: &fakeToken{pending: true}},
			WithPublishTimeout(30*time.Millisecond))
		require.NoError(t, err)
		require.ErrorIs(t, sink.Write(context.Background(), sampleRecord()), grf500.ErrTimeout)
	})

	t.Run("context cancelled while waiting", func(t *testing.T) {
		t.Parallel()
		sink, err := NewMQTTSink(&fakePublisher{token: &fakeToken{pending: true}})
		require.NoError(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, sink.Write(ctx, sampleRecord()), context.DeadlineExceeded)
	})

	t.Run("closed", func(t *testing.T) {
		t.Parallel()
		pub := &fakePublisher{}
		sink, err := NewMQTTSink(pub)
		require.NoError(t, err)
		require.NoError(t, sink.Close())
		require.ErrorIs(t, sink.Write(context.Background(), sampleRecord()), ErrSinkClosed)
		assert.Empty(t, pub.msgs)
	})

	t.Run("dial without url", func(t *testing.T) {
		t.Parallel()
		_, err := DialMQTT(context.Background(), BrokerConfig{})
		require.ErrorIs(t, err, grf500.ErrInvalidParameter)
	})
}
