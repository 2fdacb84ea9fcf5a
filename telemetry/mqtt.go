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
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopicPrefix is prepended to every topic
const DefaultTopicPrefix = "grf500"

const (
	defaultPublishTimeout = 5 * time.Second
	disconnectQuiesce     = 250 // milliseconds
)

// Publisher is the part of mqtt.Client the sink needs
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTOption configures an MQTTSink
type MQTTOption func(*MQTTSink)

// WithTopicPrefix replaces DefaultTopicPrefix
func WithTopicPrefix(prefix string) MQTTOption {
	return func(s *MQTTSink) {
		s.prefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithQoS sets the publish quality of service (0, 1 or 2)
func WithQoS(qos byte) MQTTOption {
	return func(s *MQTTSink) {
		s.qos = qos
	}
}

// WithRetained marks every message retained so new subscribers see the
// latest sample
func WithRetained(retained bool) MQTTOption {
	return func(s *MQTTSink) {
		s.retained = retained
	}
}

// WithPayloadFormat selects the payload encoding. JSON is the default.
func WithPayloadFormat(f Format) MQTTOption {
	return func(s *MQTTSink) {
		s.format = f
	}
}

// WithPublishTimeout bounds the wait for the broker to accept a message
func WithPublishTimeout(d time.Duration) MQTTOption {
	return func(s *MQTTSink) {
		s.timeout = d
	}
}

// WithMQTTLogger receives connection events
func WithMQTTLogger(l grf500.Logger) MQTTOption {
	return func(s *MQTTSink) {
		s.logger = l
	}
}

// MQTTSink publishes each record to <prefix>/<device>/<kind>
type MQTTSink struct {
	client   Publisher
	logger   grf500.Logger
	close    func()
	prefix   string
	format   Format
	timeout  time.Duration
	mu       sync.Mutex
	qos      byte
	retained bool
	closed   bool
}

// NewMQTTSink publishes through an already connected client. Close does not
// disconnect it.
func NewMQTTSink(client Publisher, opts ...MQTTOption) (*MQTTSink, error) {
	if client == nil {
		return nil, fmt.Errorf("nil mqtt client: %w", grf500.ErrInvalidParameter)
	}
	s, err := newMQTTSink(opts)
	if err != nil {
		return nil, err
	}
	s.client = client
	return s, nil
}

func newMQTTSink(opts []MQTTOption) (*MQTTSink, error) {
	s := &MQTTSink{
		logger:  grf500.NopLogger{},
		prefix:  DefaultTopicPrefix,
		format:  FormatJSON,
		timeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.qos > 2 {
		return nil, fmt.Errorf("qos %d: %w", s.qos, grf500.ErrInvalidParameter)
	}
	if _, err := ParseFormat(string(s.format)); err != nil {
		return nil, err
	}
	return s, nil
}

// BrokerConfig describes the broker DialMQTT connects to
type BrokerConfig struct {
	URL                string // tcp://host:1883, ssl://host:8883 or ws://host/mqtt
	ClientID           string
	Username           string
	Password           string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// DialMQTT connects to a broker and returns a sink that disconnects on Close
func DialMQTT(ctx context.Context, config BrokerConfig, opts ...MQTTOption) (*MQTTSink, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("empty broker url: %w", grf500.ErrInvalidParameter)
	}
	timeout := config.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(config.URL)
	clientOpts.SetClientID(config.ClientID)
	if config.Username != "" {
		clientOpts.SetUsername(config.Username)
		clientOpts.SetPassword(config.Password)
	}
	if config.InsecureSkipVerify {
		clientOpts.SetTLSConfig(&tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true, //nolint:gosec // opt-in for self-signed brokers
		})
	}
	clientOpts.SetConnectTimeout(timeout)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetKeepAlive(30 * time.Second)

	s, err := newMQTTSink(opts)
	if err != nil {
		return nil, err
	}
	clientOpts.SetOnConnectHandler(func(mqtt.Client) {
		s.logger.Debugf("mqtt: connected to %s", config.URL)
	})
	clientOpts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.logger.Debugf("mqtt: connection lost: %v", err)
	})

	client := mqtt.NewClient(clientOpts)
	if err := waitToken(ctx, client.Connect(), timeout); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.URL, err)
	}
	s.client = client
	s.close = func() { client.Disconnect(disconnectQuiesce) }
	return s, nil
}

// Topic returns the topic a record is published to
func (s *MQTTSink) Topic(r Record) string {
	device := r.Device
	if device == "" {
		device = "unknown"
	}
	// Topic levels cannot contain wildcards or separators
	device = strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(device)
	return s.prefix + "/" + device + "/" + string(r.Kind)
}

// Write implements Sink
func (s *MQTTSink) Write(ctx context.Context, r Record) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSinkClosed
	}

	payload, err := Marshal(s.format, r)
	if err != nil {
		return err
	}
	topic := s.Topic(r)
	token := s.client.Publish(topic, s.qos, s.retained, payload)
	if err := waitToken(ctx, token, s.timeout); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Close implements Sink
func (s *MQTTSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.close != nil {
		s.close()
	}
	return nil
}

// waitToken waits for token in slices so ctx is honoured; paho v1.2 tokens
// have no done channel
func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for !token.WaitTimeout(10 * time.Millisecond) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return grf500.ErrTimeout
		}
	}
	return token.Error()
}
