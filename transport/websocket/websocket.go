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

// Package websocket reaches a GRF-500 through a network serial bridge that
// relays the sensor's UART as binary WebSocket messages
package websocket

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	// pollSlice bounds how long ReadByte waits for a message
	pollSlice = time.Millisecond
)

// Option configures a Dial
type Option func(*dialConfig)

type dialConfig struct {
	username         string
	password         string
	handshakeTimeout time.Duration
	skipVerify       bool
}

// WithBasicAuth sends HTTP Basic credentials with the upgrade request
func WithBasicAuth(username, password string) Option {
	return func(c *dialConfig) {
		c.username = username
		c.password = password
	}
}

// WithInsecureSkipVerify disables certificate checks for wss:// bridges
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *dialConfig) {
		c.skipVerify = skip
	}
}

// WithHandshakeTimeout bounds the opening handshake
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *dialConfig) {
		c.handshakeTimeout = d
	}
}

// Transport implements grf500.StreamTransport over a WebSocket. One reader
// goroutine moves incoming binary messages into a queue; ReadByte waits at
// most one poll slice for it to fill.
type Transport struct {
	conn    *websocket.Conn
	readErr error
	done    chan struct{}
	ready   chan struct{}
	url     string
	rx      []byte
	mu      sync.Mutex
	writeMu sync.Mutex
	closed  bool
}

// Dial connects to the bridge at rawURL (ws:// or wss://)
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Transport, error) {
	config := dialConfig{handshakeTimeout: defaultHandshakeTimeout}
	for _, opt := range opts {
		opt(&config)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q (use ws:// or wss://): %w", u.Scheme, grf500.ErrInvalidParameter)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: config.handshakeTimeout,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: config.skipVerify, //nolint:gosec // opt-in for self-signed bridges
		}
	}

	headers := http.Header{}
	if config.username != "" && config.password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(config.username + ":" + config.password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.DialContext(ctx, rawURL, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket connection failed: %w", err)
	}

	t := &Transport{
		conn: conn,
		url:   rawURL,
		done:  make(chan struct{}),
		ready: make(chan struct{}, 1),
	}
	go t.readLoop()
	return t, nil
}

// readLoop runs until the connection fails or is closed
func (t *Transport) readLoop() {
	defer close(t.done)
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			if !t.closed {
				t.readErr = err
			}
			t.mu.Unlock()
			return
		}
		// only binary messages carry serial bytes
		if messageType != websocket.BinaryMessage {
			continue
		}
		t.mu.Lock()
		t.rx = append(t.rx, data...)
		t.mu.Unlock()

		select {
		case t.ready <- struct{}{}:
		default:
		}
	}
}

// Write sends p as one binary message
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return 0, grf500.NewTransportError("write", t.url, grf500.ErrTransportClosed, grf500.ErrorTypePermanent)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, grf500.NewTransportError("write", t.url,
			fmt.Errorf("%w: %w", grf500.ErrTransportWrite, err), grf500.ErrorTypePermanent)
	}
	return len(p), nil
}

// ReadByte returns the next queued byte, waiting at most one poll slice
// when the queue is empty. Bytes that arrived before the connection
// dropped are still handed out before the error.
func (t *Transport) ReadByte() (byte, bool, error) {
	if b, ok, err := t.next(); ok || err != nil {
		return b, ok, err
	}

	timer := time.NewTimer(pollSlice)
	defer timer.Stop()
	select {
	case <-t.ready:
	case <-t.done:
	case <-timer.C:
	}
	return t.next()
}

func (t *Transport) next() (byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.rx) > 0 {
		b := t.rx[0]
		t.rx = t.rx[1:]
		return b, true, nil
	}
	if t.closed {
		return 0, false, grf500.NewTransportError("read", t.url, grf500.ErrTransportClosed, grf500.ErrorTypePermanent)
	}
	if t.readErr != nil {
		return 0, false, grf500.NewTransportError("read", t.url,
			fmt.Errorf("%w: %w", grf500.ErrTransportRead, t.readErr), grf500.ErrorTypePermanent)
	}
	return 0, false, nil
}

// Close sends a close frame and waits for the reader goroutine to stop
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	t.writeMu.Unlock()

	err := t.conn.Close()
	<-t.done
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("failed to close websocket %s: %w", t.url, err)
	}
	return nil
}

// IsConnected returns true until Close is called or the bridge drops
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed && t.readErr == nil
}

// Type returns the transport type
func (*Transport) Type() grf500.TransportType {
	return grf500.TransportWebSocket
}

// HasCapability implements grf500.TransportCapabilityChecker
func (*Transport) HasCapability(capability grf500.TransportCapability) bool {
	return capability == grf500.CapabilityStreaming || capability == grf500.CapabilityNonBlocking
}

// Ensure Transport implements grf500.StreamTransport
var _ grf500.StreamTransport = (*Transport)(nil)
