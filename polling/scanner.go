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

package polling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
)

// Scanner runs a Monitor on its own goroutine and serializes every other
// use of the device through Apply. Operations submitted with Apply run on
// the scanning goroutine between two reads, so callers never share the
// device with the poll loop.
type Scanner struct {
	device           *grf500.Device
	config           *ScanConfig
	pending          atomic.Pointer[operationRequest]
	cancelFunc       context.CancelFunc
	done             chan struct{}
	OnReading        func(Reading)
	OnTargetAcquired func(Reading)
	OnTargetMoved    func(Reading)
	OnTargetLost     func()
	OnError          func(error)
	stopMutex        sync.Mutex
	running          atomic.Bool
}

// operationRequest represents a pending device operation
type operationRequest struct {
	operation func(*grf500.Device) error
	result    chan error
}

// Scanner-specific errors
var (
	ErrOperationAlreadyPending = errors.New("device operation already pending")
	ErrScannerNotRunning       = errors.New("scanner is not running")
	ErrScannerStopped          = errors.New("scanner was stopped")
	ErrScannerAlreadyRunning   = errors.New("scanner is already running")
)

// NewScanner creates a new scanner instance with the given device and configuration
func NewScanner(device *grf500.Device, config *ScanConfig) (*Scanner, error) {
	if device == nil {
		return nil, errors.New("device cannot be nil")
	}
	if config == nil {
		config = DefaultScanConfig()
	}

	return &Scanner{
		device: device,
		config: config,
	}, nil
}

// Start begins continuous scanning (non-blocking)
func (s *Scanner) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrScannerAlreadyRunning
	}

	// Create cancellable context for internal operations
	scanCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopMutex.Lock()
	s.cancelFunc = cancel
	s.done = done
	s.stopMutex.Unlock()

	monitor := s.newMonitor()

	go func() {
		defer func() {
			s.running.Store(false)
			s.stopMutex.Lock()
			s.cancelFunc = nil
			s.stopMutex.Unlock()
			s.failPending(ErrScannerStopped)
			close(done)
		}()

		if err := monitor.Start(scanCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.reportError(err)
		}
	}()

	return nil
}

func (s *Scanner) newMonitor() *Monitor {
	m := NewMonitor(s.device, s.config.monitorConfig())
	m.OnReading = s.OnReading
	m.OnTargetAcquired = s.OnTargetAcquired
	m.OnTargetMoved = s.OnTargetMoved
	m.OnTargetLost = s.OnTargetLost
	m.OnError = s.OnError
	m.beforePoll = func(context.Context) {
		s.runPending()
	}
	return m
}

// Stop gracefully stops the scanner
// Blocks until the scanner has fully stopped
func (s *Scanner) Stop() error {
	s.stopMutex.Lock()
	cancelFunc := s.cancelFunc
	done := s.done
	s.stopMutex.Unlock()

	if cancelFunc != nil {
		cancelFunc()
	}
	if done != nil {
		<-done
	}
	return nil
}

// IsRunning returns whether the scanner is currently active
func (s *Scanner) IsRunning() bool {
	return s.running.Load()
}

// HasPendingOperation returns true if an operation is waiting to run
func (s *Scanner) HasPendingOperation() bool {
	return s.pending.Load() != nil
}

// Apply runs operation on the scanning goroutine before the next read and
// returns its error. Only one operation may wait at a time. If ctx ends
// first, the operation is withdrawn unless it has already started.
func (s *Scanner) Apply(ctx context.Context, operation func(*grf500.Device) error) error {
	if operation == nil {
		return grf500.ErrInvalidParameter
	}
	if !s.running.Load() {
		return ErrScannerNotRunning
	}

	s.stopMutex.Lock()
	done := s.done
	s.stopMutex.Unlock()

	req := &operationRequest{
		operation: operation,
		result:    make(chan error, 1),
	}
	if !s.pending.CompareAndSwap(nil, req) {
		return ErrOperationAlreadyPending
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		if s.pending.CompareAndSwap(req, nil) {
			return ctx.Err()
		}
		// Already taken by the scanner
		return <-req.result
	case <-done:
		s.pending.CompareAndSwap(req, nil)
		select {
		case err := <-req.result:
			return err
		default:
			return ErrScannerStopped
		}
	}
}

// runPending executes the waiting operation, if any
func (s *Scanner) runPending() {
	req := s.pending.Swap(nil)
	if req == nil {
		return
	}
	req.result <- req.operation(s.device)
}

func (s *Scanner) failPending(err error) {
	if req := s.pending.Swap(nil); req != nil {
		req.result <- err
	}
}

func (s *Scanner) reportError(err error) {
	if s.OnError != nil {
		s.OnError(err)
	}
	if s.config.Logger != nil {
		s.config.Logger.Debugf("scanner stopped: %v", err)
	}
}
