// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker relays termination signals to a running batch.
//
// Watch turns the first signal into a request to stop dispatching rows, and a
// repeat of the same signal into cancellation of the running children.
package signalbroker

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/arraypad/each/internal/ctxlog"
)

// DefaultSignals are relayed when New is given no signals.
var DefaultSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
	syscall.SIGQUIT,
}

// Broker relays OS signals until it is stopped.
type Broker struct {
	ch   chan os.Signal
	once sync.Once
}

// New starts relaying sigs, or DefaultSignals if none are given.
func New(ctx context.Context, sigs ...os.Signal) *Broker {
	if len(sigs) == 0 {
		sigs = DefaultSignals
	}

	b := &Broker{ch: make(chan os.Signal, 1)}

	ctxlog.Debug(ctx, "relaying signals", "signals", sigs)
	signal.Notify(b.ch, sigs...)

	return b
}

// C returns the channel signals are delivered on. It is closed by Stop.
func (b *Broker) C() <-chan os.Signal {
	return b.ch
}

// Stop stops relaying and closes the channel, which ends Watch.
// It is safe to call more than once.
func (b *Broker) Stop() {
	b.once.Do(func() {
		signal.Stop(b.ch)
		close(b.ch)
	})
}
