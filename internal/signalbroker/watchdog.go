// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/arraypad/each/internal/ctxlog"
)

// Watch monitors the signal channel until ctx is done or sigCh is closed.
//
// The first signal of a given type calls first, if it is not nil. A second
// signal of the same type calls cancel and Watch returns.
func Watch(ctx context.Context, sigCh <-chan os.Signal, first func(os.Signal), cancel context.CancelFunc) {
	logger := ctxlog.Logger(ctx).With("component", "watchdog")
	seen := make(map[os.Signal]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			if _, dup := seen[sig]; dup {
				logger.Warn("received second signal, terminating running commands", "signal", sig.String())
				cancel()

				return
			}

			logger.Warn("received signal, no new commands will be started", "signal", sig.String())

			seen[sig] = struct{}{}

			if first != nil {
				first(sig)
			}
		}
	}
}
