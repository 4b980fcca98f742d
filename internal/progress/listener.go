// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"context"
	"log/slog"

	"github.com/arraypad/each/internal/ctxlog"
)

var _ Listener = (*LogListener)(nil)

// LogListener writes events to the context logger.
// Started and completed rows are logged at debug level, failures at info.
type LogListener struct {
	logger *slog.Logger
}

// NewLogListener creates a listener that logs with the logger in ctx.
func NewLogListener(ctx context.Context) *LogListener {
	return &LogListener{
		logger: ctxlog.Logger(ctx).With("component", "progress"),
	}
}

// OnEvent implements Listener.
func (l *LogListener) OnEvent(e Event) {
	attrs := []any{"row", e.Row, "command", e.Label}

	switch e.Type {
	case EventStarted:
		l.logger.Debug(e.Type.String(), append(attrs, "pid", e.Data.Pid)...)
	case EventCompleted:
		l.logger.Debug(e.Type.String(), append(attrs, "duration", e.Data.Duration.String())...)
	case EventFailed:
		attrs = append(attrs, "exitCode", e.Data.ExitCode)
		if e.Data.Error != nil {
			attrs = append(attrs, "error", e.Data.Error.Error())
		}

		l.logger.Info(e.Type.String(), attrs...)
	default:
		l.logger.Debug(e.Type.String(), attrs...)
	}
}
