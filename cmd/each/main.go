// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the each command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/arraypad/each"
	"github.com/arraypad/each/cmd/each/run"
	"github.com/arraypad/each/internal/ctxlog"
	"github.com/arraypad/each/internal/signalbroker"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx = ctxlog.New(ctx, ctxlog.FromEnv())

	stop := make(chan struct{})
	stopOnce := sync.Once{}

	broker := signalbroker.New(ctx)
	defer broker.Stop()

	go signalbroker.Watch(ctx, broker.C(), func(os.Signal) {
		stopOnce.Do(func() { close(stop) })
	}, cancel)

	cmd := run.NewCommand(os.Stdin, stop)
	cmd.Version = fmt.Sprintf("%s (commit: %s)", each.Version, each.Commit)

	err := cmd.Run(ctx, run.SplitArgs(cmd, os.Args))

	code := run.ExitCode(err)
	if err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "each: %s\n", msg) //nolint:errcheck
		}
	}

	ctxlog.Debug(ctx, "command finished", "exitCode", code)

	return code
}
