// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch runs one child process per row with bounded parallelism.
//
// The Scheduler renders each row with a command.Builder, optionally asks for
// confirmation, and starts the resulting OSCommand once a slot is free. Each
// finished row yields a Result; the Summary aggregates them into totals, a
// combined error, a process exit code, a text tree and a JSON report.
package runbatch
