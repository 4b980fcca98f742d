// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress reports row lifecycle events while commands run.
// The scheduler emits an event when a row starts, completes, fails or is skipped.
// Listeners, such as the log listener, consume them without blocking execution.
package progress
