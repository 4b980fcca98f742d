// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// All diagnostics go to stderr. The default is a pretty console handler;
// EACH_LOG_FORMAT=json selects line-delimited JSON instead. EACH_LOG_LEVEL
// sets the minimum level and defaults to WARN.
package ctxlog
