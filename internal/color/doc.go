// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color wraps strings in ANSI escape codes.
//
// Colour is decided once at start-up from NO_COLOR, FORCE_COLOR and whether
// stderr is a terminal. Stdout carries converted records and command output,
// so it never influences the decision.
package color
