// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package source opens the inputs that records are read from.
//
// An input is standard input, a local file, or a remote location fetched with go-getter.
// Local files are read through an afero filesystem so tests can substitute an in-memory one.
package source
