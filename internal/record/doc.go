// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package record provides the ordered record type that every input format is parsed into.
// A record keeps its fields in first-seen order so that rendering and convert-mode output
// are stable, and it can be projected into plain maps and slices for query evaluation.
package record
