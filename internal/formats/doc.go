// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package formats reads records from, and writes records to, the supported data formats.
//
// Each format implements the Format interface.
// A Registry holds the formats in sniffing order and guesses the format of an input
// from its file extension, or failing that, from the first bytes of its content.
package formats
