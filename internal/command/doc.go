// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package command turns rows into the command invocations that will be run for them.
//
// The executable is held as an Executable, a type that only NewBuilder creates from the raw
// command line argument. Rendered template output is a plain string and cannot become the
// executable without an explicit conversion, so field values never choose the program that runs.
package command
