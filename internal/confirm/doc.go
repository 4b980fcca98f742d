// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package confirm asks the user whether to run each command.
//
// On an interactive terminal the question is asked with liner. When standard input carries
// data the question is asked on the controlling terminal instead.
package confirm
