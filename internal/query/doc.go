// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package query selects and reshapes records with a JMESPath expression.
package query
