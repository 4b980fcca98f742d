// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package template renders argument and stdin templates against a record.
//
// A template is text with embedded {{ expression }} references. The expression is a field
// name, a dotted path such as address.city, or any JMESPath expression evaluated against the
// record. Triple braces are accepted and behave the same way; nothing is ever HTML escaped.
// A backslash before {{ produces literal braces.
//
// A reference that resolves to nothing (a missing field or null) is an error. Templates never
// silently substitute an empty string.
package template
