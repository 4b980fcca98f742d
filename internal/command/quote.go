// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package command

import "strings"

// Quote returns s quoted for a POSIX shell. Words made only of safe characters are returned as is.
func Quote(s string) string {
	if s == "" {
		return "''"
	}

	if strings.IndexFunc(s, unsafe) < 0 {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func unsafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}

	return !strings.ContainsRune("@%_-+=:,./", r)
}
