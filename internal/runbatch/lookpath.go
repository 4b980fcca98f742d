// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrCommandNotFound is returned when a program cannot be found in PATH.
var ErrCommandNotFound = errors.New("command not found")

// FindInPath resolves the program of a rendered command line.
// A name containing a path separator is used as given, otherwise each
// directory in PATH is searched in order.
func FindInPath(command string) (string, error) {
	if command == "" {
		return "", fmt.Errorf("%w: empty program name", ErrCommandNotFound)
	}

	if strings.ContainsRune(command, os.PathSeparator) || strings.ContainsRune(command, '/') {
		if !isExecutable(command) {
			return "", fmt.Errorf("%w: %s", ErrCommandNotFound, command)
		}

		return command, nil
	}

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			// POSIX: an empty PATH entry is the working directory
			dir = "."
		}

		candidate := filepath.Join(dir, command)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrCommandNotFound, command)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return false
	}

	return true
}
