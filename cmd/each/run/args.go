// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"errors"
	"strings"

	"github.com/arraypad/each/internal/exitcode"
	"github.com/urfave/cli/v3"
)

const argTerminator = "--"

// SplitArgs inserts "--" before the first positional argument so that flags
// after the command name are passed to the command rather than parsed here.
// A short flag with its value attached is split in two.
//
//	each -P 2 grep -v {{pattern}}  =>  each -P 2 -- grep -v {{pattern}}
//	each -P2 echo {{x}}            =>  each -P 2 -- echo {{x}}
func SplitArgs(cmd *cli.Command, args []string) []string {
	if len(args) < 2 {
		return args
	}

	flags := flagNames(cmd)

	out := make([]string, 0, len(args)+1)
	out = append(out, args[0])

	for i := 1; i < len(args); i++ {
		arg := args[i]

		if arg == argTerminator {
			return append(out, args[i:]...)
		}

		if !strings.HasPrefix(arg, "-") || arg == "-" {
			out = append(out, argTerminator)
			return append(out, args[i:]...)
		}

		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") {
			out = append(out, arg)
			continue
		}

		isBool, known := flags[name]

		if !known && !strings.HasPrefix(arg, "--") && len(name) > 1 {
			if b, ok := flags[name[:1]]; ok && !b {
				out = append(out, "-"+name[:1], name[1:])
				continue
			}
		}

		out = append(out, arg)

		if isBool {
			continue
		}

		// the next argument is this flag's value
		if i+1 < len(args) {
			i++
			out = append(out, args[i])
		}
	}

	return out
}

// flagNames maps every flag name to whether it is a bool flag.
func flagNames(cmd *cli.Command) map[string]bool {
	names := map[string]bool{
		"help": true, "h": true,
		"version": true, "v": true,
	}

	for _, f := range cmd.Flags {
		_, isBool := f.(*cli.BoolFlag)

		for _, n := range f.Names() {
			names[n] = isBool
		}
	}

	return names
}

// ExitCode returns the process exit code for the error returned by the command.
func ExitCode(err error) int {
	if err == nil {
		return exitcode.OK
	}

	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}

	return exitcode.Usage
}
