// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package confirm

import (
	"errors"
	"os"
	"strings"
	"unicode"

	"golang.org/x/term"
)

// Answer is the reply to a confirmation prompt.
type Answer int

const (
	// Yes runs the command. It is the default for an empty reply.
	Yes Answer = iota
	// No skips the command.
	No
	// Quit skips the command and stops dispatching further ones.
	Quit
)

const (
	choices  = " [Y/n/q] "
	reprompt = "Please answer y(es), n(o) or q(uit)."
	ttyPath  = "/dev/tty"
)

// ErrNoTerminal is returned when confirmation is requested without a terminal to ask on.
var ErrNoTerminal = errors.New("interactive confirmation requires a terminal")

// Confirmer asks a yes, no or quit question.
// text may span several lines; the last line is the question.
type Confirmer interface {
	Confirm(text string) (Answer, error)
	Close() error
}

// String implements fmt.Stringer.
func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// ParseAnswer interprets a reply. An empty reply means yes.
func ParseAnswer(s string) (Answer, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "y", "yes":
		return Yes, true
	case "n", "no":
		return No, true
	case "q", "quit":
		return Quit, true
	default:
		return Yes, false
	}
}

// New returns a liner based confirmer when standard input and output are terminals,
// otherwise one that reads the controlling terminal.
func New() (Confirmer, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec
		return &LineConfirmer{out: os.Stdout}, nil
	}

	tty, err := os.OpenFile(ttyPath, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Join(ErrNoTerminal, err)
	}

	return NewReaderConfirmer(tty, tty, tty), nil
}

// splitPrompt separates the question, the last line of text, from the lines before it.
func splitPrompt(text string) (body, question string) {
	text = strings.TrimRight(text, "\n")

	i := strings.LastIndexByte(text, '\n')
	if i < 0 {
		return "", text
	}

	return text[:i], text[i+1:]
}

// sanitize replaces control characters, which liner refuses in a prompt.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '?'
		}

		return r
	}, s)
}
