// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package confirm

import (
	"errors"
	"fmt"
	"io"

	"github.com/peterh/liner"
)

// LineConfirmer prompts with liner. The terminal is only in raw mode while a prompt is open,
// so child processes started between prompts see a normal terminal.
type LineConfirmer struct {
	out io.Writer
}

var _ Confirmer = (*LineConfirmer)(nil)

// Confirm implements Confirmer. Ctrl-C and Ctrl-D answer quit.
func (c *LineConfirmer) Confirm(text string) (Answer, error) {
	body, question := splitPrompt(text)
	if body != "" {
		if _, err := fmt.Fprintln(c.out, body); err != nil {
			return Quit, err
		}
	}

	for {
		input, err := c.prompt(sanitize(question) + choices)
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return Quit, nil
		}

		if err != nil {
			return Quit, err
		}

		if a, ok := ParseAnswer(input); ok {
			return a, nil
		}

		if _, err := fmt.Fprintln(c.out, reprompt); err != nil {
			return Quit, err
		}
	}
}

func (c *LineConfirmer) prompt(p string) (string, error) {
	line := liner.NewLiner()

	defer func() {
		_ = line.Close()
	}()

	line.SetCtrlCAborts(true)

	return line.Prompt(p)
}

// Close implements Confirmer.
func (c *LineConfirmer) Close() error {
	return nil
}
