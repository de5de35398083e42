// Package cli holds the interactive pieces of the command-line frontend.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/aretw0/scriptdeck/pkg/ports"
)

// TerminalConfirmer prompts on the terminal for explicit consent before a
// suspicious command runs. On a non-interactive stdin it declines without
// prompting: no answer is the same as no.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer

	// interactive overrides the tty check in tests.
	interactive *bool
}

// NewTerminalConfirmer creates a confirmer on stdin/stdout.
func NewTerminalConfirmer() *TerminalConfirmer {
	return &TerminalConfirmer{In: os.Stdin, Out: os.Stdout}
}

// Confirm asks the question and accepts only an explicit "y"/"yes".
func (c *TerminalConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if !c.isInteractive() {
		return false, nil
	}

	fmt.Fprintf(c.Out, "%s\nAllow execution? [y/N] ", prompt)

	type answer struct {
		text string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(c.In).ReadString('\n')
		ch <- answer{text: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.text == "" {
			return false, nil
		}
		input := strings.TrimSpace(strings.ToLower(a.text))
		return input == "y" || input == "yes", nil
	}
}

func (c *TerminalConfirmer) isInteractive() bool {
	if c.interactive != nil {
		return *c.interactive
	}
	f, ok := c.In.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var _ ports.Confirmer = (*TerminalConfirmer)(nil)
