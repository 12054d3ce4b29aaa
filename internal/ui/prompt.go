package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
)

// Prompter asks the user a yes/no question. A declined or interrupted
// prompt answers false without error.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// NewPrompter picks the interactive huh form when both ends are terminals
// and the line prompter otherwise.
func NewPrompter(in io.Reader, out io.Writer) Prompter {
	if IsTerminal(in) && IsTerminal(out) {
		return &FormPrompter{in: in, out: out}
	}
	return NewLinePrompter(in, out)
}

// LinePrompter prints "question [y/N]" and reads one line.
type LinePrompter struct {
	in  io.Reader
	out io.Writer
}

// NewLinePrompter creates a LinePrompter.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: in, out: orDiscard(out)}
}

// Confirm returns true only for "y" or "yes" (case-insensitive). EOF is a no.
func (p *LinePrompter) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(p.out, "%s [y/N] ", question)

	scanner := bufio.NewScanner(p.in)
	if !scanner.Scan() {
		fmt.Fprintln(p.out)
		return false, scanner.Err()
	}

	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes", nil
}

// FormPrompter asks through a huh confirm field.
type FormPrompter struct {
	in  io.Reader
	out io.Writer
}

// Confirm runs the form. Escape or Ctrl+C answers false.
func (p *FormPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	confirmed := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(question).
			Affirmative("Yes").
			Negative("No").
			Value(&confirmed),
	)).WithInput(p.in).WithOutput(p.out)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return confirmed, nil
}
