// Package prompt asks the interactive questions of a filemod session.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

const (
	FilenameQuestion = "Please enter the name of the file to read: "
	ShowQuestion     = "\nWould you like to see the content of both files? (y/n): "
)

// ErrNoInput is returned when input ends before a filename is entered.
var ErrNoInput = errors.New("no filename entered")

// Prompter asks for an input filename and yes/no confirmations.
type Prompter interface {
	Filename(ctx context.Context) (string, error)
	Confirm(ctx context.Context, question string) (bool, error)
}

// New returns a Form prompter when both in and out are terminals, and a Line
// prompter otherwise.
func New(in, out *os.File) Prompter {
	if isTerminal(in) && isTerminal(out) {
		return Form{}
	}
	return NewLine(in, out)
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Line prompts with plain text, one answer per line.
type Line struct {
	in  *bufio.Reader
	out io.Writer
}

func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewReader(in), out: out}
}

func (l *Line) Filename(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, _ = fmt.Fprint(l.out, FilenameQuestion)
	line, err := l.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", err
	}
	return line, nil
}

// Confirm treats an answer of exactly "y" or "Y" as yes. End of input is a no.
func (l *Line) Confirm(ctx context.Context, question string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, _ = fmt.Fprint(l.out, question)
	line, err := l.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return strings.ToLower(line) == "y", nil
}

// readLine returns the next line without its terminator. A final line with
// no terminator is returned without error.
func (l *Line) readLine() (string, error) {
	line, err := l.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Form prompts with huh fields on a terminal.
type Form struct{}

func (Form) Filename(ctx context.Context) (string, error) {
	var name string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(strings.TrimSuffix(FilenameQuestion, ": ")).
			Value(&name).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("filename is required")
				}
				return nil
			}),
	)).RunWithContext(ctx)
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrNoInput
		}
		return "", err
	}
	return name, nil
}

func (Form) Confirm(ctx context.Context, question string) (bool, error) {
	var ok bool
	title := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(question), "(y/n):"))
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	)).RunWithContext(ctx)
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}
