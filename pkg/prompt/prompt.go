// Package prompt gathers decisions from the user. Business logic accepts the
// resolved answers; only command handlers and the update orchestrator talk to a
// Prompter.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// ErrNoInput is returned when the input stream ends before an answer was given
var ErrNoInput = errors.New("no input available")

// Prompter asks the user questions
type Prompter interface {
	// Confirm asks a yes/no question; an empty answer yields defaultYes
	Confirm(question string, defaultYes bool) (bool, error)

	// Choose lists options numbered from 1 and returns the zero-based index picked.
	// Invalid answers are asked again
	Choose(title string, options []string) (int, error)

	// Secret reads a line without echoing it when attached to a terminal
	Secret(question string) (string, error)
}

// Terminal is a line-oriented Prompter
type Terminal struct {
	in  *bufio.Reader
	out io.Writer

	// fd is the file descriptor used for hidden input, or -1 if input isn't a terminal
	fd int
}

// New creates a Prompter reading from in and writing questions to out
func New(in io.Reader, out io.Writer) *Terminal {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Terminal{
		in:  bufio.NewReader(in),
		out: out,
		fd:  fd,
	}
}

// Stdio returns a Prompter bound to the process' stdin and stdout
func Stdio() *Terminal {
	return New(os.Stdin, os.Stdout)
}

// interactive reports whether the prompter is attached to a terminal
func (t *Terminal) interactive() bool {
	return t.fd >= 0
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (t *Terminal) Confirm(question string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	for {
		fmt.Fprintf(t.out, "%s (%s) ", question, hint)
		answer, err := t.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

func (t *Terminal) Choose(title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errors.New("nothing to choose from")
	}
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, title)
	for i, opt := range options {
		fmt.Fprintf(t.out, "%d) %s\n", i+1, opt)
	}
	for {
		fmt.Fprintf(t.out, "Selection (1-%d): ", len(options))
		answer, err := t.readLine()
		if err != nil {
			return -1, err
		}
		choice, err := strconv.Atoi(answer)
		if err != nil || choice < 1 || choice > len(options) {
			continue
		}
		return choice - 1, nil
	}
}

func (t *Terminal) Secret(question string) (string, error) {
	fmt.Fprint(t.out, question)
	if !t.interactive() {
		return t.readLine()
	}
	secret, err := term.ReadPassword(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("failed to read secret input: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// AssumeYes wraps a Prompter so that every confirmation is answered with yes
type AssumeYes struct {
	Prompter
}

func (a AssumeYes) Confirm(string, bool) (bool, error) {
	return true, nil
}
