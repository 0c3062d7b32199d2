package fix

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned when interactive mode is requested without
// an attached terminal.
var ErrNotInteractive = errors.New("interactive mode requires a terminal")

// Prompt supplies human decisions to the interactive pipeline. The pipeline
// itself never touches a terminal, so tests can script decisions.
type Prompt interface {
	// Select asks the user to pick one of choices. ok is false when the
	// user skips this issue.
	Select(message string, choices []string) (choice string, ok bool, err error)
	// Input asks for a free-form value, offering def when non-empty. ok is
	// false when the user skips.
	Input(message, def string) (value string, ok bool, err error)
}

// ErrAborted signals that the user halted the pipeline. Fixes already
// committed stay committed.
var ErrAborted = errors.New("aborted")

// TerminalPrompt reads decisions from an interactive terminal.
type TerminalPrompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompt returns a prompt bound to stdin/stdout, or
// ErrNotInteractive when either is not a TTY.
func NewTerminalPrompt() (*TerminalPrompt, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return nil, ErrNotInteractive
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return nil, ErrNotInteractive
	}
	return &TerminalPrompt{in: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (p *TerminalPrompt) Select(message string, choices []string) (string, bool, error) {
	fmt.Fprintln(p.out, message)
	for i, c := range choices {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, c)
	}
	fmt.Fprint(p.out, "choice (enter to skip, q to abort): ")

	line, err := p.readLine()
	if err != nil {
		return "", false, err
	}
	if line == "" {
		return "", false, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(choices) {
		fmt.Fprintln(p.out, "invalid choice, skipping")
		return "", false, nil
	}
	return choices[n-1], true, nil
}

func (p *TerminalPrompt) Input(message, def string) (string, bool, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s] (enter to accept, - to skip, q to abort): ", message, def)
	} else {
		fmt.Fprintf(p.out, "%s (enter to skip, q to abort): ", message)
	}

	line, err := p.readLine()
	if err != nil {
		return "", false, err
	}
	switch line {
	case "":
		if def != "" {
			return def, true, nil
		}
		return "", false, nil
	case "-":
		return "", false, nil
	default:
		return line, true, nil
	}
}

func (p *TerminalPrompt) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return "", ErrAborted
		}
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "q" || line == "Q" {
		return "", ErrAborted
	}
	return line, nil
}
