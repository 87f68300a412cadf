package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"dirsync/internal/dirsync"
	"dirsync/internal/ui"
)

// PathResolver obtains the two roots to synchronize from the user.
// The sync core never depends on how the roots were obtained.
type PathResolver interface {
	Resolve() (left, right string, err error)
}

// ErrMissingRoots is returned when a resolver cannot produce both roots.
var ErrMissingRoots = errors.New("two directory paths are required")

// ArgsResolver takes the roots from positional command-line arguments.
type ArgsResolver struct {
	Args []string
}

func (r ArgsResolver) Resolve() (string, string, error) {
	if len(r.Args) != 2 {
		return "", "", fmt.Errorf("%w, got %d", ErrMissingRoots, len(r.Args))
	}
	return r.Args[0], r.Args[1], nil
}

// PromptResolver asks for each root on a line of text input.
type PromptResolver struct {
	In  io.Reader
	Out io.Writer
}

func (r PromptResolver) Resolve() (string, string, error) {
	scanner := bufio.NewScanner(r.In)
	ask := func(label string) (string, error) {
		fmt.Fprintf(r.Out, "%s directory: ", label)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("reading %s directory: %w", label, err)
			}
			return "", fmt.Errorf("%w: no %s directory entered", ErrMissingRoots, label)
		}
		path := strings.TrimSpace(scanner.Text())
		if path == "" {
			return "", fmt.Errorf("%w: empty %s directory", ErrMissingRoots, label)
		}
		return path, nil
	}

	left, err := ask("Left")
	if err != nil {
		return "", "", err
	}
	right, err := ask("Right")
	if err != nil {
		return "", "", err
	}
	return left, right, nil
}

// NewResolver picks ArgsResolver when args were given and PromptResolver
// when none were and stdin is a terminal.
func NewResolver(args []string, in *os.File, out io.Writer) PathResolver {
	if len(args) == 0 && IsInteractive(in) {
		return PromptResolver{In: in, Out: out}
	}
	return ArgsResolver{Args: args}
}

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// PromptConfirm returns a dirsync.ConfirmFunc that prints the plan to out
// and reads a yes/no answer from in. Anything but y or yes declines.
func PromptConfirm(in io.Reader, out io.Writer) dirsync.ConfirmFunc {
	return func(plan *dirsync.Plan) bool {
		ui.PrintPlan(out, plan)
		fmt.Fprintf(out, "Apply %d action(s)? [y/N] ", len(plan.Actions))
		answer, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && answer == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}

// AutoConfirm prints the plan and approves it without asking.
func AutoConfirm(out io.Writer) dirsync.ConfirmFunc {
	return func(plan *dirsync.Plan) bool {
		ui.PrintPlan(out, plan)
		return true
	}
}
