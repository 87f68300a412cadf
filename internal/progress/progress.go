// Package progress renders apply progress on a terminal.
package progress

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"dirsync/internal/ui"
)

// Bar shows the fraction of a plan applied so far. When the output is not a
// terminal it renders nothing.
type Bar struct {
	bar   *progressbar.ProgressBar
	total int
}

// Options configures a Bar.
type Options struct {
	Total       int // number of actions in the plan
	Description string
	Writer      io.Writer // defaults to os.Stderr
	Force       bool      // render even when Writer is not a terminal
}

// New creates a Bar for opts.Total actions.
func New(opts Options) *Bar {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}
	b := &Bar{total: opts.Total}
	if opts.Total <= 0 || !(opts.Force || isTerminal(opts.Writer)) {
		return b
	}

	b.bar = progressbar.NewOptions(
		opts.Total,
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionSetWriter(opts.Writer),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(opts.Writer, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(ui.IsColorEnabled()),
	)
	return b
}

// Enabled reports whether the bar renders anything.
func (b *Bar) Enabled() bool {
	return b.bar != nil
}

// Update moves the bar to fraction of the total. It matches dirsync.ProgressFunc.
func (b *Bar) Update(fraction float64) {
	if b.bar == nil {
		return
	}
	_ = b.bar.Set(int(math.Round(fraction * float64(b.total))))
}

// Finish completes the bar.
func (b *Bar) Finish() {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
