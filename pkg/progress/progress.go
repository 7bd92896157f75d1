// Package progress shows a start/finish line around long-running work when
// the output is an interactive terminal.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

// Terminal writes progress lines to Out. Lines are only written when
// Interactive is true.
type Terminal struct {
	Out         io.Writer
	Interactive bool
	now         func() time.Time
}

// NewTerminal reports on stderr when stderr is a terminal.
func NewTerminal() *Terminal {
	return &Terminal{
		Out:         os.Stderr,
		Interactive: term.IsTerminal(int(os.Stderr.Fd())),
	}
}

// Run calls fn inside a progress scope titled title.
func (t *Terminal) Run(ctx context.Context, title string, fn func(ctx context.Context) error) error {
	now := t.now
	if now == nil {
		now = time.Now
	}
	start := now()
	if t.Interactive {
		fmt.Fprintf(t.Out, "%s ...\n", title)
	}

	err := fn(ctx)

	if t.Interactive {
		elapsed := now().Sub(start).Round(time.Millisecond)
		if err != nil {
			fmt.Fprintf(t.Out, "%s failed after %s\n", title, elapsed)
		} else {
			fmt.Fprintf(t.Out, "%s done in %s\n", title, elapsed)
		}
	}
	return err
}
