package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"attendance/internal/enrollment/machine"
)

// terminal renders coordinator views as lines of text and answers the
// coordinator's prompts from stdin. It implements service.Observer,
// service.Cues and service.Interlock.
type terminal struct {
	out       io.Writer
	in        io.Reader
	assumeYes bool
	// bell is only rung on an interactive terminal
	bell bool

	// changes wakes the driver after every new view
	changes chan struct{}

	mu   sync.Mutex
	last machine.View

	readOnce sync.Once
	lines    chan string
}

func newTerminal(out io.Writer, in io.Reader, assumeYes bool) *terminal {
	return &terminal{
		out:       out,
		in:        in,
		assumeYes: assumeYes,
		bell:      isTerminal(out),
		changes:   make(chan struct{}, 1),
		lines:     make(chan string),
	}
}

func (t *terminal) Update(v machine.View) {
	t.mu.Lock()
	prev := t.last
	t.last = v
	t.mu.Unlock()

	if line := describe(prev, v); line != "" {
		fmt.Fprintln(t.out, line)
	}
	select {
	case t.changes <- struct{}{}:
	default:
	}
}

// describe renders what changed between two views, or "" when nothing worth
// printing did.
func describe(prev, v machine.View) string {
	var parts []string
	if v.Phase != prev.Phase || v.Counter != prev.Counter {
		parts = append(parts, fmt.Sprintf("[%s] %s (%d%%)", v.Phase, v.Counter, v.Percent))
	}
	if v.Notice != "" && v.Notice != prev.Notice {
		parts = append(parts, fmt.Sprintf("%s: %s", v.NoticeLevel, v.Notice))
	}
	if v.Countdown > 0 && v.Countdown != prev.Countdown {
		parts = append(parts, fmt.Sprintf("next enrollment available in %ds", v.Countdown))
	}
	return strings.Join(parts, "  ")
}

// Play rings the terminal bell. It returns at once, so blocking cues resolve
// immediately.
func (t *terminal) Play(_ context.Context, cue machine.Cue) error {
	if !t.bell {
		return nil
	}
	switch cue {
	case machine.CueError:
		_, err := fmt.Fprint(t.out, "\a\a")
		return err
	default:
		_, err := fmt.Fprint(t.out, "\a")
		return err
	}
}

func (t *terminal) ConfirmReplacement(ctx context.Context, instructorName string) bool {
	who := instructorName
	if who == "" {
		who = "another instructor"
	}
	fmt.Fprintf(t.out, "This student already has a fingerprint registered by %s.\n", who)
	if t.assumeYes {
		fmt.Fprintln(t.out, "Replacing it (--yes).")
		return true
	}
	answer, err := t.ask(ctx, "Replace it? [y/N] ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// ask prints prompt and waits for one line of input.
func (t *terminal) ask(ctx context.Context, prompt string) (string, error) {
	t.readOnce.Do(func() {
		go func() {
			defer close(t.lines)
			sc := bufio.NewScanner(t.in)
			for sc.Scan() {
				t.lines <- sc.Text()
			}
		}()
	})
	fmt.Fprint(t.out, prompt)
	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
