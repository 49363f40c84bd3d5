package buildui

import (
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// Renderer drives the build progress display, either as a rich
// bubbletea program on a TTY or as a plain periodic line written to the
// same output (stderr when no output file is given) otherwise. Grounded on the teacher's TUIRenderer/IsTTY split
// (internal/ui/tui.go, internal/ui/plain.go), narrowed to this
// pipeline's single Tracker instead of a pluggable multi-format
// Renderer interface with error/warning panels.
type Renderer interface {
	Start()
	Finish()
}

// New picks a TUI renderer when out is a terminal, a plain fallback
// otherwise (piped output, CI logs, `--no-tui`).
func New(tracker *Tracker, out *os.File, forcePlain bool) Renderer {
	if !forcePlain && out != nil && isatty.IsTerminal(out.Fd()) {
		return newTUIRenderer(tracker, out)
	}
	return newPlainRenderer(tracker, out)
}

type tuiRenderer struct {
	program *tea.Program
	done    chan struct{}
}

func newTUIRenderer(tracker *Tracker, out *os.File) *tuiRenderer {
	m := newModel(tracker)
	program := tea.NewProgram(m, tea.WithOutput(out))
	return &tuiRenderer{program: program, done: make(chan struct{})}
}

func (r *tuiRenderer) Start() {
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
}

func (r *tuiRenderer) Finish() {
	r.program.Send(doneMsg{})
	<-r.done
}

// plainRenderer prints one progress line every 500ms, the fallback
// for non-TTY output where an alt-screen TUI would corrupt logs.
type plainRenderer struct {
	tracker *Tracker
	out     io.Writer
	stop    chan struct{}
	done    chan struct{}
}

func newPlainRenderer(tracker *Tracker, out *os.File) *plainRenderer {
	var w io.Writer = os.Stderr
	if out != nil {
		w = out
	}
	return &plainRenderer{tracker: tracker, out: w, stop: make(chan struct{}), done: make(chan struct{})}
}

func (r *plainRenderer) Start() {
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				r.printLine()
				return
			case <-ticker.C:
				r.printLine()
			}
		}
	}()
}

func (r *plainRenderer) printLine() {
	snap := r.tracker.Snapshot()
	fmt.Fprintf(r.out, "%s: %d/%d (%.0f%%)\n", snap.Stage, snap.Current, snap.Total, snap.Progress*100)
}

func (r *plainRenderer) Finish() {
	close(r.stop)
	<-r.done
}
