package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const frameInterval = 100 * time.Millisecond

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows that a slow external command is still running. It animates
// only on terminals; elsewhere it stays silent until the final line.
type Spinner struct {
	w        io.Writer
	animated bool

	mu      sync.Mutex
	message string
	began   time.Time
	quit    chan struct{}
	wg      sync.WaitGroup
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{w: w, animated: IsTerminal(w)}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start shows message. Calling Start on a running spinner only replaces the
// message.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.message = message
	if s.quit != nil {
		return
	}
	s.began = time.Now()
	s.quit = make(chan struct{})
	if !s.animated {
		return
	}
	s.wg.Add(1)
	go s.spin(s.quit)
}

func (s *Spinner) spin(quit <-chan struct{}) {
	defer s.wg.Done()
	tick := time.NewTicker(frameInterval)
	defer tick.Stop()

	for frame := 0; ; frame = (frame + 1) % len(frames) {
		select {
		case <-quit:
			return
		case <-tick.C:
		}
		s.mu.Lock()
		line := fmt.Sprintf("%s %s%s", color.CyanString(frames[frame]), s.message, s.elapsed())
		s.mu.Unlock()
		fmt.Fprintf(s.w, "\r\033[K%s", line)
	}
}

// Stop ends the animation and prints final, if any, on its own line.
func (s *Spinner) Stop(final string) {
	s.mu.Lock()
	quit := s.quit
	s.quit = nil
	s.mu.Unlock()
	if quit == nil {
		return
	}

	close(quit)
	s.wg.Wait()
	if s.animated {
		fmt.Fprint(s.w, "\r\033[K")
	}
	if final != "" {
		fmt.Fprintln(s.w, final)
	}
}

// Success stops with a green check mark.
func (s *Spinner) Success(message string) {
	s.Stop(color.GreenString("✓") + " " + message + s.elapsed())
}

// Fail stops with a red cross.
func (s *Spinner) Fail(message string) {
	s.Stop(color.RedString("✗") + " " + message + s.elapsed())
}

// elapsed is empty for the first second.
func (s *Spinner) elapsed() string {
	d := time.Since(s.began)
	if s.began.IsZero() || d < time.Second {
		return ""
	}
	return color.HiBlackString(" (%s)", formatDuration(d))
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

// RunWithSpinner runs fn with a spinner on w and reports how it ended.
func RunWithSpinner(w io.Writer, message string, fn func() error) error {
	s := NewSpinner(w)
	s.Start(message)
	err := fn()
	if err != nil {
		s.Fail(message + " - failed")
		return err
	}
	s.Success(message)
	return nil
}
