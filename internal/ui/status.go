package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// StatusLine prints one-line status messages with a colored marker.
type StatusLine struct {
	writer io.Writer
}

// NewStatusLine creates a status line writing to w, or stdout when w is nil.
func NewStatusLine(w io.Writer) *StatusLine {
	if w == nil {
		w = os.Stdout
	}
	return &StatusLine{writer: w}
}

// Working prints a working status
func (sl *StatusLine) Working(message string) {
	fmt.Fprintf(sl.writer, "%s %s\n", color.YellowString("◆"), message)
}

// Success prints a success status
func (sl *StatusLine) Success(message string) {
	fmt.Fprintf(sl.writer, "%s %s\n", color.GreenString("✓"), message)
}

// Warning prints a warning status
func (sl *StatusLine) Warning(message string) {
	fmt.Fprintf(sl.writer, "%s %s\n", color.YellowString("⚠"), message)
}

// Info prints an info status
func (sl *StatusLine) Info(message string) {
	fmt.Fprintf(sl.writer, "%s %s\n", color.BlueString("ℹ"), message)
}

// Step prints a step in a process (e.g., "[1/4] Querying sacct")
func (sl *StatusLine) Step(current, total int, message string) {
	progress := color.HiBlackString("[%d/%d]", current, total)
	fmt.Fprintf(sl.writer, "%s %s %s\n", color.CyanString("▸"), progress, message)
}

// Command echoes an external command line before it runs.
func (sl *StatusLine) Command(cmdline string) {
	fmt.Fprintf(sl.writer, "%s %s\n", color.CyanString("$"), cmdline)
}

// Diagnostics relays the stderr of an external command, one prefixed line
// per input line. Blank input prints nothing.
func (sl *StatusLine) Diagnostics(source, text string) {
	text = strings.TrimRight(text, "\n")
	if strings.TrimSpace(text) == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(sl.writer, "%s %s\n", color.HiBlackString("%s:", source), line)
	}
}
