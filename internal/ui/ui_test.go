package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func TestStatusLine(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStatusLine(&buf)

	sl.Command("sacct -u alice")
	sl.Step(1, 4, "Querying sacct")
	sl.Warning("end date ignored")

	out := buf.String()
	for _, want := range []string{"$ sacct -u alice\n", "[1/4] Querying sacct", "⚠ end date ignored"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStatusLine(&buf)

	sl.Diagnostics("sacct", "  \n")
	if buf.Len() != 0 {
		t.Errorf("blank stderr printed %q", buf.String())
	}

	sl.Diagnostics("sacct", "warning one\nwarning two\n")
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 || lines[0] != "sacct: warning one" || lines[1] != "sacct: warning two" {
		t.Errorf("diagnostics = %q", lines)
	}
}

func TestRunWithSpinnerNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if err := RunWithSpinner(&buf, "Querying sacct", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "\r") {
		t.Errorf("non-terminal output contains carriage returns: %q", buf.String())
	}
	if !strings.HasPrefix(buf.String(), "✓ Querying sacct") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	boom := errors.New("boom")
	if err := RunWithSpinner(&buf, "Querying sacct", func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
	if !strings.Contains(buf.String(), "✗ Querying sacct - failed") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFileLinkNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if got := FileLink(&buf, "eff_alice.txt"); got != "eff_alice.txt" {
		t.Errorf("FileLink = %q, want plain path", got)
	}
	if got := Hyperlink("file:///x", "x"); !strings.Contains(got, "\x1b]8;;file:///x\x07x") {
		t.Errorf("Hyperlink = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{59 * time.Second, "59.0s"},
		{65 * time.Second, "1m05s"},
		{12*time.Minute + 30*time.Second, "12m30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf)
	s.Stop("never started")
	s.Start("working")
	s.Stop("done")
	s.Stop("again")
	if buf.String() != "done\n" {
		t.Errorf("output = %q, want only the first final line", buf.String())
	}
}
