package sacct

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

type fakeRunner struct {
	stdout string
	stderr string
	err    error
	calls  [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func uintPtr(n uint) *uint { return &n }

func TestNewWindow(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     uint
		end       *uint
		wantStart string
		wantEnd   string
	}{
		{"start only ends today", 7, nil, "2024-03-03", "2024-03-10"},
		{"start and end", 30, uintPtr(10), "2024-02-09", "2024-02-29"},
		{"same day", 0, nil, "2024-03-10", "2024-03-10"},
		{"end equals start", 5, uintPtr(5), "2024-03-05", "2024-03-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWindow(now, tt.start, tt.end)
			if err != nil {
				t.Fatalf("NewWindow: %v", err)
			}
			if w.StartDate() != tt.wantStart {
				t.Errorf("StartDate() = %s, want %s", w.StartDate(), tt.wantStart)
			}
			if w.EndDate() != tt.wantEnd {
				t.Errorf("EndDate() = %s, want %s", w.EndDate(), tt.wantEnd)
			}
		})
	}
}

func TestNewWindowInverted(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if _, err := NewWindow(now, 2, uintPtr(5)); !errors.Is(err, ErrInvertedWindow) {
		t.Errorf("error = %v, want ErrInvertedWindow", err)
	}
}

func testQuery(t *testing.T) Query {
	t.Helper()
	w, err := NewWindow(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 7, nil)
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	return Query{User: "alice", Window: w, Fields: []string{"JobID", "TotalCPU", "CPUTimeRAW"}}
}

func TestQueryArgs(t *testing.T) {
	q := testQuery(t)
	want := []string{
		"-u", "alice",
		"--start", "2024-03-03",
		"--end", "2024-03-10",
		"--parsable2",
		"--format", "JobID,TotalCPU,CPUTimeRAW",
	}
	if !reflect.DeepEqual(q.Args(), want) {
		t.Errorf("Args() = %v, want %v", q.Args(), want)
	}
	if got := q.Command(); !strings.HasPrefix(got, "sacct -u alice --start 2024-03-03") {
		t.Errorf("Command() = %q", got)
	}
}

func TestQueryValidate(t *testing.T) {
	q := testQuery(t)
	q.User = " "
	if err := q.Validate(); !errors.Is(err, ErrNoUser) {
		t.Errorf("Validate() = %v, want ErrNoUser", err)
	}
	q = testQuery(t)
	q.Fields = nil
	if err := q.Validate(); !errors.Is(err, ErrNoFields) {
		t.Errorf("Validate() = %v, want ErrNoFields", err)
	}
}

func TestFetch(t *testing.T) {
	r := &fakeRunner{
		stdout: "JobID|TotalCPU|CPUTimeRAW|\n100|00:50|100|\n",
		stderr: "sacct: warning: some nodes are down\n",
	}
	q := testQuery(t)
	q.Program = "/usr/bin/sacct"

	out, err := Fetch(context.Background(), r, q)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.HasPrefix(out.Command, "/usr/bin/sacct -u alice") {
		t.Errorf("Command = %q", out.Command)
	}
	if out.Diagnostics() != "sacct: warning: some nodes are down" {
		t.Errorf("Diagnostics() = %q", out.Diagnostics())
	}
	if len(r.calls) != 1 || r.calls[0][0] != "/usr/bin/sacct" {
		t.Errorf("calls = %v", r.calls)
	}
}

func TestFetchFailure(t *testing.T) {
	r := &fakeRunner{stderr: "sacct: error: Invalid user: bob", err: errors.New("exit status 1")}
	out, err := Fetch(context.Background(), r, testQuery(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Invalid user") {
		t.Errorf("error should carry stderr: %v", err)
	}
	if out == nil || out.Command == "" {
		t.Error("output with command should be returned on failure")
	}
}

func TestFetchEmptyOutput(t *testing.T) {
	_, err := Fetch(context.Background(), &fakeRunner{stdout: "\n"}, testQuery(t))
	if !errors.Is(err, ErrEmptyOutput) {
		t.Errorf("error = %v, want ErrEmptyOutput", err)
	}
}

func TestReplayRunner(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "sacct.txt")
	if err := os.WriteFile(dump, []byte("JobID|\n1|\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	next := &fakeRunner{stdout: "slurm 23.02.7\n"}
	r := ReplayRunner{Program: "sacct", File: dump, Next: next}

	stdout, _, err := r.Run(context.Background(), "sacct", "-u", "alice")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(stdout) != "JobID|\n1|\n" {
		t.Errorf("stdout = %q", stdout)
	}

	stdout, _, err = r.Run(context.Background(), "sacct", "--version")
	if err != nil {
		t.Fatalf("Run --version: %v", err)
	}
	if string(stdout) != "slurm 23.02.7\n" {
		t.Errorf("version call should pass through, got %q", stdout)
	}

	if _, _, err := (ReplayRunner{Program: "sacct", File: dump}).Run(context.Background(), "man", "sacct"); err == nil {
		t.Error("expected error without Next runner")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		banner string
		want   string
		ok     bool
	}{
		{"slurm 23.02.7\n", "23.2.7", true},
		{"slurm-wlm 21.08.5", "21.8.5", true},
		{"slurm 17.02.1", "17.2.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.banner, func(t *testing.T) {
			v, err := ParseVersion(tt.banner)
			if err != nil {
				t.Fatalf("ParseVersion: %v", err)
			}
			if v.String() != tt.want {
				t.Errorf("version = %s, want %s", v, tt.want)
			}
			if CheckVersion(v) != tt.ok {
				t.Errorf("CheckVersion(%s) = %v, want %v", v, !tt.ok, tt.ok)
			}
		})
	}

	for _, bad := range []string{"", "slurm unknown"} {
		if _, err := ParseVersion(bad); err == nil {
			t.Errorf("ParseVersion(%q) expected error", bad)
		}
	}
}

func TestVersion(t *testing.T) {
	r := &fakeRunner{stdout: "slurm 24.05.1\n"}
	v, err := Version(context.Background(), r, "")
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if !CheckVersion(v) {
		t.Errorf("24.05.1 should pass the minimum version check")
	}
	if r.calls[0][0] != DefaultProgram {
		t.Errorf("program = %s, want %s", r.calls[0][0], DefaultProgram)
	}
}
