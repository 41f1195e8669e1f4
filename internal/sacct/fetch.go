package sacct

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultProgram is the accounting command looked up on PATH.
const DefaultProgram = "sacct"

// ErrEmptyOutput is returned when sacct exits cleanly but prints nothing,
// not even a header.
var ErrEmptyOutput = errors.New("sacct returned no output")

// Output is the raw result of one query.
type Output struct {
	Command string
	Stdout  []byte
	Stderr  []byte
}

// Diagnostics returns stderr as trimmed text.
func (o *Output) Diagnostics() string {
	return strings.TrimSpace(string(o.Stderr))
}

// Fetch runs the query once. On failure the returned Output still carries the
// command and whatever was captured, so callers can show the diagnostics.
func Fetch(ctx context.Context, r Runner, q Query) (*Output, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	program := q.Program
	if program == "" {
		program = DefaultProgram
	}

	out := &Output{Command: q.Command()}
	stdout, stderr, err := r.Run(ctx, program, q.Args()...)
	out.Stdout = stdout
	out.Stderr = stderr
	if err != nil {
		if diag := out.Diagnostics(); diag != "" {
			return out, fmt.Errorf("sacct failed: %w: %s", err, diag)
		}
		return out, fmt.Errorf("sacct failed: %w", err)
	}
	if len(strings.TrimSpace(string(stdout))) == 0 {
		return out, ErrEmptyOutput
	}
	return out, nil
}
