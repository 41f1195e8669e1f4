// Package catalog discovers the full set of fields sacct can report, by
// reading its own documentation, and assigns each field an ingestion type.
package catalog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// StartMarker precedes the field list in the sacct man page.
	StartMarker = "Fields available:"
	// EndMarker follows it.
	EndMarker = "NOTE: "
)

var (
	// ErrMarkerNotFound is returned when the documentation lacks a marker.
	ErrMarkerNotFound = errors.New("field list marker not found")

	// ErrNoFields is returned when the documented field list is empty.
	ErrNoFields = errors.New("no fields found")
)

// Runner runs an external program and returns its stdout and stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// Source selects where the field list is read from.
type Source string

const (
	SourceMan        Source = "man"
	SourceHelpFormat Source = "helpformat"
)

// Catalog is the ordered list of reportable sacct fields.
type Catalog struct {
	fields []string
}

// New builds a catalog from an explicit list, dropping duplicates.
func New(fields []string) *Catalog {
	seen := make(map[string]bool, len(fields))
	c := &Catalog{fields: make([]string, 0, len(fields))}
	for _, f := range fields {
		key := strings.ToLower(f)
		if f == "" || seen[key] {
			continue
		}
		seen[key] = true
		c.fields = append(c.fields, f)
	}
	return c
}

// Fields returns the field names in documentation order.
func (c *Catalog) Fields() []string {
	out := make([]string, len(c.fields))
	copy(out, c.fields)
	return out
}

// Len returns the number of fields.
func (c *Catalog) Len() int {
	return len(c.fields)
}

// Types returns the ingestion type of every field, in order.
func (c *Catalog) Types() []FieldType {
	out := make([]FieldType, len(c.fields))
	for i, f := range c.fields {
		out[i] = TypeOf(f)
	}
	return out
}

// Load reads the field catalog from the given source. sacct and man are the
// program names or paths to run.
func Load(ctx context.Context, r Runner, src Source, sacct, man string) (*Catalog, error) {
	switch src {
	case SourceHelpFormat:
		return LoadHelpFormat(ctx, r, sacct)
	case SourceMan, "":
		return LoadManPage(ctx, r, man)
	default:
		return nil, fmt.Errorf("unknown catalog source %q", src)
	}
}

// LoadManPage runs `man -P cat sacct` and extracts the field list.
func LoadManPage(ctx context.Context, r Runner, man string) (*Catalog, error) {
	stdout, stderr, err := r.Run(ctx, man, "-P", "cat", "sacct")
	if err != nil {
		return nil, fmt.Errorf("failed to read sacct manual: %w: %s", err, strings.TrimSpace(string(stderr)))
	}
	return ParseManPage(stdout)
}

// LoadHelpFormat runs `sacct --helpformat`, which prints only the field names.
func LoadHelpFormat(ctx context.Context, r Runner, sacct string) (*Catalog, error) {
	stdout, stderr, err := r.Run(ctx, sacct, "--helpformat")
	if err != nil {
		return nil, fmt.Errorf("failed to run %s --helpformat: %w: %s", sacct, err, strings.TrimSpace(string(stderr)))
	}
	c := New(strings.Fields(string(stdout)))
	if c.Len() == 0 {
		return nil, fmt.Errorf("%s --helpformat: %w", sacct, ErrNoFields)
	}
	return c, nil
}

// ParseManPage extracts the whitespace-separated names between the line
// containing StartMarker and the next line containing EndMarker.
func ParseManPage(page []byte) (*Catalog, error) {
	lines := manLines(page)

	start := -1
	for i, line := range lines {
		if strings.Contains(line, StartMarker) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMarkerNotFound, StartMarker)
	}

	end := -1
	for i := start; i < len(lines); i++ {
		if strings.Contains(lines[i], EndMarker) {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMarkerNotFound, EndMarker)
	}

	var fields []string
	for _, line := range lines[start:end] {
		fields = append(fields, strings.Fields(line)...)
	}
	c := New(fields)
	if c.Len() == 0 {
		return nil, ErrNoFields
	}
	return c, nil
}

// manLines splits a rendered man page into lines with troff overstrike
// sequences (x\bx for bold, _\bx for underline) removed.
func manLines(page []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(page))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, stripOverstrike(sc.Text()))
	}
	return lines
}

func stripOverstrike(s string) string {
	if !strings.Contains(s, "\b") {
		return s
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\b' {
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
