// Package jobkey splits sacct's compound job identifiers into a two-level
// (job id, substep) key and orders records by it.
package jobkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrMalformedID is returned for identifiers without a leading job number.
	ErrMalformedID = errors.New("malformed job identifier")

	// ErrDuplicateKey is returned when two records derive the same key.
	ErrDuplicateKey = errors.New("duplicate job key")
)

// Key identifies one accounting record. An empty Substep is the primary job
// record; "batch", "extern", "0", ... are its steps.
type Key struct {
	JobID   string
	Substep string
}

// Primary reports whether k is a job's own record rather than a step.
func (k Key) Primary() bool {
	return k.Substep == ""
}

func (k Key) String() string {
	if k.Substep == "" {
		return k.JobID
	}
	return k.JobID + "." + k.Substep
}

// Parse splits raw at the first '.'. The part before it must be a non-empty
// run of digits.
func Parse(raw string) (Key, error) {
	id, substep, _ := strings.Cut(raw, ".")
	if !isDigits(id) {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedID, raw)
	}
	return Key{JobID: id, Substep: substep}, nil
}

// HasSeparator reports whether raw contains anything but digits, i.e. whether
// it names a step, an array element or a het component rather than a plain job.
func HasSeparator(raw string) bool {
	return !isDigits(raw)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Less orders keys by numeric job id, then by substep. The empty substep
// sorts first so a job's own record precedes its steps.
func Less(a, b Key) bool {
	if c := compareNumeric(a.JobID, b.JobID); c != 0 {
		return c < 0
	}
	return a.Substep < b.Substep
}

// compareNumeric compares digit strings of any length without overflow.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// Sort orders items in place by their keys. Items with equal keys keep
// their relative order.
func Sort[T any](items []T, key func(T) Key) {
	sort.SliceStable(items, func(i, j int) bool { return Less(key(items[i]), key(items[j])) })
}

// Index maps every raw identifier to its key, preserving input order. Each
// input yields exactly one key; a malformed identifier or a repeated key
// fails the whole index.
func Index(raws []string) ([]Key, error) {
	keys := make([]Key, 0, len(raws))
	seen := make(map[Key]int, len(raws))
	for i, raw := range raws {
		k, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		if prev, ok := seen[k]; ok {
			return nil, fmt.Errorf("%w: %s at records %d and %d", ErrDuplicateKey, k, prev+1, i+1)
		}
		seen[k] = i
		keys = append(keys, k)
	}
	return keys, nil
}
