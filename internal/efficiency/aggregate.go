package efficiency

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aceteam-ai/cpueff/internal/duration"
	"github.com/aceteam-ai/cpueff/internal/jobkey"
)

// Policy decides which records count as a job's primary record.
type Policy int

const (
	// PrimaryStep selects records whose derived substep is empty.
	PrimaryStep Policy = iota
	// Unsuffixed selects records whose raw identifier is all digits. It
	// also drops array elements ("123_4") and het components ("123+0").
	Unsuffixed
)

func (p Policy) String() string {
	switch p {
	case Unsuffixed:
		return "unsuffixed"
	default:
		return "primary-step"
	}
}

// ParsePolicy accepts the names printed by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "primary-step", "primary":
		return PrimaryStep, nil
	case "unsuffixed":
		return Unsuffixed, nil
	default:
		return PrimaryStep, fmt.Errorf("unknown policy %q (want primary-step or unsuffixed)", s)
	}
}

// Includes reports whether r is a primary record under p.
func (p Policy) Includes(r Record) bool {
	switch p {
	case Unsuffixed:
		return !jobkey.HasSeparator(r.RawID)
	default:
		return r.Key.Primary()
	}
}

// Select returns the records p includes, in input order.
func Select(records []Record, p Policy) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if p.Includes(r) {
			out = append(out, r)
		}
	}
	return out
}

// Summary is the fleet-level efficiency of a record set.
type Summary struct {
	Policy    Policy
	Consumed  time.Duration
	Allocated time.Duration

	// Efficiency is Consumed/Allocated, meaningful only when Valid.
	Efficiency float64
	Valid      bool

	// Included counts records in the sums; Undefined counts records the
	// policy selected but that had no allocated time.
	Included  int
	Undefined int
}

// Aggregate sums consumed and allocated time over the records p includes and
// divides the sums, so each job weighs in by its allocation rather than
// counting once.
func Aggregate(records []Record, p Policy) Summary {
	s := Summary{Policy: p}
	var consumed, allocated []time.Duration
	for _, r := range records {
		if !p.Includes(r) {
			continue
		}
		if !r.Valid {
			s.Undefined++
			continue
		}
		consumed = append(consumed, r.Consumed)
		allocated = append(allocated, r.Allocated)
		s.Included++
	}
	s.Consumed = duration.Sum(consumed...)
	s.Allocated = duration.Sum(allocated...)
	s.Efficiency, s.Valid = duration.Ratio(s.Consumed, s.Allocated)
	return s
}

// FormatEfficiency renders a ratio with two decimals, or "n/a".
func FormatEfficiency(e float64, valid bool) string {
	if !valid || math.IsNaN(e) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", e)
}

func (s Summary) String() string {
	return fmt.Sprintf("%s over %d jobs (%s consumed / %s allocated, policy %s)",
		FormatEfficiency(s.Efficiency, s.Valid), s.Included,
		duration.Format(s.Consumed), duration.Format(s.Allocated), s.Policy)
}
