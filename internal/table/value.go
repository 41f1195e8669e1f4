package table

import (
	"strconv"
	"time"

	"github.com/aceteam-ai/cpueff/internal/catalog"
	"github.com/aceteam-ai/cpueff/internal/duration"
)

// TimestampLayout is the format sacct uses for Submit, Start, End, Eligible.
const TimestampLayout = "2006-01-02T15:04:05"

// Value is one typed cell. Text always holds the raw cell. Null is set for
// empty cells, which sacct emits for fields that do not apply to a step.
type Value struct {
	Type catalog.FieldType
	Null bool
	Text string
	Num  float64
	Dur  time.Duration
	Time time.Time
}

// HasTime reports whether a Timestamp cell held an actual date rather than
// "Unknown" or "None".
func (v Value) HasTime() bool {
	return !v.Time.IsZero()
}

func (v Value) String() string {
	return v.Text
}

// typed converts a raw cell according to its declared type.
func typed(t catalog.FieldType, text string) (Value, error) {
	v := Value{Type: t, Text: text}
	if text == "" {
		v.Null = true
		return v, nil
	}

	switch t {
	case catalog.Numeric:
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return v, err
		}
		v.Num = n
	case catalog.RawSeconds:
		d, err := duration.FromSeconds(text)
		if err != nil {
			return v, err
		}
		v.Dur = d
		v.Num = d.Seconds()
	case catalog.Composite:
		d, err := duration.ParseComposite(text)
		if err != nil {
			return v, err
		}
		v.Dur = d
		v.Num = d.Seconds()
	case catalog.Timestamp:
		if ts, err := time.ParseInLocation(TimestampLayout, text, time.Local); err == nil {
			v.Time = ts
		}
	}
	return v, nil
}
