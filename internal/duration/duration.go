// Package duration converts the two duration encodings emitted by sacct into
// time.Duration.
//
// Allocated CPU time (CPUTimeRAW) is a plain count of seconds. Consumed CPU
// time (TotalCPU, UserCPU, SystemCPU, ...) uses the Slurm elapsed format
// [[D-]H:]M:S[.fraction], which time.ParseDuration does not understand.
package duration

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrBadDuration is returned for strings matching neither encoding.
var ErrBadDuration = errors.New("bad duration")

// compositePattern captures the four components by name. Days and hours are
// only present together with the trailing colon of the hour field.
var compositePattern = regexp.MustCompile(
	`^(?:(?:(?P<days>\d+)-)?(?P<hours>\d+):)?(?P<minutes>\d+):(?P<seconds>\d+(?:\.\d+)?)$`)

var (
	daysGroup    = compositePattern.SubexpIndex("days")
	hoursGroup   = compositePattern.SubexpIndex("hours")
	minutesGroup = compositePattern.SubexpIndex("minutes")
	secondsGroup = compositePattern.SubexpIndex("seconds")
)

// FromSeconds parses the raw-seconds encoding, an integer or decimal count.
func FromSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("%w: %q is not a number of seconds", ErrBadDuration, s)
	}
	return Seconds(secs)
}

// Seconds converts an already numeric second count.
func Seconds(secs float64) (time.Duration, error) {
	if secs < 0 {
		return 0, fmt.Errorf("%w: negative duration %v", ErrBadDuration, secs)
	}
	if secs > math.MaxInt64/float64(time.Second) {
		return 0, fmt.Errorf("%w: %v seconds out of range", ErrBadDuration, secs)
	}
	return time.Duration(math.Round(secs * float64(time.Second))), nil
}

// ParseComposite parses [[D-]H:]M:S[.fraction].
func ParseComposite(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	m := compositePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q does not match [[D-]H:]M:S[.f]", ErrBadDuration, s)
	}

	// Absent optional groups come back as "" and count as zero.
	days, err := component(m[daysGroup])
	if err != nil {
		return 0, err
	}
	hours, err := component(m[hoursGroup])
	if err != nil {
		return 0, err
	}
	minutes, err := component(m[minutesGroup])
	if err != nil {
		return 0, err
	}
	seconds, err := Seconds(mustFloat(m[secondsGroup]))
	if err != nil {
		return 0, err
	}

	whole, err := wholeSeconds(days, hours, minutes)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", err, s)
	}
	d := time.Duration(whole) * time.Second
	if seconds > math.MaxInt64-d {
		return 0, fmt.Errorf("%w: %q out of range", ErrBadDuration, s)
	}
	return d + seconds, nil
}

// maxWholeSeconds is the largest second count a time.Duration holds.
const maxWholeSeconds = math.MaxInt64 / int64(time.Second)

// wholeSeconds combines non-negative day, hour and minute counts, failing
// instead of wrapping when the total exceeds a time.Duration.
func wholeSeconds(days, hours, minutes int64) (int64, error) {
	var total int64
	for _, c := range [...]struct{ n, unit int64 }{{days, 86400}, {hours, 3600}, {minutes, 60}} {
		if c.n > (maxWholeSeconds-total)/c.unit {
			return 0, fmt.Errorf("%w: out of range", ErrBadDuration)
		}
		total += c.n * c.unit
	}
	return total, nil
}

func component(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: component %q: %v", ErrBadDuration, s, err)
	}
	return n, nil
}

// The pattern guarantees a well-formed decimal here.
func mustFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// Sum adds durations.
func Sum(ds ...time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total
}

// Ratio divides num by den. ok is false when den is zero, in which case the
// ratio is undefined and r is NaN.
func Ratio(num, den time.Duration) (r float64, ok bool) {
	if den == 0 {
		return math.NaN(), false
	}
	return float64(num) / float64(den), true
}

// Format renders d in the composite encoding, with a day prefix only when
// needed and whole seconds.
func Format(d time.Duration) string {
	total := int64(d.Round(time.Second) / time.Second)
	days := total / 86400
	total %= 86400
	h, m, s := total/3600, (total%3600)/60, total%60
	if days > 0 {
		return fmt.Sprintf("%d-%02d:%02d:%02d", days, h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
