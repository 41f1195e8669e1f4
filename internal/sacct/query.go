// Package sacct builds and runs the Slurm accounting query.
package sacct

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date format sacct accepts for --start and --end.
const DateLayout = "2006-01-02"

var (
	// ErrNoUser is returned for a query without a user.
	ErrNoUser = errors.New("user is required")

	// ErrNoFields is returned for a query without fields.
	ErrNoFields = errors.New("at least one field is required")

	// ErrInvertedWindow is returned when the end date precedes the start.
	ErrInvertedWindow = errors.New("end date is before start date")
)

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns [today-startDaysAgo, today-endDaysAgo]. A nil
// endDaysAgo leaves the end at today.
func NewWindow(now time.Time, startDaysAgo uint, endDaysAgo *uint) (Window, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	w := Window{
		Start: today.AddDate(0, 0, -int(startDaysAgo)),
		End:   today,
	}
	if endDaysAgo != nil {
		w.End = today.AddDate(0, 0, -int(*endDaysAgo))
	}
	if w.End.Before(w.Start) {
		return Window{}, fmt.Errorf("%w: %s < %s", ErrInvertedWindow,
			w.End.Format(DateLayout), w.Start.Format(DateLayout))
	}
	return w, nil
}

// StartDate returns the start as YYYY-MM-DD.
func (w Window) StartDate() string {
	return w.Start.Format(DateLayout)
}

// EndDate returns the end as YYYY-MM-DD.
func (w Window) EndDate() string {
	return w.End.Format(DateLayout)
}

func (w Window) String() string {
	return w.StartDate() + ".." + w.EndDate()
}

// Query is one accounting request for a user over a window.
type Query struct {
	Program string
	User    string
	Window  Window
	Fields  []string
}

// Validate checks the query can be run.
func (q Query) Validate() error {
	if strings.TrimSpace(q.User) == "" {
		return ErrNoUser
	}
	if len(q.Fields) == 0 {
		return ErrNoFields
	}
	return nil
}

// Args returns the sacct arguments. --parsable2 makes sacct emit '|'
// delimited rows without padding.
func (q Query) Args() []string {
	return []string{
		"-u", q.User,
		"--start", q.Window.StartDate(),
		"--end", q.Window.EndDate(),
		"--parsable2",
		"--format", strings.Join(q.Fields, ","),
	}
}

// Command returns the full command line, for diagnostics.
func (q Query) Command() string {
	program := q.Program
	if program == "" {
		program = DefaultProgram
	}
	return program + " " + strings.Join(q.Args(), " ")
}
