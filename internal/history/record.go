// Package history keeps a local SQLite log of report runs and their
// per-job efficiency rows, and syncs run summaries to an external system.
package history

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/aceteam-ai/cpueff/internal/efficiency"
)

// Run is one report invocation and its aggregate result.
type Run struct {
	ID        string
	User      string
	Start     string // query window, YYYY-MM-DD
	End       string
	Policy    string
	Threshold float64
	Host      string
	CreatedAt time.Time

	Consumed  time.Duration
	Allocated time.Duration
	// Efficiency is meaningful only when Valid.
	Efficiency float64
	Valid      bool

	Jobs      int
	Low       int
	Steps     int
	Undefined int

	Synced bool
}

// Job is one stored efficiency row of a run.
type Job struct {
	RunID     string
	JobID     string
	Substep   string
	RawID     string
	JobName   string
	State     string
	NCPUS     float64
	Consumed  time.Duration
	Allocated time.Duration
	// Efficiency is meaningful only when Valid.
	Efficiency float64
	Valid      bool
	// Started is zero for jobs that never started.
	Started time.Time
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Hostname names the machine a run was recorded on.
func Hostname(ctx context.Context) string {
	if info, err := host.InfoWithContext(ctx); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	name, _ := os.Hostname()
	return name
}

// JobsFrom converts efficiency records into rows for runID.
func JobsFrom(runID string, records []efficiency.Record) []Job {
	jobs := make([]Job, len(records))
	for i, r := range records {
		jobs[i] = Job{
			RunID:      runID,
			JobID:      r.Key.JobID,
			Substep:    r.Key.Substep,
			RawID:      r.RawID,
			JobName:    r.JobName,
			State:      r.State,
			NCPUS:      r.NCPUS,
			Consumed:   r.Consumed,
			Allocated:  r.Allocated,
			Efficiency: r.Efficiency,
			Valid:      r.Valid,
			Started:    r.Started,
		}
	}
	return jobs
}
