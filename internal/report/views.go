// Package report selects, sorts and renders efficiency records into the three
// per-user report files.
package report

import (
	"github.com/aceteam-ai/cpueff/internal/efficiency"
	"github.com/aceteam-ai/cpueff/internal/jobkey"
)

// DefaultThreshold is the efficiency below which a job is reported as low.
const DefaultThreshold = 0.6

// Kind names one of the report views.
type Kind string

const (
	KindJobs  Kind = "jobs"
	KindLow   Kind = "low"
	KindSteps Kind = "steps"
)

// Kinds lists the views in the order they are written.
var Kinds = []Kind{KindJobs, KindLow, KindSteps}

// Views holds the three sorted record sets.
type Views struct {
	// Jobs has the primary records under the chosen policy.
	Jobs []efficiency.Record
	// Low has the Jobs records with a defined efficiency strictly below the threshold.
	Low []efficiency.Record
	// Steps has every record, substeps included.
	Steps []efficiency.Record
}

// Get returns the records of one view.
func (v Views) Get(k Kind) []efficiency.Record {
	switch k {
	case KindLow:
		return v.Low
	case KindSteps:
		return v.Steps
	default:
		return v.Jobs
	}
}

// BuildViews partitions records. The input is not modified.
func BuildViews(records []efficiency.Record, p efficiency.Policy, threshold float64) Views {
	jobs := efficiency.Select(records, p)
	sortRecords(jobs)

	low := make([]efficiency.Record, 0)
	for _, r := range jobs {
		if r.Valid && r.Efficiency < threshold {
			low = append(low, r)
		}
	}

	steps := make([]efficiency.Record, len(records))
	copy(steps, records)
	sortRecords(steps)

	return Views{Jobs: jobs, Low: low, Steps: steps}
}

func sortRecords(rs []efficiency.Record) {
	jobkey.Sort(rs, func(r efficiency.Record) jobkey.Key { return r.Key })
}
