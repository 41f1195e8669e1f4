// Package efficiency derives per-job CPU efficiency from parsed sacct output
// and aggregates it over a set of records.
//
// Efficiency is consumed CPU time (TotalCPU) over allocated CPU time
// (CPUTimeRAW). A record with zero allocated time has no defined efficiency:
// it is marked invalid, never counted as inefficient, and left out of
// aggregates.
package efficiency

import (
	"fmt"
	"time"

	"github.com/aceteam-ai/cpueff/internal/duration"
	"github.com/aceteam-ai/cpueff/internal/jobkey"
	"github.com/aceteam-ai/cpueff/internal/table"
)

// Column names read from the accounting output.
const (
	ColJobID     = "JobID"
	ColJobIDRaw  = "JobIDRaw"
	ColConsumed  = "TotalCPU"
	ColAllocated = "CPUTimeRAW"
	ColNCPUS     = "NCPUS"
	ColReqMem    = "ReqMem"
	ColExitCode  = "ExitCode"
	ColJobName   = "JobName"
	ColSubmit    = "Submit"
	ColStart     = "Start"
	ColElapsed   = "Elapsed"
	ColState     = "State"
)

// Record is the efficiency view of one accounting row.
type Record struct {
	Key jobkey.Key

	// RawID is the user-facing compound identifier (JobID), which differs
	// from the key source for array elements.
	RawID string

	Consumed  time.Duration
	Allocated time.Duration

	// Efficiency is meaningful only when Valid.
	Efficiency    float64
	Valid         bool
	NCPUS         float64
	EffectiveCPUs float64

	ReqMem   string
	ExitCode string
	JobName  string
	State    string
	Submit   string
	Start    string
	Elapsed  string

	// Started is zero when sacct reported no start ("Unknown", "None").
	Started time.Time
}

// Derive builds one Record per row. Keys come from JobIDRaw when the output
// has it, since JobID repeats the array job id for every array element.
func Derive(t *table.Table) ([]Record, error) {
	keyCol := ColJobIDRaw
	if _, ok := t.Col(keyCol); !ok {
		keyCol = ColJobID
	}
	cols, err := t.MustCols(keyCol, ColConsumed, ColAllocated, ColNCPUS)
	if err != nil {
		return nil, err
	}
	keyIdx, consumedIdx, allocIdx, ncpusIdx := cols[0], cols[1], cols[2], cols[3]
	rawIdx, ok := t.Col(ColJobID)
	if !ok {
		rawIdx = keyIdx
	}

	raws := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		raws[i] = row[keyIdx].Text
	}
	keys, err := jobkey.Index(raws)
	if err != nil {
		return nil, fmt.Errorf("failed to index %s: %w", keyCol, err)
	}

	records := make([]Record, len(t.Rows))
	for i, row := range t.Rows {
		r := Record{
			Key:       keys[i],
			RawID:     row[rawIdx].Text,
			Consumed:  row[consumedIdx].Dur,
			Allocated: row[allocIdx].Dur,
			NCPUS:     row[ncpusIdx].Num,
			ReqMem:    text(t, i, ColReqMem),
			ExitCode:  text(t, i, ColExitCode),
			JobName:   text(t, i, ColJobName),
			State:     text(t, i, ColState),
			Submit:    text(t, i, ColSubmit),
			Start:     text(t, i, ColStart),
			Elapsed:   text(t, i, ColElapsed),
		}
		if v, ok := t.Get(i, ColStart); ok && v.HasTime() {
			r.Started = v.Time
		}
		r.Efficiency, r.Valid = duration.Ratio(r.Consumed, r.Allocated)
		if r.Valid {
			r.EffectiveCPUs = r.Efficiency * r.NCPUS
		}
		records[i] = r
	}
	return records, nil
}

func text(t *table.Table, row int, col string) string {
	v, ok := t.Get(row, col)
	if !ok {
		return ""
	}
	return v.Text
}
