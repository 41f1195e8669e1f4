package report

import (
	"fmt"
	"io"

	"github.com/guptarohit/asciigraph"

	"github.com/aceteam-ai/cpueff/internal/efficiency"
)

// PlotHeight is the number of rows of the efficiency chart.
const PlotHeight = 10

// Plot draws per-job efficiency as a line chart, one point per record with a
// defined efficiency, in key order. Nothing is written when no record has one.
func Plot(w io.Writer, records []efficiency.Record, threshold float64) error {
	values := make([]float64, 0, len(records))
	for _, r := range records {
		if r.Valid {
			values = append(values, r.Efficiency)
		}
	}
	if len(values) == 0 {
		return nil
	}

	// A single point draws nothing useful; repeat it so the line is visible.
	if len(values) == 1 {
		values = append(values, values[0])
	}

	graph := asciigraph.Plot(values,
		asciigraph.Height(PlotHeight),
		asciigraph.LowerBound(0),
		asciigraph.UpperBound(1),
		asciigraph.Precision(2),
		asciigraph.Caption(fmt.Sprintf("CPU efficiency per job (threshold %.2f)", threshold)),
	)
	_, err := fmt.Fprintln(w, graph)
	return err
}
