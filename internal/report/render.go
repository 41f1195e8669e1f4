package report

import (
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"

	"github.com/aceteam-ai/cpueff/internal/efficiency"
)

// MaxJobNameWidth bounds the JobName column; longer names are truncated.
const MaxJobNameWidth = 40

// Columns is the fixed projection of every view.
var Columns = []string{
	"JobID",
	"Substep",
	"Efficiency",
	"NCPUS",
	"Effective CPUS",
	"ReqMem",
	"ExitCode",
	"JobName",
	"Submit",
	"Start",
	"Elapsed",
}

var rightAligned = map[int]bool{
	0: true, // JobID
	2: true, // Efficiency
	3: true, // NCPUS
	4: true, // Effective CPUS
}

// gridBorder draws psql-style +---+ boxes that survive any terminal or pager.
var gridBorder = lipgloss.Border{
	Top:          "-",
	Bottom:       "-",
	Left:         "|",
	Right:        "|",
	TopLeft:      "+",
	TopRight:     "+",
	BottomLeft:   "+",
	BottomRight:  "+",
	MiddleLeft:   "+",
	MiddleRight:  "+",
	Middle:       "+",
	MiddleTop:    "+",
	MiddleBottom: "+",
}

var (
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	rightStyle = cellStyle.Align(lipgloss.Right)
)

// Row projects a record onto Columns.
func Row(r efficiency.Record) []string {
	effective := "n/a"
	if r.Valid {
		effective = strconv.FormatFloat(r.EffectiveCPUs, 'f', 2, 64)
	}
	return []string{
		r.Key.JobID,
		r.Key.Substep,
		efficiency.FormatEfficiency(r.Efficiency, r.Valid),
		strconv.FormatFloat(r.NCPUS, 'f', -1, 64),
		effective,
		r.ReqMem,
		r.ExitCode,
		runewidth.Truncate(r.JobName, MaxJobNameWidth, "..."),
		r.Submit,
		r.Start,
		r.Elapsed,
	}
}

// Render draws records as a boxed table with a header row.
func Render(records []efficiency.Record) string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = Row(r)
	}

	t := table.New().
		Border(gridBorder).
		BorderRow(false).
		Headers(Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row != table.HeaderRow && rightAligned[col] {
				return rightStyle
			}
			return cellStyle
		})

	return t.Render() + "\n"
}

// WriteTable renders records to w.
func WriteTable(w io.Writer, records []efficiency.Record) error {
	_, err := io.WriteString(w, Render(records))
	return err
}
