// Package table parses sacct's '|' delimited output into typed columns.
//
// Typing happens once, here: numeric and duration columns are converted as
// the rows are read, so nothing downstream coerces text. Any malformed row
// fails the whole batch.
package table

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aceteam-ai/cpueff/internal/catalog"
)

// Delimiter separates cells in --parsable2 output.
const Delimiter = "|"

// jobNameColumn may contain the delimiter; surplus cells are folded back into it.
const jobNameColumn = "JobName"

var (
	// ErrEmptyInput is returned when there is no header line.
	ErrEmptyInput = errors.New("no header in sacct output")

	// ErrColumnCount is returned for rows whose width does not match the header.
	ErrColumnCount = errors.New("wrong number of columns")

	// ErrBadValue is returned for cells that do not parse as their type.
	ErrBadValue = errors.New("bad value")

	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing column")
)

// TypeFunc maps a column name to its ingestion type.
type TypeFunc func(name string) catalog.FieldType

// Row is one record, one Value per column.
type Row []Value

// Table is the parsed output.
type Table struct {
	Columns []string
	Types   []catalog.FieldType
	Rows    []Row

	index map[string]int
}

// Col returns the position of the named column, ignoring case.
func (t *Table) Col(name string) (int, bool) {
	i, ok := t.index[strings.ToLower(name)]
	return i, ok
}

// MustCols resolves several columns at once, failing on the first missing one.
func (t *Table) MustCols(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		c, ok := t.Col(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		idx[i] = c
	}
	return idx, nil
}

// Get returns the named cell of row i, and false if the column is absent.
func (t *Table) Get(i int, name string) (Value, bool) {
	c, ok := t.Col(name)
	if !ok {
		return Value{}, false
	}
	return t.Rows[i][c], true
}

// Parse reads a header line and rows. When the header ends with the
// terminating delimiter, the resulting empty last column is dropped from the
// header and from every row.
func Parse(r io.Reader, typeOf TypeFunc) (*Table, error) {
	if typeOf == nil {
		typeOf = catalog.TypeOf
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	var header []string
	for sc.Scan() {
		lineNo++
		if line := strings.TrimRight(sc.Text(), "\r"); line != "" {
			header = strings.Split(line, Delimiter)
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sacct output: %w", err)
	}
	if header == nil {
		return nil, ErrEmptyInput
	}

	trailing := header[len(header)-1] == ""
	if trailing {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("line %d: %w: empty header", lineNo, ErrColumnCount)
	}

	t := &Table{
		Columns: header,
		Types:   make([]catalog.FieldType, len(header)),
		index:   make(map[string]int, len(header)),
	}
	for i, name := range header {
		if name == "" {
			return nil, fmt.Errorf("line %d: empty column name at position %d", lineNo, i+1)
		}
		t.Types[i] = typeOf(name)
		t.index[strings.ToLower(name)] = i
	}
	nameCol, hasName := t.Col(jobNameColumn)

	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		cells := strings.Split(line, Delimiter)
		if trailing {
			if cells[len(cells)-1] != "" {
				return nil, fmt.Errorf("line %d: %w: missing terminating delimiter", lineNo, ErrColumnCount)
			}
			cells = cells[:len(cells)-1]
		}
		if len(cells) > len(header) && hasName {
			cells = foldJobName(cells, len(header), nameCol)
		}
		if len(cells) != len(header) {
			return nil, fmt.Errorf("line %d: %w: got %d, want %d", lineNo, ErrColumnCount, len(cells), len(header))
		}

		row := make(Row, len(cells))
		for i, cell := range cells {
			v, err := typed(t.Types[i], cell)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w: column %s (%s): %v",
					lineNo, ErrBadValue, header[i], t.Types[i], err)
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sacct output: %w", err)
	}

	return t, nil
}

// foldJobName rejoins the cells a '|' inside a job name split apart.
func foldJobName(cells []string, width, nameCol int) []string {
	extra := len(cells) - width
	out := make([]string, 0, width)
	out = append(out, cells[:nameCol]...)
	out = append(out, strings.Join(cells[nameCol:nameCol+extra+1], Delimiter))
	out = append(out, cells[nameCol+extra+1:]...)
	return out
}
