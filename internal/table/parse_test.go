package table

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aceteam-ai/cpueff/internal/catalog"
)

const feed = `JobID|JobIDRaw|JobName|NCPUS|TotalCPU|CPUTimeRAW|ReqMem|Submit|AveCPU|
100|100|train|4|00:50|100|16G|2024-03-01T10:00:00||
100.batch|100.batch|batch|4|00:50|100||2024-03-01T10:00:01|00:00:49|
100.extern|100.extern|extern|4|00:00:00|100||Unknown|00:00:00|
`

func TestParse(t *testing.T) {
	tbl, err := Parse(strings.NewReader(feed), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(tbl.Columns) != 9 {
		t.Fatalf("expected 9 columns (trailing dropped), got %d: %v", len(tbl.Columns), tbl.Columns)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tbl.Rows))
	}

	ncpus, ok := tbl.Get(0, "NCPUS")
	if !ok || ncpus.Type != catalog.Numeric || ncpus.Num != 4 {
		t.Errorf("NCPUS = %+v, want numeric 4", ncpus)
	}

	total, _ := tbl.Get(0, "TotalCPU")
	if total.Dur != 50*time.Second {
		t.Errorf("TotalCPU = %v, want 50s", total.Dur)
	}

	alloc, _ := tbl.Get(0, "cputimeraw")
	if alloc.Type != catalog.RawSeconds || alloc.Dur != 100*time.Second || alloc.Num != 100 {
		t.Errorf("CPUTimeRAW = %+v, want 100s", alloc)
	}

	mem, _ := tbl.Get(1, "ReqMem")
	if !mem.Null {
		t.Errorf("empty ReqMem should be null, got %+v", mem)
	}

	ave, _ := tbl.Get(0, "AveCPU")
	if !ave.Null {
		t.Errorf("empty AveCPU should be null, got %+v", ave)
	}

	submit, _ := tbl.Get(0, "Submit")
	if !submit.HasTime() || submit.Time.Hour() != 10 {
		t.Errorf("Submit = %+v, want parsed time", submit)
	}
	unknown, _ := tbl.Get(2, "Submit")
	if unknown.HasTime() || unknown.Text != "Unknown" {
		t.Errorf("Unknown Submit = %+v, want text only", unknown)
	}

	if _, ok := tbl.Get(0, "Partition"); ok {
		t.Error("Get on an absent column should report false")
	}
}

func TestParseWithoutTrailingDelimiter(t *testing.T) {
	in := "JobID|NCPUS\n100|2\n"
	tbl, err := Parse(strings.NewReader(in), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tbl.Columns) != 2 || len(tbl.Rows) != 1 {
		t.Errorf("got %d columns, %d rows", len(tbl.Columns), len(tbl.Rows))
	}
}

func TestParseHeaderOnly(t *testing.T) {
	tbl, err := Parse(strings.NewReader("JobID|TotalCPU|\n"), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tbl.Rows) != 0 {
		t.Errorf("expected no rows, got %d", len(tbl.Rows))
	}
}

func TestParseJobNameWithDelimiter(t *testing.T) {
	in := "JobID|JobName|NCPUS|\n7|a|b|c|8|\n"
	tbl, err := Parse(strings.NewReader(in), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	name, _ := tbl.Get(0, "JobName")
	if name.Text != "a|b|c" {
		t.Errorf("JobName = %q, want %q", name.Text, "a|b|c")
	}
	ncpus, _ := tbl.Get(0, "NCPUS")
	if ncpus.Num != 8 {
		t.Errorf("NCPUS = %v, want 8", ncpus.Num)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty input", "", ErrEmptyInput},
		{"blank lines only", "\n\n", ErrEmptyInput},
		{"too few columns", "JobID|NCPUS|\n100|\n", ErrColumnCount},
		{"too many columns without JobName", "JobID|NCPUS|\n100|1|2|\n", ErrColumnCount},
		{"missing terminating delimiter", "JobID|NCPUS|\n100|4\n", ErrColumnCount},
		{"non-numeric count", "JobID|NCPUS|\n100|four|\n", ErrBadValue},
		{"bad composite duration", "JobID|TotalCPU|\n100|soon|\n", ErrBadValue},
		{"negative raw seconds", "JobID|CPUTimeRAW|\n100|-3|\n", ErrBadValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.in), nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseErrorReportsLine(t *testing.T) {
	in := "JobID|NCPUS|\n100|1|\n101|x|\n"
	_, err := Parse(strings.NewReader(in), nil)
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("error = %v, want mention of line 3", err)
	}
}

func TestParseCustomTypes(t *testing.T) {
	typeOf := func(string) catalog.FieldType { return catalog.String }
	tbl, err := Parse(strings.NewReader("JobID|NCPUS|\n100|many|\n"), typeOf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v, _ := tbl.Get(0, "NCPUS")
	if v.Text != "many" {
		t.Errorf("NCPUS = %q", v.Text)
	}
}

func TestMustCols(t *testing.T) {
	tbl, err := Parse(strings.NewReader(feed), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	idx, err := tbl.MustCols("JobID", "TotalCPU")
	if err != nil {
		t.Fatalf("MustCols: %v", err)
	}
	if idx[0] != 0 || idx[1] != 4 {
		t.Errorf("MustCols = %v, want [0 4]", idx)
	}
	if _, err := tbl.MustCols("JobID", "Partition"); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("MustCols error = %v, want ErrMissingColumn", err)
	}
}
