package catalog

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const manPage = `SACCT(1)                      Slurm Commands                      SACCT(1)

NAME
       sacct - displays accounting data for all jobs and job steps

       --helpformat
              Print a list of fields that can be specified with the
              --format option.

              Fields available:

              Account             AdminComment        AllocCPUS
              AllocNodes          AllocTRES           AssocID
              AveCPU              CPUTime             CPUTimeRAW
              ElapsedRaw          JobID               JobIDRaw
              JobName             NCPUS               ReqMem
              TotalCPU            ExitCode            Submit

              NOTE: When using with Ave[RSS|VM]Size or their values in
              the output.
`

type fakeRunner struct {
	stdout string
	stderr string
	err    error
	calls  [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func TestParseManPage(t *testing.T) {
	c, err := ParseManPage([]byte(manPage))
	if err != nil {
		t.Fatalf("ParseManPage: %v", err)
	}

	fields := c.Fields()
	if len(fields) != 18 {
		t.Fatalf("expected 18 fields, got %d: %v", len(fields), fields)
	}
	if fields[0] != "Account" || fields[len(fields)-1] != "Submit" {
		t.Errorf("fields out of order: %v", fields)
	}
	for _, f := range fields {
		if strings.Contains(f, "NOTE") || strings.Contains(f, "Fields") {
			t.Errorf("marker text leaked into fields: %q", f)
		}
	}
}

func TestParseManPageOverstrike(t *testing.T) {
	page := "F\bFi\bie\bel\bld\bds\bs available:\n" +
		"  J\bJo\bob\bbI\bID\bD   _\bN_\bC_\bP_\bU_\bS\n" +
		"N\bNO\bOT\bTE\bE:\b: done\n"
	c, err := ParseManPage([]byte(page))
	if err != nil {
		t.Fatalf("ParseManPage: %v", err)
	}
	want := []string{"JobID", "NCPUS"}
	if !reflect.DeepEqual(c.Fields(), want) {
		t.Errorf("Fields() = %v, want %v", c.Fields(), want)
	}
}

func TestParseManPageMissingMarkers(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{"no start marker", "JobID NCPUS\nNOTE: x\n"},
		{"no end marker", "Fields available:\nJobID NCPUS\n"},
		{"end marker only before start", "NOTE: early\nFields available:\nJobID\n"},
		{"empty page", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManPage([]byte(tt.page))
			if !errors.Is(err, ErrMarkerNotFound) {
				t.Errorf("error = %v, want ErrMarkerNotFound", err)
			}
		})
	}
}

func TestParseManPageEmptyRegion(t *testing.T) {
	_, err := ParseManPage([]byte("Fields available:\n\nNOTE: nothing\n"))
	if !errors.Is(err, ErrNoFields) {
		t.Errorf("error = %v, want ErrNoFields", err)
	}
}

func TestNewDropsDuplicates(t *testing.T) {
	c := New([]string{"JobID", "jobid", "NCPUS", "", "NCPUS"})
	want := []string{"JobID", "NCPUS"}
	if !reflect.DeepEqual(c.Fields(), want) {
		t.Errorf("Fields() = %v, want %v", c.Fields(), want)
	}
}

func TestLoadManPage(t *testing.T) {
	r := &fakeRunner{stdout: manPage}
	c, err := Load(context.Background(), r, SourceMan, "sacct", "man")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 18 {
		t.Errorf("Len() = %d, want 18", c.Len())
	}
	want := []string{"man", "-P", "cat", "sacct"}
	if len(r.calls) != 1 || !reflect.DeepEqual(r.calls[0], want) {
		t.Errorf("calls = %v, want [%v]", r.calls, want)
	}
}

func TestLoadHelpFormat(t *testing.T) {
	r := &fakeRunner{stdout: "Account  AllocCPUS  JobID\nNCPUS    TotalCPU\n"}
	c, err := Load(context.Background(), r, SourceHelpFormat, "/opt/slurm/bin/sacct", "man")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 5 {
		t.Errorf("Len() = %d, want 5", c.Len())
	}
	if r.calls[0][0] != "/opt/slurm/bin/sacct" || r.calls[0][1] != "--helpformat" {
		t.Errorf("unexpected call %v", r.calls[0])
	}

	r = &fakeRunner{stdout: "\n"}
	if _, err := Load(context.Background(), r, SourceHelpFormat, "sacct", "man"); !errors.Is(err, ErrNoFields) {
		t.Errorf("empty helpformat error = %v, want ErrNoFields", err)
	}
}

func TestLoadRunnerFailure(t *testing.T) {
	r := &fakeRunner{stderr: "No manual entry for sacct", err: errors.New("exit status 16")}
	_, err := Load(context.Background(), r, SourceMan, "sacct", "man")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "No manual entry") {
		t.Errorf("error should carry stderr, got %v", err)
	}
}

func TestLoadUnknownSource(t *testing.T) {
	if _, err := Load(context.Background(), &fakeRunner{}, Source("ldap"), "sacct", "man"); err == nil {
		t.Error("expected error for unknown source")
	}
}

func TestTypeOf(t *testing.T) {
	tests := map[string]FieldType{
		"NCPUS":      Numeric,
		"ncpus":      Numeric,
		"CPUTimeRAW": RawSeconds,
		"TotalCPU":   Composite,
		"Elapsed":    Composite,
		"Submit":     Timestamp,
		"JobName":    String,
		"ReqMem":     String,
		"Timelimit":  String,
		"Whatever":   String,
	}
	for field, want := range tests {
		if got := TypeOf(field); got != want {
			t.Errorf("TypeOf(%q) = %v, want %v", field, got, want)
		}
	}
}

func TestTypes(t *testing.T) {
	c := New([]string{"JobID", "NCPUS", "TotalCPU"})
	want := []FieldType{String, Numeric, Composite}
	if !reflect.DeepEqual(c.Types(), want) {
		t.Errorf("Types() = %v, want %v", c.Types(), want)
	}
}
