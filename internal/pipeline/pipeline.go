// Package pipeline runs one efficiency report end to end: catalog, sacct
// query, parse, derive, aggregate, write, and optionally record and publish.
package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aceteam-ai/cpueff/internal/catalog"
	"github.com/aceteam-ai/cpueff/internal/efficiency"
	"github.com/aceteam-ai/cpueff/internal/history"
	"github.com/aceteam-ai/cpueff/internal/publish"
	"github.com/aceteam-ai/cpueff/internal/report"
	"github.com/aceteam-ai/cpueff/internal/sacct"
	"github.com/aceteam-ai/cpueff/internal/table"
	"github.com/aceteam-ai/cpueff/internal/ui"
)

// ErrBadThreshold is returned for a threshold that is not a positive number.
var ErrBadThreshold = errors.New("threshold must be positive")

const totalSteps = 4

// Publisher sends a run summary somewhere. *publish.RedisPublisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg publish.SummaryMessage) error
}

// Options is everything one run needs. The CLI fills it from arguments,
// flags and config; nothing is read from globals.
type Options struct {
	User         string
	StartDaysAgo uint
	// EndDaysAgo is nil when the end date is today.
	EndDaysAgo *uint
	// Now anchors the window; zero means time.Now().
	Now time.Time

	Threshold float64
	Policy    efficiency.Policy
	OutputDir string

	SacctProgram  string
	ManProgram    string
	CatalogSource catalog.Source
	// Input replays a saved `sacct --parsable2` dump instead of running sacct.
	Input string

	Plot bool

	// Runner runs external programs; nil means sacct.ExecRunner.
	Runner sacct.Runner
	// Out receives status lines and diagnostics; nil means stdout.
	Out io.Writer
	// Store records the run when set.
	Store *history.Store
	// Publisher receives the run summary when set. Requires Store.
	Publisher Publisher
	// Debugf receives debug messages when set.
	Debugf func(format string, args ...any)
}

// Result describes a completed run.
type Result struct {
	Query   sacct.Query
	Summary efficiency.Summary
	Views   report.Views
	Paths   []string
	// Run is set when the run was recorded.
	Run *history.Run
}

func (o *Options) debugf(format string, args ...any) {
	if o.Debugf != nil {
		o.Debugf(format, args...)
	}
}

func (o *Options) defaults() {
	if o.Runner == nil {
		o.Runner = sacct.ExecRunner{}
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.SacctProgram == "" {
		o.SacctProgram = sacct.DefaultProgram
	}
	if o.ManProgram == "" {
		o.ManProgram = "man"
	}
	if o.Threshold == 0 {
		o.Threshold = report.DefaultThreshold
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
}

// Run executes one report. Nothing is written unless the query, parse and
// derivation all succeed.
func Run(ctx context.Context, opts Options) (*Result, error) {
	opts.defaults()
	status := ui.NewStatusLine(opts.Out)

	if err := report.ValidateUser(opts.User); err != nil {
		return nil, err
	}
	if !(opts.Threshold > 0) {
		return nil, fmt.Errorf("%w: %v", ErrBadThreshold, opts.Threshold)
	}
	window, err := sacct.NewWindow(opts.Now, opts.StartDaysAgo, opts.EndDaysAgo)
	if err != nil {
		return nil, err
	}

	runner := opts.Runner
	if opts.Input != "" {
		runner = sacct.ReplayRunner{Program: opts.SacctProgram, File: opts.Input, Next: opts.Runner}
	}

	status.Step(1, totalSteps, "Loading sacct field catalog")
	cat, err := loadCatalog(ctx, runner, &opts)
	if err != nil {
		return nil, err
	}
	opts.debugf("catalog: %d fields", cat.Len())

	if opts.Input == "" {
		checkVersion(ctx, runner, &opts, status)
	}

	q := sacct.Query{Program: opts.SacctProgram, User: opts.User, Window: window, Fields: cat.Fields()}
	status.Step(2, totalSteps, fmt.Sprintf("Querying jobs of %s for %s", opts.User, window))
	status.Command(q.Command())

	var out *sacct.Output
	err = ui.RunWithSpinner(opts.Out, "Running sacct", func() error {
		var ferr error
		out, ferr = sacct.Fetch(ctx, runner, q)
		return ferr
	})
	if out != nil {
		status.Diagnostics("sacct", out.Diagnostics())
	}
	if err != nil {
		return nil, err
	}

	status.Step(3, totalSteps, "Computing efficiency")
	tbl, err := table.Parse(bytes.NewReader(out.Stdout), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sacct output: %w", err)
	}
	records, err := efficiency.Derive(tbl)
	if err != nil {
		return nil, err
	}
	opts.debugf("parsed %d rows", len(records))

	res := &Result{
		Query:   q,
		Summary: efficiency.Aggregate(records, opts.Policy),
		Views:   report.BuildViews(records, opts.Policy, opts.Threshold),
	}

	status.Step(4, totalSteps, "Writing reports")
	res.Paths, err = report.WriteAll(opts.OutputDir, opts.User, res.Views)
	if err != nil {
		return nil, err
	}
	for _, p := range res.Paths {
		status.Success(ui.FileLink(opts.Out, p))
	}

	if res.Summary.Undefined > 0 {
		status.Warning(fmt.Sprintf("%d jobs had no allocated CPU time and are excluded", res.Summary.Undefined))
	}
	status.Info(fmt.Sprintf("Overall CPU efficiency: %s", res.Summary))
	status.Info(fmt.Sprintf("%d of %d jobs below %.2f", len(res.Views.Low), len(res.Views.Jobs), opts.Threshold))

	if opts.Plot {
		if err := report.Plot(opts.Out, res.Views.Jobs, opts.Threshold); err != nil {
			return nil, err
		}
	}

	if opts.Store != nil {
		run, err := record(ctx, &opts, window, res, records)
		if err != nil {
			return res, err
		}
		res.Run = run
		if opts.Publisher != nil {
			publishRun(ctx, &opts, status, run)
		}
	}

	return res, nil
}

func loadCatalog(ctx context.Context, r sacct.Runner, opts *Options) (*catalog.Catalog, error) {
	if opts.Input != "" {
		// A replayed dump already fixes the columns.
		return catalogFromDump(opts.Input)
	}
	cat, err := catalog.Load(ctx, r, opts.CatalogSource, opts.SacctProgram, opts.ManProgram)
	if err != nil {
		return nil, fmt.Errorf("failed to load field catalog: %w", err)
	}
	return cat, nil
}

func catalogFromDump(path string) (*catalog.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sacct dump: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read sacct dump: %w", err)
		}
		return nil, table.ErrEmptyInput
	}
	fields := strings.Split(strings.TrimSuffix(strings.TrimSpace(sc.Text()), table.Delimiter), table.Delimiter)
	cat := catalog.New(fields)
	if cat.Len() == 0 {
		return nil, catalog.ErrNoFields
	}
	return cat, nil
}

func checkVersion(ctx context.Context, r sacct.Runner, opts *Options, status *ui.StatusLine) {
	v, err := sacct.Version(ctx, r, opts.SacctProgram)
	if err != nil {
		opts.debugf("sacct version check skipped: %v", err)
		return
	}
	opts.debugf("sacct version %s", v)
	if !sacct.CheckVersion(v) {
		status.Warning(fmt.Sprintf("sacct %s is older than %s; some fields may be missing", v, sacct.MinimumVersion))
	}
}

func record(ctx context.Context, opts *Options, w sacct.Window, res *Result, records []efficiency.Record) (*history.Run, error) {
	s := res.Summary
	run := history.Run{
		ID:         history.NewRunID(),
		User:       opts.User,
		Start:      w.StartDate(),
		End:        w.EndDate(),
		Policy:     opts.Policy.String(),
		Threshold:  opts.Threshold,
		Host:       history.Hostname(ctx),
		CreatedAt:  time.Now(),
		Consumed:   s.Consumed,
		Allocated:  s.Allocated,
		Efficiency: s.Efficiency,
		Valid:      s.Valid,
		Jobs:       len(res.Views.Jobs),
		Low:        len(res.Views.Low),
		Steps:      len(res.Views.Steps),
		Undefined:  s.Undefined,
	}
	if err := opts.Store.Insert(run, history.JobsFrom(run.ID, records)); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	opts.debugf("recorded run %s", run.ID)
	return &run, nil
}

// publishRun failures are not fatal: the run stays unsynced for `history sync`.
func publishRun(ctx context.Context, opts *Options, status *ui.StatusLine, run *history.Run) {
	if err := opts.Publisher.Publish(ctx, publish.FromRun(*run)); err != nil {
		status.Warning(fmt.Sprintf("Summary not published, retry with `cpueff history sync`: %v", err))
		return
	}
	if err := opts.Store.MarkSynced([]string{run.ID}); err != nil {
		opts.debugf("mark synced failed: %v", err)
		return
	}
	run.Synced = true
}
