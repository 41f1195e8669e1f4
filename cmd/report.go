package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aceteam-ai/cpueff/internal/catalog"
	"github.com/aceteam-ai/cpueff/internal/config"
	"github.com/aceteam-ai/cpueff/internal/efficiency"
	"github.com/aceteam-ai/cpueff/internal/history"
	"github.com/aceteam-ai/cpueff/internal/pipeline"
	"github.com/aceteam-ai/cpueff/internal/publish"
	"github.com/aceteam-ai/cpueff/internal/ui"
)

var (
	outputDir     string
	threshold     float64
	policyName    string
	reportTimeout time.Duration
	inputFile     string
	sacctPath     string
	catalogSource string
	recordRun     bool
	plotChart     bool
)

// reportArgs are the positional arguments of the report command.
type reportArgs struct {
	User         string
	StartDaysAgo uint
	EndDaysAgo   *uint
	// Warning is set when a present end argument was ignored.
	Warning string
}

// validateReportArgs rejects missing or non-numeric required arguments.
// Cobra prints the usage, including the examples, on failure.
func validateReportArgs(cmd *cobra.Command, args []string) error {
	_, err := parseReportArgs(args)
	return err
}

func parseReportArgs(args []string) (reportArgs, error) {
	if len(args) < 2 || len(args) > 3 {
		return reportArgs{}, fmt.Errorf("expected <user> <start-days-ago> [<end-days-ago>], got %d arguments", len(args))
	}
	ra := reportArgs{User: args[0]}
	if ra.User == "" {
		return reportArgs{}, fmt.Errorf("user must not be empty")
	}

	start, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return reportArgs{}, fmt.Errorf("start-days-ago must be a whole number of days, got %q", args[1])
	}
	ra.StartDaysAgo = uint(start)

	if len(args) == 3 {
		end, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			ra.Warning = fmt.Sprintf("ignoring end-days-ago %q (not a whole number); the range ends today", args[2])
		} else {
			e := uint(end)
			ra.EndDaysAgo = &e
		}
	}
	return ra, nil
}

// buildOptions layers changed flags over the config for one report run.
func buildOptions(flags *pflag.FlagSet, c *config.Config, ra reportArgs) (pipeline.Options, error) {
	merged := *c
	if flags.Changed("output-dir") {
		merged.OutputDir = outputDir
	}
	if flags.Changed("threshold") {
		merged.Threshold = threshold
	}
	if flags.Changed("policy") {
		merged.Policy = policyName
	}
	if flags.Changed("sacct") {
		merged.SacctPath = sacctPath
	}
	if flags.Changed("catalog-source") {
		merged.Catalog.Source = catalogSource
	}
	if flags.Changed("plot") {
		merged.Plot = plotChart
	}
	if flags.Changed("record") {
		merged.History.Enabled = recordRun
	}
	if err := merged.Validate(); err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		User:          ra.User,
		StartDaysAgo:  ra.StartDaysAgo,
		EndDaysAgo:    ra.EndDaysAgo,
		Threshold:     merged.Threshold,
		Policy:        merged.PolicyValue(),
		OutputDir:     merged.OutputDir,
		SacctProgram:  merged.SacctPath,
		ManProgram:    merged.ManPath,
		CatalogSource: merged.CatalogSource(),
		Input:         inputFile,
		Plot:          merged.Plot,
		Out:           os.Stdout,
		Debugf:        Debug,
	}, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	ra, err := parseReportArgs(args)
	if err != nil {
		return err
	}
	status := ui.NewStatusLine(cmd.OutOrStdout())
	if ra.Warning != "" {
		status.Warning(ra.Warning)
	}

	opts, err := buildOptions(cmd.Flags(), cfg, ra)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(reportTimeout)
	defer cancel()

	record := cfg.History.Enabled
	if cmd.Flags().Changed("record") {
		record = recordRun
	}
	if record {
		store, err := history.OpenStore(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Store = store
		Debug("recording run in %s", cfg.History.Path)

		if cfg.Redis.URL != "" {
			pub, err := publish.NewRedisPublisher(publish.RedisPublisherConfig{
				RedisURL:      cfg.Redis.URL,
				RedisPassword: cfg.Redis.Password,
				Stream:        cfg.Redis.Stream,
				DebugFunc:     Debug,
			})
			if err != nil {
				return err
			}
			defer pub.Close()
			opts.Publisher = pub
		}
	}

	_, err = pipeline.Run(ctx, opts)
	return err
}

func addReportFlags(f *pflag.FlagSet) {
	f.StringVarP(&outputDir, "output-dir", "o", ".", "Directory the reports are written to")
	f.Float64VarP(&threshold, "threshold", "t", 0.6, "Efficiency below which a job is listed in eff_low_<user>.txt")
	f.StringVar(&policyName, "policy", efficiency.PrimaryStep.String(), "Which records count as jobs: primary-step or unsuffixed")
	f.DurationVar(&reportTimeout, "timeout", 0, "Abort the run after this long (0 = no limit)")
	f.StringVar(&inputFile, "input", "", "Read a saved sacct --parsable2 dump instead of running sacct")
	f.StringVar(&sacctPath, "sacct", "sacct", "sacct program to run")
	f.StringVar(&catalogSource, "catalog-source", string(catalog.SourceMan), "Where to read the field list: man or helpformat")
	f.BoolVar(&recordRun, "record", false, "Record the run in the history database")
	f.BoolVar(&plotChart, "plot", false, "Print a chart of per-job efficiency")
}

func init() {
	addReportFlags(rootCmd.Flags())
	_ = rootCmd.RegisterFlagCompletionFunc("policy", policyCompletion)
	_ = rootCmd.RegisterFlagCompletionFunc("catalog-source", sourceCompletion)
}
