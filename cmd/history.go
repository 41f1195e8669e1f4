package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/aceteam-ai/cpueff/internal/duration"
	"github.com/aceteam-ai/cpueff/internal/efficiency"
	"github.com/aceteam-ai/cpueff/internal/history"
	"github.com/aceteam-ai/cpueff/internal/platform"
	"github.com/aceteam-ai/cpueff/internal/publish"
	"github.com/aceteam-ai/cpueff/internal/ui"
)

var (
	historyLimit int
	syncWatch    bool
	syncInterval time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history [user]",
	Short: "List recorded report runs",
	Long: `Lists runs recorded with --record (or history.enabled in the config),
newest first. Without a user, the invoking user's runs are shown; pass "all"
for every user.`,
	Example: `  cpueff history
  cpueff history alice --limit 5
  cpueff history all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		user := platform.CurrentUser()
		if len(args) == 1 {
			user = args[0]
		}
		if user == "all" {
			user = ""
		}

		store, err := history.OpenStore(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(user, historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			ui.NewStatusLine(os.Stdout).Info("No recorded runs")
			return nil
		}
		fmt.Println(renderRuns(runs))
		return nil
	},
}

var historySyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Publish unsynced run summaries to Redis",
	Long: `Publishes recorded runs that have not reached Redis yet, for example
because Redis was unreachable when the report ran. With --watch it keeps
syncing until interrupted.`,
	Example: `  cpueff history sync
  cpueff history sync --watch --interval 5m`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		status := ui.NewStatusLine(os.Stdout)

		if cfg.Redis.URL == "" {
			return fmt.Errorf("redis.url is not configured (set it in the config file or CPUEFF_REDIS_URL)")
		}

		store, err := history.OpenStore(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()

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

		ctx, cancel := commandContext(0)
		defer cancel()

		if err := pub.Ping(ctx); err != nil {
			return err
		}

		syncer := history.NewSyncer(history.SyncerConfig{
			Store:    store,
			Publish:  pub.PublishRuns,
			Interval: syncInterval,
			Debugf:   Debug,
			Warnf: func(format string, args ...any) {
				status.Warning(fmt.Sprintf(format, args...))
			},
		})

		if syncWatch {
			status.Working(fmt.Sprintf("Syncing every %s, press Ctrl+C to stop", syncInterval))
			syncer.Watch(ctx)
			return nil
		}

		total, err := syncer.Drain(ctx)
		if err != nil {
			if total > 0 {
				status.Warning(fmt.Sprintf("Published %d runs before the failure", total))
			}
			return err
		}
		status.Success(fmt.Sprintf("Published %d runs to %s", total, pub.StreamName()))
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the per-job efficiency stored for one run",
	Example: `  cpueff history show 0f8fad5b-d9cb-469f-a165-70867728950e`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		store, err := history.OpenStore(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		jobs, err := store.Jobs(args[0])
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			return fmt.Errorf("no jobs recorded for run %q", args[0])
		}
		fmt.Println(renderJobs(jobs))
		return nil
	},
}

// renderJobs draws the stored rows of one run.
func renderJobs(jobs []history.Job) string {
	rows := make([][]string, len(jobs))
	for i, j := range jobs {
		started := "-"
		if !j.Started.IsZero() {
			started = j.Started.Local().Format("2006-01-02 15:04")
		}
		rows[i] = []string{
			j.JobID,
			j.Substep,
			efficiency.FormatEfficiency(j.Efficiency, j.Valid),
			strconv.FormatFloat(j.NCPUS, 'f', -1, 64),
			duration.Format(j.Consumed),
			duration.Format(j.Allocated),
			j.State,
			started,
			j.JobName,
		}
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.ASCIIBorder()).
		Headers("JobID", "Substep", "Efficiency", "NCPUS", "Consumed", "Allocated", "State", "Started", "JobName").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style { return cell }).
		Render()
}

// renderRuns draws the run list with the same ASCII grid as the reports.
func renderRuns(runs []history.Run) string {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		synced := "no"
		if r.Synced {
			synced = "yes"
		}
		rows[i] = []string{
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.User,
			r.Start + ".." + r.End,
			efficiency.FormatEfficiency(r.Efficiency, r.Valid),
			strconv.Itoa(r.Jobs),
			strconv.Itoa(r.Low),
			duration.Format(r.Allocated),
			r.Policy,
			r.Host,
			synced,
		}
	}

	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.ASCIIBorder()).
		Headers("Recorded", "User", "Window", "Efficiency", "Jobs", "Low", "Allocated", "Policy", "Host", "Synced").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style { return cell }).
		Render()
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to list")
	historySyncCmd.Flags().BoolVar(&syncWatch, "watch", false, "Keep syncing until interrupted")
	historySyncCmd.Flags().DurationVar(&syncInterval, "interval", time.Minute, "Time between sync cycles with --watch")
	historyCmd.AddCommand(historySyncCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
