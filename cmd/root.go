// Package cmd implements the cpueff command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/aceteam-ai/cpueff/internal/config"
	"github.com/aceteam-ai/cpueff/internal/platform"
)

var cfgFile string
var debugMode bool
var noColor bool

// cfg is the effective configuration, loaded before any command runs.
var cfg *config.Config

// debugLogFile is the file handle for debug logging
var debugLogFile *os.File
var debugLogMu sync.Mutex
var debugLogInitOnce sync.Once

// initDebugLogFile initializes the debug log file
func initDebugLogFile() {
	logDir := filepath.Join(platform.ConfigDir(), "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return
	}

	logPath := filepath.Join(logDir, "debug.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return
	}

	debugLogFile = f

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(debugLogFile, "\n=== Debug session started: %s ===\n", timestamp)
}

// Debug prints a message if debug mode is enabled and writes to log file
func Debug(format string, args ...interface{}) {
	if debugMode {
		timestamp := time.Now().Format("2006-01-02 15:04:05.000")
		msg := fmt.Sprintf(format, args...)

		fmt.Printf("[DEBUG] %s\n", msg)

		debugLogMu.Lock()
		debugLogInitOnce.Do(initDebugLogFile)
		if debugLogFile != nil {
			fmt.Fprintf(debugLogFile, "[%s] %s\n", timestamp, msg)
		}
		debugLogMu.Unlock()
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cpueff <user> <start-days-ago> [<end-days-ago>]",
	Short: "Report CPU efficiency of a user's Slurm jobs",
	Long: `cpueff queries Slurm accounting (sacct) for one user's jobs over a date
range and computes how much of the allocated CPU time each job actually used.

Efficiency is TotalCPU / CPUTimeRAW. Three reports are written:

  eff_<user>.txt        one row per job
  eff_low_<user>.txt    jobs below the efficiency threshold
  eff_steps_<user>.txt  every job step (batch, extern, 0, ...)

The overall efficiency sums consumed and allocated time over all jobs before
dividing, so large jobs weigh more than small ones.

A user whose login matches a subcommand name (history, fields, version,
completion, help) must be passed after "--", as in "cpueff -- history 7".`,
	Example: `  cpueff alice 7          # alice's jobs from 7 days ago until today
  cpueff alice 30 7       # from 30 days ago until 7 days ago
  cpueff alice 7 -t 0.8   # flag jobs below 80% efficiency
  cpueff alice 7 --input dump.txt   # replay a saved sacct --parsable2 dump
  cpueff -- history 7     # report on the user named "history"`,
	Version:           Version,
	Args:              validateReportArgs,
	PersistentPreRunE: setup,
	RunE:              runReport,
}

// setup loads .env and config, applies color settings and logs the command.
func setup(cmd *cobra.Command, args []string) error {
	configDir := platform.ConfigDir()
	if p := config.LoadDotEnv(config.DotEnvPaths(configDir)...); p != "" {
		Debug("loaded environment from %s", p)
	}

	loaded, err := config.Load(cfgFile, configDir)
	if err != nil {
		cmd.SilenceUsage = true
		return err
	}
	cfg = loaded

	if noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}

	if debugMode {
		fullCmd := "cpueff"
		if cmd != cmd.Root() {
			fullCmd += " " + cmd.Name()
		}
		cmd.Flags().Visit(func(f *pflag.Flag) {
			if f.Name == "debug" {
				return
			}
			if f.Value.Type() == "bool" {
				fullCmd += " --" + f.Name
			} else {
				fullCmd += " --" + f.Name + "=" + f.Value.String()
			}
		})
		if len(args) > 0 {
			fullCmd += " " + strings.Join(args, " ")
		}
		Debug("command: %s", fullCmd)
	}
	return nil
}

// commandContext returns a context cancelled on SIGINT/SIGTERM and, when
// timeout is positive, after timeout.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+filepath.Join(platform.ConfigDir(), config.FileName)+")")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}
