package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/aceteam-ai/cpueff/internal/platform"
	"github.com/aceteam-ai/cpueff/internal/sacct"
)

// Version will be set at build time
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cpueff version and the Slurm release sacct reports",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cpueff version %s\n", Version)

		program := sacct.DefaultProgram
		if cfg != nil && cfg.SacctPath != "" {
			program = cfg.SacctPath
		}
		if !platform.CommandAvailable(program) {
			fmt.Printf("sacct: %s\n", color.YellowString("%s not found", program))
			return
		}

		ctx, cancel := commandContext(0)
		defer cancel()
		v, err := sacct.Version(ctx, sacct.ExecRunner{}, program)
		if err != nil {
			Debug("sacct version: %v", err)
			fmt.Printf("sacct: %s\n", color.YellowString("unknown"))
			return
		}
		note := ""
		if !sacct.CheckVersion(v) {
			note = color.YellowString(" (older than %s)", sacct.MinimumVersion)
		}
		fmt.Printf("sacct: slurm %s%s\n", v, note)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
