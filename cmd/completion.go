package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aceteam-ai/cpueff/internal/catalog"
	"github.com/aceteam-ai/cpueff/internal/efficiency"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for cpueff.

To load completions:

Bash:
  $ source <(cpueff completion bash)

  # To load completions for each session, execute once:
  $ cpueff completion bash > /etc/bash_completion.d/cpueff

Zsh:
  $ cpueff completion zsh > "${fpath[1]}/_cpueff"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ cpueff completion fish > ~/.config/fish/completions/cpueff.fish

PowerShell:
  PS> cpueff completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		default:
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}

// fixedCompletion offers a closed set of flag values.
func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

var (
	policyCompletion = fixedCompletion(efficiency.PrimaryStep.String(), efficiency.Unsuffixed.String())
	sourceCompletion = fixedCompletion(string(catalog.SourceMan), string(catalog.SourceHelpFormat))
)

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(completionCmd)
}
