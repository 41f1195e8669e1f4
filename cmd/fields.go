package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/aceteam-ai/cpueff/internal/catalog"
	"github.com/aceteam-ai/cpueff/internal/sacct"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the sacct fields cpueff queries and how each is parsed",
	Long: `Reads the field list from the sacct manual (or sacct --helpformat) and
prints every field with the type cpueff parses it as.`,
	Example: `  cpueff fields
  cpueff fields --catalog-source helpformat`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		src := cfg.CatalogSource()
		if cmd.Flags().Changed("catalog-source") {
			src = catalog.Source(fieldsSource)
		}

		ctx, cancel := commandContext(0)
		defer cancel()

		cat, err := catalog.Load(ctx, sacct.ExecRunner{}, src, cfg.SacctPath, cfg.ManPath)
		if err != nil {
			return err
		}

		name := lipgloss.NewStyle().Width(22)
		types := cat.Types()
		for i, f := range cat.Fields() {
			fmt.Fprintf(os.Stdout, "%s%s\n", name.Render(f), types[i])
		}
		Debug("%d fields from %s", cat.Len(), src)
		return nil
	},
}

var fieldsSource string

func init() {
	fieldsCmd.Flags().StringVar(&fieldsSource, "catalog-source", string(catalog.SourceMan), "Where to read the field list: man or helpformat")
	_ = fieldsCmd.RegisterFlagCompletionFunc("catalog-source", sourceCompletion)
	rootCmd.AddCommand(fieldsCmd)
}
