package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/spherical/catalog-extractor/cmd/catalog-extractor/ui"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "catalog-extractor",
	Short: "Extract bibliographic records from catalog documents into spreadsheets",
	Long: `catalog-extractor renders the pages of a scanned or printed catalog, asks a
vision-capable language model to read the bibliographic records on them
(Titolo, Autore, Anno, Editore, Descrizione_fisica, Note) and saves the
result as an .xlsx workbook.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(noColor, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output and debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json (overrides config)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
