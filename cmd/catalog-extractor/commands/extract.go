package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical/catalog-extractor/cmd/catalog-extractor/ui"
	"github.com/spherical/catalog-extractor/internal/config"
	"github.com/spherical/catalog-extractor/internal/extract"
	"github.com/spherical/catalog-extractor/pkg/extractor"
)

var (
	extractFilePath  string
	extractPrompt    string
	extractOutputDir string
	extractValidate  string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract bibliographic records from a document into an .xlsx file",
	Long: `Render every page of the document, send the pages and the prompt to the
model in a single request, and save the returned records as <name>.xlsx in the
output directory (by default the document's own directory).`,
	Example: `  catalog-extractor extract -f catalogo.pdf -p "Extract Titolo, Autore, Anno, Editore"
  catalog-extractor extract -f scans/page.png -p "..." -o exports --validate warn`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractFilePath, "file-path", "f", "", "Path to the document (required)")
	extractCmd.Flags().StringVarP(&extractPrompt, "prompt", "p", "", "Extraction prompt sent with the pages (required)")
	extractCmd.Flags().StringVarP(&extractOutputDir, "output-dir", "o", "", "Directory for the .xlsx file (default: the document's directory)")
	extractCmd.Flags().StringVar(&extractValidate, "validate", "", "Schema validation: off, warn or strict (overrides config)")
	_ = extractCmd.MarkFlagRequired("file-path")
	_ = extractCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadSettings()
	if err != nil {
		return err
	}

	logger.Info().Str("version", Version).Msg("--- catalog-extractor start ---")
	defer func() {
		logger.Info().Msg("--- catalog-extractor shutdown ---")
	}()

	if extractValidate != "" {
		mode, err := extract.ParseValidationMode(extractValidate)
		if err != nil {
			return logFailure(logger, err)
		}
		cfg.Output.Validation = string(mode)
	}

	apiKey, err := config.APIKey()
	if err != nil {
		return logFailure(logger, err)
	}

	ui.Section("Catalog Extraction")

	bar := ui.NewProgressBar(-1, "Rendering pages")
	spinner := ui.NewSpinner("Waiting for the model to read the pages...")

	client, err := extractor.NewClientWithConfig(&extractor.Config{
		APIKey:   apiKey,
		Settings: cfg,
		Logger:   logger,
		OnPage: func(done, total int) {
			bar.SetTotal(int64(total))
			bar.Set(int64(done))
			if done == total {
				bar.Finish()
				spinner.Start()
			}
		},
	})
	if err != nil {
		return logFailure(logger, err)
	}

	outputPath := client.OutputPath(extractFilePath, extractOutputDir)
	ui.Info("Document: %s", extractFilePath)
	ui.Info("Output file: %s", outputPath)
	ui.Info("Model: %s", client.Model())
	ui.Debug("Validation: %s", cfg.Output.Validation)
	ui.Newline()

	events := make(chan extractor.StreamEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range events {
			if e.Type == extractor.EventExtracted || e.Type == extractor.EventValidated {
				spinner.UpdateMessage(e.Payload + ", saving workbook...")
			}
		}
	}()

	result, err := client.ProcessWithEvents(ctx, extractFilePath, extractPrompt, extractOutputDir, events)
	close(events)
	<-done
	spinner.Stop()
	if err != nil {
		return logFailure(logger, err)
	}

	if result.Status == extractor.StatusNoData {
		ui.Warning("No records were extracted from %s. No file was written.", extractFilePath)
		return nil
	}

	if len(result.Invalid) > 0 {
		ui.Warning("%s did not match the bibliographic schema:", plural(len(result.Invalid), "record", "records"))
		items := make([]string, 0, len(result.Invalid))
		for _, r := range result.Invalid {
			msgs := make([]string, len(r.Errors))
			for i, e := range r.Errors {
				msgs[i] = e.String()
			}
			items = append(items, fmt.Sprintf("record %d: %s", r.Index+1, strings.Join(msgs, "; ")))
		}
		ui.Message("%s", strings.TrimRight(ui.FormatList(items), "\n"))
	}

	ui.Section("Extraction Summary")
	ui.Table([]string{"Metric", "Value"}, [][]string{
		{"Output File", result.OutputPath},
		{"Records", fmt.Sprintf("%d", result.Records)},
		{"Columns", strings.Join(result.Columns, ", ")},
		{"Duration", ui.FormatDuration(result.Duration)},
		{"Run ID", result.RunID},
	})

	ui.Newline()
	ui.Success("Data successfully saved to %s", result.OutputPath)

	return nil
}
