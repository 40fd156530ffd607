package commands

import (
	"encoding/base64"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spherical/catalog-extractor/cmd/catalog-extractor/ui"
	"github.com/spherical/catalog-extractor/internal/config"
	"github.com/spherical/catalog-extractor/internal/pdf"
)

var (
	inspectFilePath string
	inspectRender   bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show page count and rendered page sizes without calling the model",
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectFilePath, "file-path", "f", "", "Path to the document (required)")
	inspectCmd.Flags().BoolVar(&inspectRender, "render", false, "Render every page and report image sizes")
	_ = inspectCmd.MarkFlagRequired("file-path")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadSettings()
	if err != nil {
		return err
	}

	if err := pdf.NewValidator().ValidateDocumentPath(inspectFilePath); err != nil {
		return logFailure(logger, err)
	}

	info, err := pdf.Inspect(inspectFilePath)
	if err != nil {
		return logFailure(logger, err)
	}

	ui.Section("Document")
	ui.Table([]string{"Property", "Value"}, [][]string{
		{"File", filepath.Base(info.Path)},
		{"Format", info.Format},
		{"Pages", fmt.Sprintf("%d", info.Pages)},
		{"Output File", extractOutputName(info.Path)},
	})

	if !inspectRender {
		return nil
	}

	bar := ui.NewProgressBar(int64(info.Pages), "Rendering pages")
	renderer := pdf.NewRenderer(pdf.RenderOptions{
		DPI: cfg.Render.DPI,
		OnPage: func(done, total int) {
			bar.Set(int64(done))
		},
	})

	pages, err := renderer.Render(cmd.Context(), inspectFilePath)
	bar.Finish()
	if err != nil {
		return logFailure(logger, err)
	}

	total := 0
	rows := make([][]string, 0, len(pages))
	for _, p := range pages {
		size := base64.StdEncoding.DecodedLen(len(p.Data))
		total += size
		rows = append(rows, []string{
			fmt.Sprintf("%d", p.Index+1),
			fmt.Sprintf("%d x %d", p.Width, p.Height),
			ui.FormatBytes(size),
		})
	}

	ui.Section(fmt.Sprintf("Rendered Pages (%g DPI)", renderer.DPI()))
	ui.Table([]string{"Page", "Pixels", "PNG Size"}, rows, 0, 2)
	ui.Info("%s, about %s of image data per request", plural(len(pages), "page", "pages"), ui.FormatBytes(total))

	return nil
}

// extractOutputName is the workbook name extract would write for path.
func extractOutputName(path string) string {
	return filepath.Base(config.OutputPath(path, ""))
}
