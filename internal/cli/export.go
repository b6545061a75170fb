package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"docrag/internal/logger"
)

var (
	exportOutputDir     string
	exportLinesPerChunk int
)

var exportCmd = &cobra.Command{
	Use:   "export <folder>",
	Short: "Re-render every PDF in a folder as a text-only PDF",
	Long: `Extract the text of each *.pdf in a folder and lay it out again as
<name>_text_only.pdf, dropping images and layout.

Examples:
  docrag export ./pdfs
  docrag export ./pdfs -o ./text-only --lines-per-chunk 20`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutputDir, "output", "o", "output_pdfs", "directory for text-only PDFs")
	exportCmd.Flags().IntVar(&exportLinesPerChunk, "lines-per-chunk", 0, "wrapped lines buffered before a page break (default from config)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	cfg := GetConfig()
	if cmd.Flags().Changed("lines-per-chunk") {
		cfg.Render.LinesPerChunk = exportLinesPerChunk
	}

	outDir, err := filepath.Abs(exportOutputDir)
	if err != nil {
		return fmt.Errorf("invalid output directory: %w", err)
	}

	result, err := newExportUseCase(cfg).ExportFolder(ctx, args[0], outDir, newProgress("Exporting"))
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	for name, reason := range result.Failed {
		log.Warn("skipped", "file", name, "reason", reason)
	}
	fmt.Printf("Exported %d text-only PDF(s) to %s\n", len(result.Outputs), outDir)
	for _, f := range result.Outputs {
		fmt.Printf("  %s\n", f)
	}
	return nil
}
