package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	convertOutputDir string
	convertMerge     string
)

var convertCmd = &cobra.Command{
	Use:   "convert <folder>",
	Short: "Convert the office files of a folder to PDF with LibreOffice",
	Long: `Convert every .pptx, .doc and .docx file in a folder to PDF using a headless
LibreOffice (soffice). Set convert.soffice_path or DOCRAG_SOFFICE to point at the binary.

Examples:
  docrag convert ./slides
  docrag convert ./slides -o ./pdf --merge merged.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVarP(&convertOutputDir, "output", "o", "office-to-pdf", "directory for converted PDFs")
	convertCmd.Flags().StringVar(&convertMerge, "merge", "", "also merge the converted PDFs into this file name")
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	if convertMerge != "" {
		result, err := newExportUseCase(cfg).ConvertAndMerge(ctx, args[0], convertOutputDir, filepath.Base(convertMerge))
		if err != nil {
			return fmt.Errorf("convert failed: %w", err)
		}
		if len(result.PDFs) == 0 {
			fmt.Println("No office files found to convert.")
			return nil
		}
		printConverted(result.PDFs)
		fmt.Printf("Merged into %s\n", result.Merged)
		return nil
	}

	pdfs, err := newExportUseCase(cfg).Convert(ctx, args[0], convertOutputDir)
	if err != nil {
		return fmt.Errorf("convert failed: %w", err)
	}
	if len(pdfs) == 0 {
		fmt.Println("No office files found to convert.")
		return nil
	}
	printConverted(pdfs)
	return nil
}

func printConverted(pdfs []string) {
	fmt.Printf("Converted %d file(s):\n", len(pdfs))
	for _, p := range pdfs {
		fmt.Printf("  %s\n", p)
	}
}
