package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var bundleOutput string

var bundleCmd = &cobra.Command{
	Use:   "bundle <folder>",
	Short: "Convert, re-render and merge a folder into a zip of text-only PDFs",
	Long: `Convert the office files of a folder to PDF, re-render those and the folder's
existing PDFs as text-only PDFs, merge them, and write a zip containing
merged_text_only.pdf and text_only_pdfs/<name>_text_only.pdf.

Examples:
  docrag bundle ./inbox -o result.zip`,
	Args: cobra.ExactArgs(1),
	RunE: runBundle,
}

func init() {
	rootCmd.AddCommand(bundleCmd)
	bundleCmd.Flags().StringVarP(&bundleOutput, "output", "o", "result.zip", "zip file to write")
}

func runBundle(cmd *cobra.Command, args []string) error {
	workDir, err := os.MkdirTemp(GetConfig().Server.ScratchDir, "docrag-bundle-")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	f, err := os.Create(bundleOutput)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", bundleOutput, err)
	}

	result, err := newExportUseCase(GetConfig()).Bundle(cmd.Context(), args[0], workDir, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(bundleOutput)
		return fmt.Errorf("bundle failed: %w", err)
	}

	fmt.Printf("Wrote %s with %d text-only PDF(s)\n", bundleOutput, len(result.Outputs))
	return nil
}
