package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"docrag/internal/adapter/pdfmerge"
)

var (
	mergeName      string
	mergeOutputDir string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <folder>",
	Short: "Merge the text-only PDFs of a folder into one file",
	Long: `Merge every *_text_only.pdf in a folder, in name order, into a single PDF.

Examples:
  docrag merge ./text-only
  docrag merge ./text-only --name all.pdf -o ./output`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringVar(&mergeName, "name", "merged.pdf", "merged file name")
	mergeCmd.Flags().StringVarP(&mergeOutputDir, "output", "o", "output", "directory for the merged file")
}

func runMerge(cmd *cobra.Command, args []string) error {
	output := filepath.Join(mergeOutputDir, filepath.Base(mergeName))

	merged, inputs, err := newExportUseCase(GetConfig()).MergeTextOnly(cmd.Context(), args[0], output)
	if errors.Is(err, pdfmerge.ErrNoInputs) {
		fmt.Println("No text-only PDFs found to merge.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	fmt.Printf("Merged %d text-only PDF(s) into %s\n", len(inputs), merged)
	return nil
}
