package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docrag/config"
	"docrag/internal/adapter/store"
)

var (
	showJSON   bool
	showFolder string
)

var showCmd = &cobra.Command{
	Use:   "show [document]",
	Short: "Show stored documents or the chunks of one document",
	Long: `Inspect the chunk store written by 'docrag extract --save'.
The store lives in the extracted folder: pass it with --folder, or run show
from that folder. Without arguments, list stored documents; with a document
path (relative to the extracted folder), print its chunks.

Examples:
  docrag show --folder ./docs
  docrag show --folder ./docs reports/q3.pdf --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output as JSON")
	showCmd.Flags().StringVarP(&showFolder, "folder", "f", "", "folder passed to 'docrag extract --save' (default is the root directory)")
}

func runShow(cmd *cobra.Command, args []string) error {
	folder := GetRootDir()
	if showFolder != "" {
		abs, err := filepath.Abs(showFolder)
		if err != nil {
			return err
		}
		folder = abs
	}

	dbPath := config.StoreDBPath(folder)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no chunk store found in %s. Run 'docrag extract %s --save' first", folder, folder)
	}

	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open chunk store: %w", err)
	}
	defer st.Close()

	if len(args) == 0 {
		return listDocs(st)
	}

	doc, err := st.GetDoc(args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("document %q is not stored", args[0])
	}
	if err != nil {
		return err
	}
	chunks, err := st.GetChunksByDoc(doc.ID)
	if err != nil {
		return fmt.Errorf("failed to load chunks: %w", err)
	}

	if showJSON {
		return writeJSON("", chunks)
	}
	fmt.Printf("%s (%s, %d bytes, modified %s)\n", doc.Name, doc.Format.Kind(), doc.Size, doc.ModTime.Format("2006-01-02 15:04"))
	for _, c := range chunks {
		marker := ""
		if c.IsError {
			marker = " [error]"
		}
		fmt.Printf("\n--- chunk %d%s ---\n%s\n", c.Index, marker, c.Text)
	}
	return nil
}

func listDocs(st *store.BoltStore) error {
	docs, err := st.ListDocs()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	stats, err := st.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	if showJSON {
		return writeJSON("", map[string]any{"documents": docs, "stats": stats})
	}
	for _, d := range docs {
		fmt.Printf("  %-50s %-5s %10d bytes\n", d.ID, d.Format.Kind(), d.Size)
	}
	fmt.Printf("\nDocuments: %d  Chunks: %d  Avg chunk length: %.0f\n", stats.TotalDocs, stats.TotalChunks, stats.AvgChunkLen)
	return nil
}
