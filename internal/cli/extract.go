package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"docrag/config"
	"docrag/internal/adapter/extractor"
	"docrag/internal/adapter/fs"
	"docrag/internal/adapter/store"
	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

var (
	extractChunkSize int
	extractMaxTokens int
	extractRowLimit  int
	extractPrefix    string
	extractWorkers   int
	extractSave      bool
	extractOutput    string
	extractQuiet     bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [folder | files...]",
	Short: "Extract and chunk documents",
	Long: `Extract text from PDF, DOCX, PPTX and XLSX files and split it into chunks.
The result is printed as JSON: {"results": {name: [chunk...]}, "errors": {...}, "rejected": {...}}.

With a folder and --save, chunks are stored in .docrag/chunks.db and unchanged
files are reused on the next run.

Examples:
  docrag extract ./docs --max-tokens 200
  docrag extract report.pdf sheet.xlsx --row-limit 20 --prefix "[finance]"
  docrag extract ./docs --save -o chunks.json`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().IntVar(&extractChunkSize, "chunk-size", 0, "characters per chunk (default from config)")
	extractCmd.Flags().IntVar(&extractMaxTokens, "max-tokens", 0, "words per chunk, wins over --chunk-size (default from config)")
	extractCmd.Flags().IntVar(&extractRowLimit, "row-limit", 0, "spreadsheet data rows per chunk (default from config)")
	extractCmd.Flags().StringVar(&extractPrefix, "prefix", "", "text prepended to every chunk")
	extractCmd.Flags().IntVarP(&extractWorkers, "workers", "w", 0, "documents processed in parallel (default from config)")
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "store chunks in .docrag/chunks.db (folder mode)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "write JSON to a file instead of stdout")
	extractCmd.Flags().BoolVarP(&extractQuiet, "quiet", "q", false, "hide the progress bar")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	cfg := GetConfig()

	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		cfg.Extract.ChunkSize = extractChunkSize
	}
	if flags.Changed("max-tokens") {
		cfg.Extract.MaxTokens = extractMaxTokens
	}
	if flags.Changed("row-limit") {
		cfg.Extract.RowLimit = extractRowLimit
	}
	if flags.Changed("prefix") {
		cfg.Extract.Prefix = extractPrefix
	}
	if flags.Changed("workers") {
		cfg.Extract.Workers = extractWorkers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var progress usecase.ProgressFunc
	if !extractQuiet {
		progress = newProgress("Extracting")
	}
	registry := extractor.NewRegistry(cfg.Extract.MaxFileSize)
	opts := chunkOptions(cfg)
	start := time.Now()

	folder, files, err := resolveTargets(args)
	if err != nil {
		return err
	}

	var set *domain.ChunkSet
	if folder != "" {
		result, err := extractFolder(cmd, cfg, registry, folder, progress)
		if err != nil {
			return err
		}
		set = result.Set
		log.Info("extraction complete",
			"extracted", result.FilesExtracted,
			"skipped", result.FilesSkipped,
			"deleted", result.FilesDeleted,
			"chunks", set.TotalChunks(),
			"took", time.Since(start).Round(time.Millisecond),
		)
		for _, e := range result.Errors {
			log.Warn(e)
		}
	} else {
		docs, err := documentsFor(files)
		if err != nil {
			return err
		}
		uc := usecase.NewExtractUseCase(registry, nil, nil, cfg.Extract.Workers)
		set, err = uc.ExtractFiles(ctx, docs, opts, progress)
		if err != nil {
			return fmt.Errorf("extraction failed: %w", err)
		}
		log.Info("extraction complete", "documents", len(set.Documents), "chunks", set.TotalChunks())
	}

	for name, reason := range set.Rejected {
		log.Warn("rejected", "file", name, "reason", reason)
	}
	return writeJSON(extractOutput, set.Response())
}

// resolveTargets decides between folder mode (no args or one directory)
// and file mode.
func resolveTargets(args []string) (folder string, files []string, err error) {
	if len(args) == 0 {
		return GetRootDir(), nil, nil
	}
	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err != nil {
			return "", nil, fmt.Errorf("path does not exist: %w", err)
		}
		if info.IsDir() {
			abs, err := filepath.Abs(args[0])
			return abs, nil, err
		}
	}
	return "", args, nil
}

func documentsFor(paths []string) ([]domain.Document, error) {
	docs := make([]domain.Document, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("path does not exist: %w", err)
		}
		name := filepath.Base(p)
		docs = append(docs, domain.Document{
			ID:      name,
			Name:    name,
			Path:    p,
			Format:  domain.DetectFormat(name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return docs, nil
}

func extractFolder(
	cmd *cobra.Command,
	cfg *config.Config,
	registry *extractor.Registry,
	folder string,
	progress usecase.ProgressFunc,
) (*usecase.ExtractResult, error) {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)

	excludes := append([]string{config.DataDirName + "/**"}, cfg.Extract.Excludes...)
	walker := fs.NewWalker(cfg.Extract.Includes, excludes)

	var st port.ChunkStore
	if extractSave || cfg.Store.Enabled {
		bolt, err := openChunkStore(log, cfg, folder)
		if err != nil {
			return nil, err
		}
		defer bolt.Close()
		defer func() {
			if err := bolt.Migrate(cfg); err != nil {
				log.Error("failed to update schema info", "error", err)
			}
		}()
		st = bolt
	}

	uc := usecase.NewExtractUseCase(registry, walker, st, cfg.Extract.Workers)
	log.Info("scanning", "folder", folder)
	result, err := uc.ExtractDir(ctx, folder, chunkOptions(cfg), progress)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	return result, nil
}

// openChunkStore opens the folder's chunk store, clearing it when the
// stored chunks were produced with different chunking settings.
func openChunkStore(log logger.Logger, cfg *config.Config, folder string) (*store.BoltStore, error) {
	if err := config.EnsureDataDir(folder); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.NewBoltStore(config.StoreDBPath(folder))
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk store: %w", err)
	}

	migration, err := st.CheckMigration(cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to check migration: %w", err)
	}
	switch {
	case migration.NeedsRebuild:
		log.Info("rebuilding chunk store", "reason", migration.Reason)
		if err := st.Clear(); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to clear chunk store: %w", err)
		}
	case migration.NeedsMigration:
		if err := st.Migrate(cfg); err != nil {
			st.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return st, nil
}

func writeJSON(path string, v any) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
