package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"docrag/config"
	"docrag/internal/adapter/extractor"
	"docrag/internal/adapter/fs"
	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/usecase"
)

func main() {
	dir := flag.String("dir", ".", "Folder of documents to extract")
	workers := flag.String("workers", "1,2,4,8", "Comma-separated worker counts to compare")
	maxTokens := flag.Int("max-tokens", 0, "Words per chunk (0 = config)")
	chunkSize := flag.Int("chunk-size", 0, "Characters per chunk (0 = config)")
	flag.Parse()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *maxTokens > 0 {
		cfg.Extract.MaxTokens = *maxTokens
	}
	if *chunkSize > 0 {
		cfg.Extract.ChunkSize = *chunkSize
	}

	counts, err := parseCounts(*workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -workers: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.ContextWithLogger(context.Background(), logger.NewLogger(logger.TestConfig()))
	walker := fs.NewWalker(cfg.Extract.Includes, append([]string{config.DataDirName + "/**"}, cfg.Extract.Excludes...))
	opts := domain.ChunkOptions{
		ChunkSize: cfg.Extract.ChunkSize,
		MaxTokens: cfg.Extract.MaxTokens,
		RowLimit:  cfg.Extract.RowLimit,
		Prefix:    cfg.Extract.Prefix,
	}

	fmt.Println("EXTRACTION BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Folder:     %s\n", *dir)
	fmt.Printf("Chunking:   chunk_size=%d max_tokens=%d row_limit=%d\n", opts.ChunkSize, opts.MaxTokens, opts.RowLimit)
	fmt.Println()

	var baseline time.Duration
	var last *domain.ChunkSet
	for _, n := range counts {
		uc := usecase.NewExtractUseCase(extractor.NewRegistry(cfg.Extract.MaxFileSize), walker, nil, n)

		start := time.Now()
		result, err := uc.ExtractDir(ctx, *dir, opts, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Extraction error: %v\n", err)
			os.Exit(1)
		}
		took := time.Since(start)
		if baseline == 0 {
			baseline = took
		}

		fmt.Printf("workers=%-3d %8s  docs=%-5d chunks=%-6d speedup=%.2fx\n",
			n, took.Round(time.Millisecond), result.FilesExtracted, result.ChunksCreated,
			float64(baseline)/float64(took))
		last = result.Set
	}

	if last == nil {
		return
	}

	fmt.Println(strings.Repeat("-", 70))
	printQuality(last)
}

func printQuality(set *domain.ChunkSet) {
	var chunks, errorChunks, failedDocs, totalLen int
	for _, name := range set.Names() {
		failed := false
		for _, c := range set.Documents[name] {
			chunks++
			totalLen += len([]rune(c.Text))
			if c.IsError {
				errorChunks++
				failed = true
			}
		}
		if failed {
			failedDocs++
		}
	}

	fmt.Printf("QUALITY METRICS:\n")
	fmt.Printf("  Documents:          %d (%d with errors, %d rejected)\n", len(set.Documents), failedDocs, len(set.Rejected))
	fmt.Printf("  Chunks:             %d (%d error chunks)\n", chunks, errorChunks)
	if chunks > 0 {
		fmt.Printf("  Avg chunk length:   %.0f chars\n", float64(totalLen)/float64(chunks))
	}

	switch {
	case len(set.Documents) == 0:
		fmt.Println("  Status: EMPTY - no supported documents found")
	case failedDocs == 0:
		fmt.Println("  Status: GOOD - every document extracted cleanly")
	default:
		fmt.Println("  Status: PARTIAL - some documents carry error chunks")
	}
}

func parseCounts(s string) ([]int, error) {
	var counts []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%q is not a positive integer", part)
		}
		counts = append(counts, n)
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("no worker counts given")
	}
	return counts, nil
}
