package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/extractor"
	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/port"
)

// ProgressFunc is called after each document finishes.
type ProgressFunc func(processed, total int, currentFile string)

// ExtractUseCase turns batches of documents into a ChunkSet.
type ExtractUseCase struct {
	registry *extractor.Registry
	walker   port.FileWalker
	store    port.ChunkStore
	workers  int
}

// NewExtractUseCase wires an extraction batch. walker and store may be nil
// when only ExtractFiles is used; a nil store disables incremental runs.
func NewExtractUseCase(
	registry *extractor.Registry,
	walker port.FileWalker,
	store port.ChunkStore,
	workers int,
) *ExtractUseCase {
	if workers <= 0 {
		workers = 1
	}
	return &ExtractUseCase{
		registry: registry,
		walker:   walker,
		store:    store,
		workers:  workers,
	}
}

// ExtractResult contains the results of a folder extraction.
type ExtractResult struct {
	Set            *domain.ChunkSet
	FilesExtracted int
	FilesSkipped   int
	FilesDeleted   int
	ChunksCreated  int
	Errors         []string
}

// ExtractFiles extracts and chunks docs in parallel. Unsupported documents
// are rejected in the returned set. The only error is context cancellation.
func (u *ExtractUseCase) ExtractFiles(
	ctx context.Context,
	docs []domain.Document,
	opts domain.ChunkOptions,
	progress ProgressFunc,
) (*domain.ChunkSet, error) {
	set := domain.NewChunkSet()
	results := make([][]domain.Chunk, len(docs))
	accepted := make([]bool, len(docs))

	total := 0
	for i, doc := range docs {
		if u.registry.Supports(doc.Name) {
			accepted[i] = true
			total++
		} else {
			set.Reject(doc.Name, extractor.UnsupportedReason(doc.Name))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)
	var processed atomic.Int64

	for i, doc := range docs {
		if !accepted[i] {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		i, doc := i, doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = u.extractOne(gctx, doc, opts)
			if progress != nil {
				progress(int(processed.Add(1)), total, doc.Name)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, doc := range docs {
		if accepted[i] {
			set.Put(doc.Name, results[i])
		}
	}
	return set, nil
}

func (u *ExtractUseCase) extractOne(ctx context.Context, doc domain.Document, opts domain.ChunkOptions) []domain.Chunk {
	log := logger.FromContext(ctx)
	if doc.ID == "" {
		doc.ID = doc.Name
	}
	doc.Format = domain.DetectFormat(doc.Name)

	start := time.Now()
	et, err := u.registry.Extract(ctx, doc, opts)
	if err != nil {
		et = domain.ExtractedText{Err: err.Error()}
	}
	chunks := chunker.BuildChunks(doc, et, opts)

	if et.Failed() {
		log.Warn("document failed", "name", doc.Name, "error", et.Err)
	} else {
		log.Debug("document extracted",
			"name", doc.Name,
			"units", len(et.Units),
			"failed_units", et.FailedUnits(),
			"chunks", len(chunks),
			"took", time.Since(start),
		)
	}
	return chunks
}

// ExtractDir extracts every matching file under root. With a store, files
// whose size and modtime are unchanged reuse their stored chunks, changed
// files are re-extracted and saved, and documents whose files disappeared
// are deleted.
func (u *ExtractUseCase) ExtractDir(
	ctx context.Context,
	root string,
	opts domain.ChunkOptions,
	progress ProgressFunc,
) (*ExtractResult, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	docs := make([]domain.Document, len(files))
	for i, f := range files {
		docs[i] = domain.Document{
			ID:      f.RelPath,
			Name:    f.RelPath,
			Path:    f.Path,
			Format:  domain.DetectFormat(f.RelPath),
			Size:    f.Size,
			ModTime: time.Unix(f.ModTime, 0),
		}
	}

	if u.store == nil {
		set, err := u.ExtractFiles(ctx, docs, opts, progress)
		if err != nil {
			return nil, err
		}
		return &ExtractResult{
			Set:            set,
			FilesExtracted: len(set.Documents),
			ChunksCreated:  set.TotalChunks(),
		}, nil
	}
	return u.extractIncremental(ctx, docs, opts, progress)
}

func (u *ExtractUseCase) extractIncremental(
	ctx context.Context,
	docs []domain.Document,
	opts domain.ChunkOptions,
	progress ProgressFunc,
) (*ExtractResult, error) {
	log := logger.FromContext(ctx)
	result := &ExtractResult{}

	existingDocs, err := u.store.ListDocs()
	if err != nil {
		return nil, fmt.Errorf("failed to list existing docs: %w", err)
	}
	existing := make(map[string]domain.Document, len(existingDocs))
	for _, doc := range existingDocs {
		existing[doc.ID] = doc
	}

	seen := make(map[string]bool, len(docs))
	var pending, unchanged []domain.Document
	for _, doc := range docs {
		seen[doc.ID] = true
		if prev, ok := existing[doc.ID]; ok && prev.Size == doc.Size && prev.ModTime.Unix() >= doc.ModTime.Unix() {
			unchanged = append(unchanged, doc)
			continue
		}
		pending = append(pending, doc)
	}

	set, err := u.ExtractFiles(ctx, pending, opts, progress)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Document, len(pending))
	for _, doc := range pending {
		byID[doc.ID] = doc
	}
	for _, name := range set.Names() {
		doc := byID[name]
		chunks := set.Documents[name]
		if err := u.store.PutDocument(doc, chunks); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to store %s: %v", name, err))
			continue
		}
		result.FilesExtracted++
		result.ChunksCreated += len(chunks)
	}

	for _, doc := range unchanged {
		chunks, err := u.store.GetChunksByDoc(doc.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to load %s: %v", doc.Name, err))
			continue
		}
		set.Put(doc.Name, chunks)
		result.FilesSkipped++
	}

	for id := range existing {
		if seen[id] {
			continue
		}
		if err := u.store.DeleteDoc(id); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to delete %s: %v", id, err))
			continue
		}
		log.Info("removed stale document", "id", id)
		result.FilesDeleted++
	}

	if err := u.store.UpdateStats(statsOf(set)); err != nil {
		return nil, fmt.Errorf("failed to update stats: %w", err)
	}

	result.Set = set
	return result, nil
}

func statsOf(set *domain.ChunkSet) domain.Stats {
	stats := domain.Stats{TotalDocs: len(set.Documents)}
	totalLen := 0
	for _, chunks := range set.Documents {
		for _, c := range chunks {
			stats.TotalChunks++
			totalLen += len(c.Text)
		}
	}
	if stats.TotalChunks > 0 {
		stats.AvgChunkLen = float64(totalLen) / float64(stats.TotalChunks)
	}
	return stats
}
