package port

import (
	"context"

	"docrag/internal/domain"
)

// Extractor turns one document into ordered units. Failures are reported
// inside the returned ExtractedText, never as a Go error.
type Extractor interface {
	Extract(ctx context.Context, doc domain.Document, opts domain.ChunkOptions) domain.ExtractedText
}

// PageExtractor returns per-page PDF text, empty pages kept.
type PageExtractor interface {
	Pages(ctx context.Context, path string) ([]string, error)
}
