package chunker

import (
	"strings"

	"docrag/internal/domain"
)

// BuildChunks turns one document's extraction into its final chunk
// sequence: a document-level failure becomes a single error chunk,
// pre-chunked units pass through one-to-one, and text is split according
// to opts with any chunk touching a failed page or slide flagged as an
// error. The prefix, if any, is applied last.
func BuildChunks(doc domain.Document, et domain.ExtractedText, opts domain.ChunkOptions) []domain.Chunk {
	var chunks []domain.Chunk

	switch {
	case et.Failed():
		c := newChunk(doc, 0, et.Err)
		c.IsError = true
		chunks = []domain.Chunk{c}

	case et.Prechunked:
		chunks = make([]domain.Chunk, 0, len(et.Units))
		for _, u := range et.Units {
			c := newChunk(doc, len(chunks), u.Render())
			c.IsError = u.IsErr()
			chunks = append(chunks, c)
		}

	default:
		blob, failed := joinUnits(et.Units)
		chunks = NewTextChunker(opts.ChunkSize, opts.MaxTokens).ChunkMarked(doc, blob, failed)
	}

	ApplyPrefix(opts.Prefix, chunks)
	return chunks
}

// joinUnits builds the same text as ExtractedText.Blob and records where
// each diagnostic landed in it.
func joinUnits(units []domain.Unit) (string, []Span) {
	var b strings.Builder
	var failed []Span
	for _, u := range units {
		text := u.Render()
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if u.IsErr() {
			failed = append(failed, Span{b.Len(), b.Len() + len(text)})
		}
		b.WriteString(text)
	}
	return b.String(), failed
}
