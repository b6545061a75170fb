package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"docrag/internal/domain"
)

// TextChunker splits a text blob by word count or character count.
// A positive maxTokens takes priority over chunkSize.
type TextChunker struct {
	chunkSize int
	maxTokens int
}

func NewTextChunker(chunkSize, maxTokens int) *TextChunker {
	return &TextChunker{
		chunkSize: chunkSize,
		maxTokens: maxTokens,
	}
}

// Span is a byte range [Start, End) of the text being chunked.
type Span struct {
	Start, End int
}

func (s Span) overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

type piece struct {
	text string
	span Span
}

// Split returns the ordered pieces of text. Empty text yields no pieces.
func (c *TextChunker) Split(text string) []string {
	pieces := c.split(text)
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.text
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c *TextChunker) split(text string) []piece {
	if text == "" {
		return nil
	}

	if c.maxTokens > 0 {
		return splitWords(text, c.maxTokens)
	}

	if c.chunkSize > 0 {
		return splitRunes(text, c.chunkSize)
	}

	return []piece{{text: text, span: Span{0, len(text)}}}
}

func (c *TextChunker) Chunk(doc domain.Document, content string) []domain.Chunk {
	return c.ChunkMarked(doc, content, nil)
}

// ChunkMarked chunks content and flags every chunk that covers part of one
// of the failed spans as an error chunk.
func (c *TextChunker) ChunkMarked(doc domain.Document, content string, failed []Span) []domain.Chunk {
	pieces := c.split(content)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, p := range pieces {
		chunk := newChunk(doc, i, p.text)
		for _, f := range failed {
			if p.span.overlaps(f) {
				chunk.IsError = true
				break
			}
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitWords regroups whitespace-separated words; the original spacing is
// not preserved.
func splitWords(text string, maxWords int) []piece {
	words := wordSpans(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]piece, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		parts := make([]string, 0, end-start)
		for _, w := range words[start:end] {
			parts = append(parts, text[w.Start:w.End])
		}
		chunks = append(chunks, piece{
			text: strings.Join(parts, " "),
			span: Span{words[start].Start, words[end-1].End},
		})
	}
	return chunks
}

// wordSpans locates the fields strings.Fields would return.
func wordSpans(text string) []Span {
	var spans []Span
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, Span{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, Span{start, len(text)})
	}
	return spans
}

// splitRunes cuts text into fixed-size character windows; the last window
// may be shorter.
func splitRunes(text string, size int) []piece {
	chunks := make([]piece, 0, (utf8.RuneCountInString(text)+size-1)/size)
	start, n := 0, 0
	for i := range text {
		if n == size {
			chunks = append(chunks, piece{text: text[start:i], span: Span{start, i}})
			start, n = i, 0
		}
		n++
	}
	chunks = append(chunks, piece{text: text[start:], span: Span{start, len(text)}})
	return chunks
}

func newChunk(doc domain.Document, index int, text string) domain.Chunk {
	return domain.Chunk{
		ID:      generateChunkID(doc.ID, doc.Name, index),
		DocID:   doc.ID,
		DocName: doc.Name,
		Index:   index,
		Text:    text,
	}
}

func generateChunkID(docID, docName string, index int) string {
	data := fmt.Sprintf("%s:%s:%d", docID, docName, index)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
