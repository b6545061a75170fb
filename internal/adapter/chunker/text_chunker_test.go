package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

func TestTextChunkerByWords(t *testing.T) {
	text := "one two  three\nfour\tfive six seven"
	chunker := NewTextChunker(0, 3)

	chunks := chunker.Split(text)

	require.Len(t, chunks, 3) // ceil(7/3)
	assert.Equal(t, []string{"one two three", "four five six", "seven"}, chunks)
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
}

func TestTextChunkerByWords_Property(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 41) + "tail"
	words := strings.Fields(text)

	for _, w := range []int{1, 2, 7, 50, 1000} {
		chunks := NewTextChunker(0, w).Split(text)

		assert.Len(t, chunks, (len(words)+w-1)/w, "w=%d", w)
		var rejoined []string
		for _, c := range chunks {
			cw := strings.Fields(c)
			assert.LessOrEqual(t, len(cw), w)
			rejoined = append(rejoined, cw...)
		}
		assert.Equal(t, words, rejoined, "w=%d", w)
	}
}

func TestTextChunkerByChars(t *testing.T) {
	text := "abcdefghij"
	chunks := NewTextChunker(4, 0).Split(text)

	assert.Equal(t, []string{"abcd", "efgh", "ij"}, chunks)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestTextChunkerByChars_Property(t *testing.T) {
	text := "Tiếng Việt có dấu, mixed with ASCII words and punctuation!\n" + strings.Repeat("xyz ", 33)
	n := utf8.RuneCountInString(text)

	for _, c := range []int{1, 3, 10, 64, 5000} {
		chunks := NewTextChunker(c, 0).Split(text)

		assert.Len(t, chunks, (n+c-1)/c, "c=%d", c)
		for _, chunk := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(chunk), c)
			assert.True(t, utf8.ValidString(chunk))
		}
		assert.Equal(t, text, strings.Join(chunks, ""), "c=%d", c)
	}
}

func TestTextChunkerWordsWinOverChars(t *testing.T) {
	text := "alpha beta gamma delta"
	chunks := NewTextChunker(3, 2).Split(text)

	assert.Equal(t, []string{"alpha beta", "gamma delta"}, chunks)
}

func TestTextChunkerUnbounded(t *testing.T) {
	text := "  keep   the original\n\nspacing  "
	assert.Equal(t, []string{text}, NewTextChunker(0, 0).Split(text))
}

func TestTextChunkerEmpty(t *testing.T) {
	for _, c := range []*TextChunker{
		NewTextChunker(0, 0),
		NewTextChunker(10, 0),
		NewTextChunker(0, 10),
		NewTextChunker(10, 10),
	} {
		assert.Empty(t, c.Split(""))
	}
}

func TestTextChunkerWhitespaceOnlyByWords(t *testing.T) {
	assert.Empty(t, NewTextChunker(0, 5).Split(" \n\t "))
}

func TestTextChunkerChunkMetadata(t *testing.T) {
	doc := domain.Document{ID: "doc1", Name: "report.pdf"}
	chunks := NewTextChunker(0, 2).Chunk(doc, "a b c d e")

	require.Len(t, chunks, 3)
	ids := make(map[string]bool)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, "doc1", c.DocID)
		assert.Equal(t, "report.pdf", c.DocName)
		assert.False(t, c.IsError)
		assert.NotEmpty(t, c.ID)
		assert.False(t, ids[c.ID], "duplicate chunk ID %s", c.ID)
		ids[c.ID] = true
	}
}
