package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	a4Width  = 595.28
	a4Height = 841.89
)

func TestWrap(t *testing.T) {
	t.Run("keeps whitespace inside a line", func(t *testing.T) {
		assert.Equal(t, []string{"one  two"}, Wrap("one  two", 20))
		assert.Equal(t, []string{"  lead"}, Wrap("  lead", 20))
	})

	t.Run("maps newlines to spaces and expands tabs", func(t *testing.T) {
		assert.Equal(t, []string{"a b"}, Wrap("a\nb", 10))
		assert.Equal(t, []string{"a       b"}, Wrap("a\tb", 20))
	})

	t.Run("drops whitespace at a line break", func(t *testing.T) {
		assert.Equal(t, []string{"one two", "three"}, Wrap("one two   three", 7))
	})

	t.Run("breaks after hyphens inside words", func(t *testing.T) {
		assert.Equal(t, []string{"a well-", "known", "fact"}, Wrap("a well-known fact", 7))
	})

	t.Run("splits a long word at its last hyphen", func(t *testing.T) {
		assert.Equal(t, []string{"x-", "ray"}, Wrap("x-ray", 4))
	})

	t.Run("breaks between words at the width", func(t *testing.T) {
		assert.Equal(t, []string{"one two", "three four"}, Wrap("one two three four", 10))
	})

	t.Run("splits words longer than the width", func(t *testing.T) {
		assert.Equal(t, []string{"abcd", "efgh", "ij"}, Wrap("abcdefghij", 4))
	})

	t.Run("fills the current line before splitting a long word", func(t *testing.T) {
		assert.Equal(t, []string{"ab cd", "efghi", "j"}, Wrap("ab cdefghij", 5))
	})

	t.Run("returns nothing for blank text", func(t *testing.T) {
		assert.Empty(t, Wrap(" \n\t ", 10))
	})
}

func TestWrapWidth(t *testing.T) {
	r := NewTextPDFRenderer(Options{})
	assert.Equal(t, 75, r.WrapWidth(a4Width))
}

func TestLayout(t *testing.T) {
	t.Run("produces one blank page for no input", func(t *testing.T) {
		r := NewTextPDFRenderer(Options{})
		layout := r.Layout(nil, "doc", a4Width, a4Height)
		require.Len(t, layout, 1)
		assert.Empty(t, layout[0])
	})

	t.Run("prefixes each source page with the stem", func(t *testing.T) {
		r := NewTextPDFRenderer(Options{})
		layout := r.Layout([]string{"hello"}, "report", a4Width, a4Height)
		require.Len(t, layout, 1)
		assert.Equal(t, []string{"report: hello"}, layout[0])
	})

	t.Run("accumulates short pages until the buffer is full", func(t *testing.T) {
		r := NewTextPDFRenderer(Options{LinesPerChunk: 3})
		layout := r.Layout([]string{"p1", "p2", "p3", "p4"}, "d", a4Width, a4Height)
		require.Len(t, layout, 2)
		assert.Equal(t, []string{"d: p1", "d: p2", "d: p3"}, layout[0])
		assert.Equal(t, []string{"d: p4"}, layout[1])
	})

	t.Run("does not add a trailing page after the last flush", func(t *testing.T) {
		r := NewTextPDFRenderer(Options{LinesPerChunk: 2})
		layout := r.Layout([]string{"p1", "p2"}, "d", a4Width, a4Height)
		require.Len(t, layout, 1)
		assert.Equal(t, []string{"d: p1", "d: p2"}, layout[0])
	})

	t.Run("overflows onto new pages at the bottom margin", func(t *testing.T) {
		r := NewTextPDFRenderer(Options{})
		words := make([]string, 400)
		for i := range words {
			words[i] = "word"
		}
		layout := r.Layout([]string{strings.Join(words, " ")}, "d", a4Width, a4Height)
		require.Greater(t, len(layout), 1)

		// (841.89 - 50 - 50) / 15 rounds up to 50 lines per page
		assert.Len(t, layout[0], 50)
		total := 0
		for _, page := range layout {
			total += len(page)
		}
		assert.Equal(t, len(Wrap("d: "+strings.Join(words, " "), 75)), total)
	})
}

func TestTextPDFRenderer_Render(t *testing.T) {
	t.Run("writes a readable text-only PDF", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "nested")
		r := NewTextPDFRenderer(Options{LinesPerChunk: 1})

		path, err := r.Render(context.Background(), []string{"first page", "second page"}, out, "memo")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(out, "memo_text_only.pdf"), path)

		f, reader, err := pdf.Open(path)
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, 2, reader.NumPage())

		text, err := reader.Page(1).GetPlainText(nil)
		require.NoError(t, err)
		assert.Contains(t, text, "memo: first page")
	})

	t.Run("writes a valid PDF for empty input", func(t *testing.T) {
		r := NewTextPDFRenderer(Options{})
		path, err := r.Render(context.Background(), nil, t.TempDir(), "empty")
		require.NoError(t, err)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})

	t.Run("reports a missing font file", func(t *testing.T) {
		r := NewTextPDFRenderer(Options{FontPath: filepath.Join(t.TempDir(), "missing.ttf")})
		_, err := r.Render(context.Background(), []string{"x"}, t.TempDir(), "doc")
		assert.Error(t, err)
	})
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "a.b_text_only.pdf", OutputName("a.b"))
}
