package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/extractor"
	"docrag/internal/adapter/fs"
	"docrag/internal/adapter/store"
	"docrag/internal/domain"
	"docrag/internal/testutil"
)

func docFor(path string) domain.Document {
	name := filepath.Base(path)
	return domain.Document{ID: name, Name: name, Path: path, Format: domain.DetectFormat(name)}
}

func writeMixedBatch(t *testing.T, dir string) []domain.Document {
	t.Helper()
	paths := []string{
		testutil.WriteDocx(t, dir, "memo.docx", []string{"Quarterly memo", "Revenue grew"}),
		testutil.WritePptx(t, dir, "deck.pptx", []testutil.ZipEntry{
			{Name: "ppt/slides/slide1.xml", Body: testutil.SlideXML("Agenda")},
			{Name: "ppt/slides/slide2.xml", Body: testutil.SlideXML("Results", "Next steps")},
		}),
		testutil.WriteXlsx(t, dir, "data.xlsx", []testutil.Sheet{
			{Name: "People", Rows: [][]any{{"Name", "Age"}, {"Ann", 31}}},
		}),
		testutil.WriteFile(t, dir, "broken.pdf", "not a pdf"),
		testutil.WriteFile(t, dir, "notes.txt", "plain text"),
	}
	docs := make([]domain.Document, len(paths))
	for i, p := range paths {
		docs[i] = docFor(p)
	}
	return docs
}

func TestExtractUseCase_ExtractFiles(t *testing.T) {
	t.Run("chunks every supported document and rejects the rest", func(t *testing.T) {
		docs := writeMixedBatch(t, t.TempDir())
		uc := NewExtractUseCase(extractor.NewRegistry(0), nil, nil, 4)

		set, err := uc.ExtractFiles(context.Background(), docs, domain.ChunkOptions{}, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"broken.pdf", "data.xlsx", "deck.pptx", "memo.docx"}, set.Names())
		assert.Equal(t, map[string]string{"notes.txt": "unsupported file type: .txt"}, set.Rejected)

		memo := set.Documents["memo.docx"]
		require.Len(t, memo, 1)
		assert.Equal(t, "Quarterly memo\n\nRevenue grew", memo[0].Text)

		deck := set.Documents["deck.pptx"]
		require.Len(t, deck, 1)
		assert.Equal(t, "Agenda\n\nResults\nNext steps", deck[0].Text)

		data := set.Documents["data.xlsx"]
		require.Len(t, data, 1)
		assert.Equal(t, "## Sheet: People\n\n| Name | Age |\n| --- | --- |\n| Ann | 31 |", data[0].Text)

		broken := set.Documents["broken.pdf"]
		require.Len(t, broken, 1)
		assert.True(t, broken[0].IsError)
		assert.True(t, strings.HasPrefix(broken[0].Text, "Error reading PDF broken.pdf:"))
	})

	t.Run("applies chunking options and prefix to every document", func(t *testing.T) {
		dir := t.TempDir()
		docs := []domain.Document{
			docFor(testutil.WriteDocx(t, dir, "a.docx", []string{"one two three four five"})),
			docFor(testutil.WriteFile(t, dir, "b.pdf", "garbage")),
		}
		uc := NewExtractUseCase(extractor.NewRegistry(0), nil, nil, 2)

		set, err := uc.ExtractFiles(context.Background(), docs, domain.ChunkOptions{MaxTokens: 2, Prefix: "[ctx]"}, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"[ctx] one two", "[ctx] three four", "[ctx] five"}, set.Texts()["a.docx"])
		require.Len(t, set.Documents["b.pdf"], 1)
		assert.True(t, strings.HasPrefix(set.Documents["b.pdf"][0].Text, "[ctx] Error reading PDF b.pdf"))
	})

	t.Run("assembles the same set regardless of worker count", func(t *testing.T) {
		docs := writeMixedBatch(t, t.TempDir())
		opts := domain.ChunkOptions{ChunkSize: 7}

		serial, err := NewExtractUseCase(extractor.NewRegistry(0), nil, nil, 1).
			ExtractFiles(context.Background(), docs, opts, nil)
		require.NoError(t, err)
		parallel, err := NewExtractUseCase(extractor.NewRegistry(0), nil, nil, 8).
			ExtractFiles(context.Background(), docs, opts, nil)
		require.NoError(t, err)

		assert.Equal(t, serial, parallel)
	})

	t.Run("reports progress once per supported document", func(t *testing.T) {
		docs := writeMixedBatch(t, t.TempDir())
		var mu sync.Mutex
		var seen []string
		progress := func(processed, total int, name string) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 4, total)
			seen = append(seen, name)
		}

		_, err := NewExtractUseCase(extractor.NewRegistry(0), nil, nil, 3).
			ExtractFiles(context.Background(), docs, domain.ChunkOptions{}, progress)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"memo.docx", "deck.pptx", "data.xlsx", "broken.pdf"}, seen)
	})

	t.Run("returns an empty set for no input", func(t *testing.T) {
		set, err := NewExtractUseCase(extractor.NewRegistry(0), nil, nil, 2).
			ExtractFiles(context.Background(), nil, domain.ChunkOptions{}, nil)
		require.NoError(t, err)
		assert.Empty(t, set.Documents)
		assert.Empty(t, set.Rejected)
	})

	t.Run("stops on a cancelled context", func(t *testing.T) {
		docs := writeMixedBatch(t, t.TempDir())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewExtractUseCase(extractor.NewRegistry(0), nil, nil, 2).
			ExtractFiles(ctx, docs, domain.ChunkOptions{}, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExtractUseCase_ExtractDir(t *testing.T) {
	walker := fs.NewWalker([]string{"**/*.docx", "**/*.pptx", "**/*.xlsx", "**/*.pdf"}, []string{".docrag/**"})

	t.Run("extracts a folder without a store", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
		testutil.WriteDocx(t, dir, "a.docx", []string{"alpha"})
		testutil.WriteDocx(t, dir, "sub/b.docx", []string{"beta"})
		testutil.WriteFile(t, dir, "skip.txt", "ignored by includes")

		uc := NewExtractUseCase(extractor.NewRegistry(0), walker, nil, 2)
		result, err := uc.ExtractDir(context.Background(), dir, domain.ChunkOptions{}, nil)
		require.NoError(t, err)

		assert.Equal(t, 2, result.FilesExtracted)
		assert.Equal(t, 2, result.ChunksCreated)
		assert.Equal(t, []string{"a.docx", "sub/b.docx"}, result.Set.Names())
	})

	t.Run("skips unchanged files and drops removed ones with a store", func(t *testing.T) {
		dir := t.TempDir()
		a := testutil.WriteDocx(t, dir, "a.docx", []string{"alpha"})
		b := testutil.WriteDocx(t, dir, "b.docx", []string{"beta"})

		st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "chunks.db"))
		require.NoError(t, err)
		defer st.Close()
		uc := NewExtractUseCase(extractor.NewRegistry(0), walker, st, 2)
		ctx := context.Background()

		first, err := uc.ExtractDir(ctx, dir, domain.ChunkOptions{}, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, first.FilesExtracted)
		assert.Empty(t, first.Errors)

		second, err := uc.ExtractDir(ctx, dir, domain.ChunkOptions{}, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, second.FilesExtracted)
		assert.Equal(t, 2, second.FilesSkipped)
		assert.Equal(t, first.Set.Texts(), second.Set.Texts())

		testutil.WriteDocx(t, dir, "a.docx", []string{"alpha changed with more words"})
		later := time.Now().Add(time.Hour)
		require.NoError(t, os.Chtimes(a, later, later))
		require.NoError(t, os.Remove(b))

		third, err := uc.ExtractDir(ctx, dir, domain.ChunkOptions{}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, third.FilesExtracted)
		assert.Equal(t, 1, third.FilesDeleted)
		assert.Equal(t, []string{"alpha changed with more words"}, third.Set.Texts()["a.docx"])

		docs, err := st.ListDocs()
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "a.docx", docs[0].ID)

		stats, err := st.GetStats()
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalDocs)
	})

	t.Run("fails for a missing folder", func(t *testing.T) {
		uc := NewExtractUseCase(extractor.NewRegistry(0), walker, nil, 1)
		_, err := uc.ExtractDir(context.Background(), filepath.Join(t.TempDir(), "missing"), domain.ChunkOptions{}, nil)
		assert.Error(t, err)
	})
}
