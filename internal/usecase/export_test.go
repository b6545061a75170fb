package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/extractor"
	"docrag/internal/adapter/pdfmerge"
	"docrag/internal/adapter/render"
	"docrag/internal/testutil"
)

// stubConverter writes a one-page PDF per configured stem.
type stubConverter struct {
	t     *testing.T
	stems []string
	err   error
}

func (c *stubConverter) ConvertFolder(_ context.Context, _, outputDir string) ([]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []string
	for _, stem := range c.stems {
		out = append(out, testutil.WritePDF(c.t, mkdir(c.t, outputDir), stem+".pdf", []string{"converted " + stem}))
	}
	return out, nil
}

func mkdir(t *testing.T, dir string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}

func newExport(t *testing.T, conv *stubConverter) *ExportUseCase {
	return NewExportUseCase(
		extractor.NewPDFExtractor(),
		render.NewTextPDFRenderer(render.Options{}),
		pdfmerge.NewMerger(),
		conv,
	)
}

func TestExportUseCase_ExportFolder(t *testing.T) {
	t.Run("renders each PDF and records unreadable ones", func(t *testing.T) {
		src := t.TempDir()
		testutil.WritePDF(t, src, "b.pdf", []string{"page one", "page two"})
		testutil.WritePDF(t, src, "a.pdf", []string{"only page"})
		testutil.WriteFile(t, src, "c.pdf", "not a pdf")
		testutil.WriteFile(t, src, "notes.txt", "ignored")
		out := filepath.Join(t.TempDir(), "out")

		result, err := newExport(t, &stubConverter{t: t}).ExportFolder(context.Background(), src, out, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{
			filepath.Join(out, "a_text_only.pdf"),
			filepath.Join(out, "b_text_only.pdf"),
		}, result.Outputs)
		assert.Contains(t, result.Failed, "c.pdf")
	})

	t.Run("fails for a missing folder", func(t *testing.T) {
		_, err := newExport(t, &stubConverter{t: t}).
			ExportFolder(context.Background(), filepath.Join(t.TempDir(), "missing"), t.TempDir(), nil)
		assert.Error(t, err)
	})
}

func TestExportUseCase_MergeTextOnly(t *testing.T) {
	t.Run("merges only text-only PDFs", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WritePDF(t, dir, "a_text_only.pdf", []string{"a"})
		testutil.WritePDF(t, dir, "b_text_only.pdf", []string{"b1", "b2"})
		testutil.WritePDF(t, dir, "original.pdf", []string{"x"})
		output := filepath.Join(t.TempDir(), "merged.pdf")

		merged, inputs, err := newExport(t, &stubConverter{t: t}).MergeTextOnly(context.Background(), dir, output)
		require.NoError(t, err)
		assert.Equal(t, output, merged)
		assert.Len(t, inputs, 2)

		n, err := api.PageCountFile(merged)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("reports when there is nothing to merge", func(t *testing.T) {
		_, _, err := newExport(t, &stubConverter{t: t}).
			MergeTextOnly(context.Background(), t.TempDir(), filepath.Join(t.TempDir(), "m.pdf"))
		assert.ErrorIs(t, err, pdfmerge.ErrNoInputs)
	})
}

func TestExportUseCase_ConvertAndMerge(t *testing.T) {
	t.Run("merges converted PDFs", func(t *testing.T) {
		out := t.TempDir()
		result, err := newExport(t, &stubConverter{t: t, stems: []string{"deck", "memo"}}).
			ConvertAndMerge(context.Background(), t.TempDir(), out, "merged.pdf")
		require.NoError(t, err)
		assert.Len(t, result.PDFs, 2)
		assert.Equal(t, filepath.Join(out, "merged.pdf"), result.Merged)
	})

	t.Run("skips merging when nothing was converted", func(t *testing.T) {
		result, err := newExport(t, &stubConverter{t: t}).
			ConvertAndMerge(context.Background(), t.TempDir(), t.TempDir(), "merged.pdf")
		require.NoError(t, err)
		assert.Empty(t, result.PDFs)
		assert.Empty(t, result.Merged)
	})

	t.Run("propagates conversion failures", func(t *testing.T) {
		boom := errors.New("soffice missing")
		_, err := newExport(t, &stubConverter{t: t, err: boom}).
			ConvertAndMerge(context.Background(), t.TempDir(), t.TempDir(), "merged.pdf")
		assert.ErrorIs(t, err, boom)
	})
}

func TestExportUseCase_Bundle(t *testing.T) {
	t.Run("zips the merged file and each text-only PDF", func(t *testing.T) {
		src := t.TempDir()
		testutil.WritePDF(t, src, "report.pdf", []string{"quarterly numbers"})

		var buf bytes.Buffer
		result, err := newExport(t, &stubConverter{t: t, stems: []string{"deck"}}).
			Bundle(context.Background(), src, t.TempDir(), &buf)
		require.NoError(t, err)
		assert.Len(t, result.Outputs, 2)

		zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		require.NoError(t, err)
		var names []string
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		sort.Strings(names)
		assert.Equal(t, []string{
			"merged_text_only.pdf",
			"text_only_pdfs/deck_text_only.pdf",
			"text_only_pdfs/report_text_only.pdf",
		}, names)
	})

	t.Run("fails when the folder has nothing to export", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := newExport(t, &stubConverter{t: t}).Bundle(context.Background(), t.TempDir(), t.TempDir(), &buf)
		assert.ErrorIs(t, err, ErrNothingToExport)
		assert.Zero(t, buf.Len())
	})
}
