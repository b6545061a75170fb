package pdfmerge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/testutil"
)

func TestMerger_Merge(t *testing.T) {
	t.Run("concatenates pages in input order", func(t *testing.T) {
		dir := t.TempDir()
		a := testutil.WritePDF(t, dir, "a.pdf", []string{"a1", "a2"})
		b := testutil.WritePDF(t, dir, "b.pdf", []string{"b1"})

		out := filepath.Join(dir, "out", "merged.pdf")
		got, err := NewMerger().Merge(context.Background(), []string{a, b}, out)
		require.NoError(t, err)
		assert.Equal(t, out, got)

		n, err := api.PageCountFile(out)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("rejects an empty input list", func(t *testing.T) {
		_, err := NewMerger().Merge(context.Background(), nil, filepath.Join(t.TempDir(), "m.pdf"))
		assert.ErrorIs(t, err, ErrNoInputs)
	})

	t.Run("fails on a missing input", func(t *testing.T) {
		dir := t.TempDir()
		_, err := NewMerger().Merge(context.Background(), []string{filepath.Join(dir, "nope.pdf")}, filepath.Join(dir, "m.pdf"))
		assert.Error(t, err)
	})

	t.Run("stops on a cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		a := testutil.WritePDF(t, dir, "a.pdf", []string{"a1"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewMerger().Merge(ctx, []string{a}, filepath.Join(dir, "m.pdf"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
