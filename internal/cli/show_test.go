package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/config"
	"docrag/internal/testutil"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	return rootCmd.ExecuteContext(context.Background())
}

func TestShow_ReadsStoreOfExtractedFolder(t *testing.T) {
	docs := t.TempDir()
	testutil.WriteDocx(t, docs, "memo.docx", []string{"hello world"})
	out := filepath.Join(t.TempDir(), "chunks.json")

	require.NoError(t, execute(t, "extract", docs, "--save", "--quiet", "-o", out))
	require.FileExists(t, config.StoreDBPath(docs))

	assert.NoError(t, execute(t, "show", "--folder", docs, "--json"))
	assert.NoError(t, execute(t, "show", "--folder", docs, "--json", "memo.docx"))
}

func TestShow_MissingStore(t *testing.T) {
	empty := t.TempDir()

	err := execute(t, "show", "--folder", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chunk store found in "+empty)
}
