package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSheetTable_PadsRows(t *testing.T) {
	table, ok := NewSheetTable("Data", [][]string{
		{"Name", "Age"},
		{"Ann"},
		{"Bob", "40", "extra"},
		{},
	})
	require.True(t, ok)

	assert.Equal(t, []string{"Name", "Age", ""}, table.Header)
	for _, row := range table.Rows {
		assert.Len(t, row, len(table.Header))
	}
	assert.Equal(t, []string{"Ann", "", ""}, table.Rows[0])
}

func TestNewSheetTable_SkipsEmpty(t *testing.T) {
	_, ok := NewSheetTable("Empty", nil)
	assert.False(t, ok)

	_, ok = NewSheetTable("HeaderOnly", [][]string{{"Name", "Age"}})
	assert.False(t, ok)
}

func TestSheetMarkdown_RowLimitChunks(t *testing.T) {
	raw := [][]string{{"Name", "Age"}}
	for i := 0; i < 120; i++ {
		raw = append(raw, []string{fmt.Sprintf("person%d", i), fmt.Sprint(20 + i%50)})
	}
	table, ok := NewSheetTable("People", raw)
	require.True(t, ok)

	chunks := SheetMarkdown(table, 50)
	require.Len(t, chunks, 3)

	for i, want := range []int{50, 50, 20} {
		lines := strings.Split(chunks[i], "\n")
		require.GreaterOrEqual(t, len(lines), 4)
		assert.Equal(t, "## Sheet: People", lines[0])
		assert.Equal(t, "", lines[1])
		assert.Equal(t, "| Name | Age |", lines[2])
		assert.Equal(t, "| --- | --- |", lines[3])
		dataRows := lines[4:]
		assert.Len(t, dataRows, want)
		for _, row := range dataRows {
			assert.Equal(t, 3, strings.Count(row, " | ")+2, row) // k cells -> k+1 pipes
		}
	}
	assert.True(t, strings.HasSuffix(chunks[2], "| person119 | 39 |"))
}

func TestSheetMarkdown_ChunkCountProperty(t *testing.T) {
	for _, tc := range []struct{ rows, limit, want int }{
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{10, 3, 4},
		{7, 0, 1},  // non-positive falls back to 50
		{75, -1, 2},
	} {
		raw := [][]string{{"a", "b", "c"}}
		for i := 0; i < tc.rows; i++ {
			raw = append(raw, []string{"x"})
		}
		table, ok := NewSheetTable("S", raw)
		require.True(t, ok)

		chunks := SheetMarkdown(table, tc.limit)
		assert.Len(t, chunks, tc.want, "rows=%d limit=%d", tc.rows, tc.limit)
		for _, c := range chunks {
			lines := strings.Split(c, "\n")
			assert.Equal(t, "| --- | --- | --- |", lines[3])
			for _, row := range lines[4:] {
				assert.Equal(t, "| x |  |  |", row)
			}
		}
	}
}

func TestSheetMarkdown_EscapesCells(t *testing.T) {
	table, ok := NewSheetTable("S", [][]string{{"col"}, {"a|b\nc"}})
	require.True(t, ok)

	chunks := SheetMarkdown(table, 10)
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasSuffix(chunks[0], `| a\|b c |`))
}
