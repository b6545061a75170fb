package chunker

import (
	"strings"

	"docrag/internal/domain"
)

// DefaultRowLimit is used when the configured row limit is not positive.
const DefaultRowLimit = 50

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// NewSheetTable builds a table from raw rows, the first being the header.
// Rows are padded to the widest row so every row matches the header width.
// ok is false when the sheet has no header or no data rows.
func NewSheetTable(name string, raw [][]string) (table domain.SheetTable, ok bool) {
	if len(raw) < 2 {
		return domain.SheetTable{}, false
	}

	width := 0
	for _, row := range raw {
		if len(row) > width {
			width = len(row)
		}
	}

	table = domain.SheetTable{
		Name:   name,
		Header: padRow(raw[0], width),
		Rows:   make([][]string, 0, len(raw)-1),
	}
	for _, row := range raw[1:] {
		table.Rows = append(table.Rows, padRow(row, width))
	}
	return table, true
}

func padRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

// SheetMarkdown renders a table as self-describing markdown chunks of at
// most rowLimit data rows, each repeating the sheet heading and header.
func SheetMarkdown(table domain.SheetTable, rowLimit int) []string {
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	if len(table.Rows) == 0 {
		return nil
	}

	heading := "## Sheet: " + table.Name + "\n"
	header := markdownRow(table.Header)
	separator := markdownRow(repeat("---", len(table.Header)))

	chunks := make([]string, 0, (len(table.Rows)+rowLimit-1)/rowLimit)
	for start := 0; start < len(table.Rows); start += rowLimit {
		end := start + rowLimit
		if end > len(table.Rows) {
			end = len(table.Rows)
		}

		lines := make([]string, 0, end-start+3)
		lines = append(lines, heading, header, separator)
		for _, row := range table.Rows[start:end] {
			lines = append(lines, markdownRow(row))
		}
		chunks = append(chunks, strings.Join(lines, "\n"))
	}
	return chunks
}

func markdownRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, cell := range cells {
		escaped[i] = cellEscaper.Replace(cell)
	}
	return "| " + strings.Join(escaped, " | ") + " |"
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}
