package extractor

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"docrag/internal/adapter/chunker"
	"docrag/internal/domain"
)

// XlsxExtractor transcodes every sheet into markdown table chunks. Formula
// cells contribute their cached values.
type XlsxExtractor struct{}

func NewXlsxExtractor() *XlsxExtractor {
	return &XlsxExtractor{}
}

func (e *XlsxExtractor) Extract(ctx context.Context, doc domain.Document, opts domain.ChunkOptions) domain.ExtractedText {
	tables, sheetErrs, err := readSheetTables(ctx, doc.Path)
	if err != nil {
		return documentError(doc, err)
	}

	var units []domain.Unit
	for _, st := range tables {
		if diag, failed := sheetErrs[st.Name]; failed {
			units = append(units, domain.Failed(diag))
			continue
		}
		for _, md := range chunker.SheetMarkdown(st, opts.RowLimit) {
			units = append(units, domain.OK(md))
		}
	}
	return domain.ExtractedText{Units: units, Prechunked: true}
}

// readSheetTables returns the sheets in workbook order. Sheets without data
// rows are dropped; a sheet that fails to read keeps its slot with an entry
// in the returned diagnostics map.
func readSheetTables(ctx context.Context, path string) ([]domain.SheetTable, map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var tables []domain.SheetTable
	diagnostics := make(map[string]string)
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rows, err := f.GetRows(name)
		if err != nil {
			diagnostics[name] = fmt.Sprintf("[error reading sheet %s: %v]", name, err)
			tables = append(tables, domain.SheetTable{Name: name})
			continue
		}
		for i, row := range rows {
			for j, cell := range row {
				rows[i][j] = normalize(cell)
			}
		}
		table, ok := chunker.NewSheetTable(name, rows)
		if !ok {
			continue
		}
		tables = append(tables, table)
	}
	return tables, diagnostics, nil
}
