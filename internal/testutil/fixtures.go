// Package testutil writes small office and PDF fixtures for tests.
package testutil

import (
	"archive/zip"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// ZipEntry is one archive member; entries are written in slice order.
type ZipEntry struct {
	Name string
	Body string
}

func WriteZip(t testing.TB, path string, entries []ZipEntry) string {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			t.Fatalf("zip create %s: %v", e.Name, err)
		}
		if _, err := w.Write([]byte(e.Body)); err != nil {
			t.Fatalf("zip write %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return path
}

// WriteDocx writes a minimal .docx whose body holds one paragraph per entry.
func WriteDocx(t testing.TB, dir, name string, paragraphs []string) string {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		body.WriteString(html.EscapeString(p))
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	return WriteZip(t, filepath.Join(dir, name), []ZipEntry{
		{Name: "[Content_Types].xml", Body: `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{Name: "word/document.xml", Body: doc},
	})
}

// SlideXML renders a slide part holding one a:t run per text.
func SlideXML(texts ...string) string {
	var runs strings.Builder
	for _, s := range texts {
		runs.WriteString(`<p:sp><p:txBody><a:p><a:r><a:t>`)
		runs.WriteString(html.EscapeString(s))
		runs.WriteString(`</a:t></a:r></a:p></p:txBody></p:sp>`)
	}
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		`<p:cSld><p:spTree>` + runs.String() + `</p:spTree></p:cSld></p:sld>`
}

// WritePptx writes slide parts in the given entry order.
func WritePptx(t testing.TB, dir, name string, slides []ZipEntry) string {
	t.Helper()
	entries := append([]ZipEntry{
		{Name: "[Content_Types].xml", Body: `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{Name: "ppt/presentation.xml", Body: `<?xml version="1.0"?><p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"/>`},
	}, slides...)
	return WriteZip(t, filepath.Join(dir, name), entries)
}

// Sheet is a worksheet fixture; Rows[0] is the header.
type Sheet struct {
	Name string
	Rows [][]any
}

func WriteXlsx(t testing.TB, dir, name string, sheets []Sheet) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			t.Fatalf("new sheet %s: %v", sh.Name, err)
		}
		for r, row := range sh.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			values := row
			if err := f.SetSheetRow(sh.Name, cell, &values); err != nil {
				t.Fatalf("set row %d: %v", r+1, err)
			}
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}
	return path
}

// WritePDF writes one PDF page per entry; lines within an entry are split on "\n".
func WritePDF(t testing.TB, dir, name string, pages []string) string {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for _, page := range pages {
		pdf.AddPage()
		for _, line := range strings.Split(page, "\n") {
			pdf.Cell(0, 8, line)
			pdf.Ln(8)
		}
	}
	path := filepath.Join(dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("write pdf %s: %v", name, err)
	}
	return path
}

// WriteFile writes raw bytes, for corrupt-input fixtures.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// Lines builds n numbered lines, handy for multi-page fixtures.
func Lines(prefix string, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %d", prefix, i+1)
	}
	return strings.Join(out, "\n")
}
