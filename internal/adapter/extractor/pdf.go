package extractor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"docrag/internal/domain"
)

type pageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

type pdfReaderSource struct {
	r *pdf.Reader
}

func (s pdfReaderSource) NumPage() int { return s.r.NumPage() }

// PageText reads one page; the parser panics on some malformed content
// streams, which is turned into an error for that page only.
func (s pdfReaderSource) PageText(n int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()
	page := s.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// PDFExtractor reads page text with ledongthuc/pdf.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Extract(ctx context.Context, doc domain.Document, _ domain.ChunkOptions) domain.ExtractedText {
	units, err := e.pageUnits(ctx, doc.Path)
	if err != nil {
		return documentError(doc, err)
	}
	return domain.ExtractedText{Units: units}
}

// Pages returns one string per page, empty pages included, with failed
// pages replaced by their inline marker.
func (e *PDFExtractor) Pages(ctx context.Context, path string) ([]string, error) {
	units, err := e.pageUnits(ctx, path)
	if err != nil {
		return nil, err
	}
	pages := make([]string, len(units))
	for i, u := range units {
		pages[i] = u.Render()
	}
	return pages, nil
}

func (e *PDFExtractor) pageUnits(ctx context.Context, path string) ([]domain.Unit, error) {
	f, r, err := openPDF(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return collectPages(ctx, pdfReaderSource{r: r}), nil
}

func openPDF(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("malformed pdf: %v", p)
		}
	}()
	return pdf.Open(path)
}

func collectPages(ctx context.Context, src pageSource) []domain.Unit {
	n := src.NumPage()
	units := make([]domain.Unit, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			units = append(units, domain.Failed(fmt.Sprintf("[error reading page %d: %v]", i, err)))
			continue
		}
		text, err := src.PageText(i)
		if err != nil {
			units = append(units, domain.Failed(fmt.Sprintf("[error reading page %d: %v]", i, err)))
			continue
		}
		units = append(units, domain.OK(strings.TrimSpace(normalize(text))))
	}
	return units
}
