// Package extractor maps documents to ordered text units, one extractor per
// supported format. Extractors never fail with a Go error: a page, slide or
// sheet that cannot be read becomes a diagnostic unit, and a document that
// cannot be opened becomes a document-level diagnostic.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/port"
)

// Registry dispatches documents to the extractor bound to their format.
type Registry struct {
	extractors  map[domain.Format]port.Extractor
	maxFileSize int64
}

// NewRegistry returns a registry with the PDF, DOCX, PPTX and XLSX extractors.
// A maxFileSize of zero disables the size check.
func NewRegistry(maxFileSize int64) *Registry {
	r := &Registry{
		extractors:  make(map[domain.Format]port.Extractor),
		maxFileSize: maxFileSize,
	}
	r.Register(domain.FormatPDF, NewPDFExtractor())
	r.Register(domain.FormatDOCX, NewDocxExtractor())
	r.Register(domain.FormatPPTX, NewPptxExtractor())
	r.Register(domain.FormatXLSX, NewXlsxExtractor())
	return r
}

func (r *Registry) Register(format domain.Format, e port.Extractor) {
	r.extractors[format] = e
}

// Supports reports whether a document name has a registered extractor.
func (r *Registry) Supports(name string) bool {
	_, ok := r.extractors[domain.DetectFormat(name)]
	return ok
}

// Extract runs the extractor for doc.Format. The only error returned is
// domain.ErrUnsupportedFormat; every other failure is carried as data.
func (r *Registry) Extract(ctx context.Context, doc domain.Document, opts domain.ChunkOptions) (domain.ExtractedText, error) {
	if doc.Format == domain.FormatUnsupported {
		doc.Format = domain.DetectFormat(doc.Name)
	}
	e, ok := r.extractors[doc.Format]
	if !ok {
		return domain.ExtractedText{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, extOf(doc.Name))
	}

	if r.maxFileSize > 0 {
		info, err := os.Stat(doc.Path)
		if err != nil {
			return documentError(doc, err), nil
		}
		if info.Size() > r.maxFileSize {
			return documentError(doc, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), r.maxFileSize)), nil
		}
	}

	logger.FromContext(ctx).Debug("extracting document", "name", doc.Name, "format", doc.Format)
	return e.Extract(ctx, doc, opts), nil
}

// UnsupportedReason is the per-file rejection message for a name.
func UnsupportedReason(name string) string {
	return fmt.Sprintf("%s: %s", domain.ErrUnsupportedFormat, extOf(name))
}

func extOf(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "(none)"
	}
	return ext
}

func documentError(doc domain.Document, err error) domain.ExtractedText {
	name := doc.Name
	if name == "" {
		name = filepath.Base(doc.Path)
	}
	return domain.ExtractedText{Err: fmt.Sprintf("Error reading %s %s: %v", doc.Format.Kind(), name, err)}
}

// normalize composes decomposed sequences so that diacritics extracted from
// PDFs and XML parts compare and count like typed text.
func normalize(s string) string {
	return norm.NFC.String(s)
}
