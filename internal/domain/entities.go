package domain

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Format is the closed set of document kinds the extractors understand.
type Format string

const (
	FormatPDF         Format = "pdf"
	FormatDOCX        Format = "docx"
	FormatPPTX        Format = "pptx"
	FormatXLSX        Format = "xlsx"
	FormatUnsupported Format = ""
)

// ErrUnsupportedFormat is returned for extensions outside the Format set.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// DetectFormat dispatches on the file extension, case-insensitively.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".pptx":
		return FormatPPTX
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatUnsupported
	}
}

// Kind is the upper-case label used in document-level diagnostics.
func (f Format) Kind() string {
	if f == FormatUnsupported {
		return "FILE"
	}
	return strings.ToUpper(string(f))
}

type Document struct {
	ID      string
	Name    string // display name, the ChunkSet key
	Path    string
	Format  Format
	Size    int64
	ModTime time.Time
}

// Unit is the outcome of extracting one page, slide, paragraph or table
// fragment: either content or a diagnostic, never both.
type Unit struct {
	Text       string
	Diagnostic string
}

func OK(text string) Unit { return Unit{Text: text} }

func Failed(diagnostic string) Unit { return Unit{Diagnostic: diagnostic} }

func (u Unit) IsErr() bool { return u.Diagnostic != "" }

// Render returns the content, or the diagnostic in place of it.
func (u Unit) Render() string {
	if u.IsErr() {
		return u.Diagnostic
	}
	return u.Text
}

// ExtractedText is the ordered output of one extractor run. Units follow
// page/slide/paragraph/sheet order. Err is set when the document could not
// be opened at all; Units is then empty.
type ExtractedText struct {
	Units []Unit
	Err   string
	// Prechunked marks units that are already final chunks (spreadsheet
	// markdown tables) and must bypass the text chunker.
	Prechunked bool
}

func (e ExtractedText) Failed() bool { return e.Err != "" }

// FailedUnits counts units that carry a diagnostic.
func (e ExtractedText) FailedUnits() int {
	n := 0
	for _, u := range e.Units {
		if u.IsErr() {
			n++
		}
	}
	return n
}

// Blob joins the non-empty rendered units with blank lines.
func (e ExtractedText) Blob() string {
	if e.Failed() {
		return e.Err
	}
	parts := make([]string, 0, len(e.Units))
	for _, u := range e.Units {
		if s := u.Render(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

type Chunk struct {
	ID      string `json:"id"`
	DocID   string `json:"doc_id"`
	DocName string `json:"doc_name"`
	Index   int    `json:"index"`
	Text    string `json:"text"`
	IsError bool   `json:"is_error,omitempty"`
}

// ChunkOptions are the caller-supplied chunking parameters.
type ChunkOptions struct {
	ChunkSize int    `json:"chunk_size"`
	MaxTokens int    `json:"max_tokens"`
	RowLimit  int    `json:"row_limit"`
	Prefix    string `json:"prefix"`
}

// SheetTable is one spreadsheet sheet; every row has len(Header) cells.
type SheetTable struct {
	Name   string
	Header []string
	Rows   [][]string
}

// ChunkSet maps document names to their ordered chunks.
type ChunkSet struct {
	Documents map[string][]Chunk `json:"documents"`
	Rejected  map[string]string  `json:"rejected,omitempty"`
}

func NewChunkSet() *ChunkSet {
	return &ChunkSet{
		Documents: make(map[string][]Chunk),
		Rejected:  make(map[string]string),
	}
}

func (s *ChunkSet) Put(name string, chunks []Chunk) {
	if chunks == nil {
		chunks = []Chunk{}
	}
	s.Documents[name] = chunks
}

func (s *ChunkSet) Reject(name, reason string) {
	s.Rejected[name] = reason
}

// Names returns the document names in sorted order.
func (s *ChunkSet) Names() []string {
	names := make([]string, 0, len(s.Documents))
	for name := range s.Documents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Texts flattens the set to name -> chunk texts, the wire shape of the HTTP API.
func (s *ChunkSet) Texts() map[string][]string {
	out := make(map[string][]string, len(s.Documents))
	for name, chunks := range s.Documents {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		out[name] = texts
	}
	return out
}

// TotalChunks counts chunks across all documents.
func (s *ChunkSet) TotalChunks() int {
	n := 0
	for _, chunks := range s.Documents {
		n += len(chunks)
	}
	return n
}

type Stats struct {
	TotalDocs   int     `json:"total_docs"`
	TotalChunks int     `json:"total_chunks"`
	AvgChunkLen float64 `json:"avg_chunk_len"`
}
