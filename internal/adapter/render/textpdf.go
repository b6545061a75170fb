// Package render lays extracted page text back out into a text-only PDF.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"

	"docrag/internal/logger"
)

const (
	defaultLinesPerChunk = 10
	defaultFontSize      = 11.0
	defaultMargin        = 50.0
	lineSpacing          = 4.0 // points added to the font size per line
	tabSize              = 8
	charWidthFactor      = 0.6 // average glyph width relative to font size
	utf8FontName         = "docrag-body"
)

type Options struct {
	LinesPerChunk int
	FontSize      float64
	FontFamily    string
	FontPath      string // optional TrueType font for non-Latin text
	Margin        float64
}

// TextPDFRenderer writes "<stem>_text_only.pdf" files on A4 pages.
type TextPDFRenderer struct {
	opts Options
}

func NewTextPDFRenderer(opts Options) *TextPDFRenderer {
	if opts.LinesPerChunk <= 0 {
		opts.LinesPerChunk = defaultLinesPerChunk
	}
	if opts.FontSize <= 0 {
		opts.FontSize = defaultFontSize
	}
	if opts.FontFamily == "" {
		opts.FontFamily = "Helvetica"
	}
	if opts.Margin <= 0 {
		opts.Margin = defaultMargin
	}
	return &TextPDFRenderer{opts: opts}
}

// OutputName is the file name Render produces for a stem.
func OutputName(stem string) string {
	return stem + "_text_only.pdf"
}

// WrapWidth is the approximate number of characters that fit on one line.
func (r *TextPDFRenderer) WrapWidth(pageWidth float64) int {
	usable := pageWidth - 2*r.opts.Margin
	w := int(usable / (r.opts.FontSize * charWidthFactor))
	if w < 1 {
		w = 1
	}
	return w
}

// Layout returns the drawing plan for pages: each inner slice is one
// physical PDF page of lines. It is the pure part of Render.
func (r *TextPDFRenderer) Layout(pages []string, stem string, pageWidth, pageHeight float64) [][]string {
	width := r.WrapWidth(pageWidth)
	lineHeight := r.opts.FontSize + lineSpacing
	top := pageHeight - r.opts.Margin
	bottom := r.opts.Margin

	layout := [][]string{{}}
	y := top
	newPage := func() {
		layout = append(layout, []string{})
		y = top
	}
	draw := func(lines []string) {
		for _, line := range lines {
			if y < bottom {
				newPage()
			}
			layout[len(layout)-1] = append(layout[len(layout)-1], line)
			y -= lineHeight
		}
	}

	var pending []string
	for i, text := range pages {
		pending = append(pending, Wrap(stem+": "+text, width)...)

		last := i == len(pages)-1
		if len(pending) >= r.opts.LinesPerChunk || last {
			draw(pending)
			pending = nil
			if !last {
				newPage()
			}
		}
	}
	return layout
}

// Render writes the text-only PDF for pages into outputDir and returns its path.
func (r *TextPDFRenderer) Render(ctx context.Context, pages []string, outputDir, stem string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	outPath := filepath.Join(outputDir, OutputName(stem))

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	family, translate := r.opts.FontFamily, pdf.UnicodeTranslatorFromDescriptor("")
	if r.opts.FontPath != "" {
		if _, err := os.Stat(r.opts.FontPath); err != nil {
			return "", fmt.Errorf("font: %w", err)
		}
		pdf.AddUTF8Font(utf8FontName, "", r.opts.FontPath)
		family, translate = utf8FontName, func(s string) string { return s }
	}

	pageWidth, pageHeight := pdf.GetPageSize()
	lineHeight := r.opts.FontSize + lineSpacing

	for _, lines := range r.Layout(pages, stem, pageWidth, pageHeight) {
		pdf.AddPage()
		pdf.SetFont(family, "", r.opts.FontSize)
		y := r.opts.Margin
		for _, line := range lines {
			// gofpdf measures y from the top edge, at the text baseline.
			pdf.Text(r.opts.Margin, y, translate(line))
			y += lineHeight
		}
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("write %s: %w", outPath, err)
	}
	logger.FromContext(ctx).Debug("rendered text-only pdf", "path", outPath, "source_pages", len(pages))
	return outPath, nil
}

// Wrap breaks text into lines of at most width characters, following
// Python's textwrap.wrap: tabs expand to 8 columns and every whitespace
// character becomes a space, lines break at whitespace or after a hyphen
// inside a word, whitespace at a line break is dropped, and words longer
// than width are split.
func Wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	chunks := wrapChunks(expandWhitespace(text))

	var lines []string
	for len(chunks) > 0 {
		var line [][]rune
		n := 0

		if len(lines) > 0 && isBlank(chunks[0]) {
			chunks = chunks[1:]
		}
		for len(chunks) > 0 && n+len(chunks[0]) <= width {
			line = append(line, chunks[0])
			n += len(chunks[0])
			chunks = chunks[1:]
		}

		if len(chunks) > 0 && len(chunks[0]) > width {
			chunk := chunks[0]
			end := width - n
			if len(chunk) > end {
				if h := lastHyphen(chunk[:end]); h > 0 {
					end = h + 1
				}
			}
			line = append(line, chunk[:end])
			chunks[0] = chunk[end:]
		}

		if len(line) > 0 && isBlank(line[len(line)-1]) {
			line = line[:len(line)-1]
		}
		if len(line) > 0 {
			var b strings.Builder
			for _, c := range line {
				b.WriteString(string(c))
			}
			lines = append(lines, b.String())
		}
	}
	return lines
}

// expandWhitespace expands tabs to 8-column stops and maps every other
// whitespace character to a space.
func expandWhitespace(text string) []rune {
	out := make([]rune, 0, len(text))
	col := 0
	for _, r := range text {
		switch r {
		case '\t':
			for pad := tabSize - col%tabSize; pad > 0; pad-- {
				out = append(out, ' ')
			}
			col = 0
			continue
		case '\n', '\r':
			out = append(out, ' ')
			col = 0
			continue
		case '\v', '\f':
			r = ' '
		}
		out = append(out, r)
		col++
	}
	return out
}

// wrapChunks splits text into whitespace runs and words, cutting words
// after a hyphen that joins two letter runs (well-known -> well-, known).
func wrapChunks(text []rune) [][]rune {
	var chunks [][]rune
	for start := 0; start < len(text); {
		end := start + 1
		space := text[start] == ' '
		for end < len(text) && (text[end] == ' ') == space {
			end++
		}
		if space {
			chunks = append(chunks, text[start:end])
		} else {
			chunks = append(chunks, splitHyphens(text[start:end])...)
		}
		start = end
	}
	return chunks
}

func splitHyphens(word []rune) [][]rune {
	var parts [][]rune
	start := 0
	for i := range word {
		if word[i] == '-' && hyphenBreak(word, i) {
			parts = append(parts, word[start:i+1])
			start = i + 1
		}
	}
	return append(parts, word[start:])
}

// hyphenBreak reports whether a line may break after the hyphen at i: it
// follows two letters (or letter-hyphen-letter) and precedes a letter,
// optional hyphen and letter.
func hyphenBreak(w []rune, i int) bool {
	before := i >= 2 && isWordLetter(w[i-1]) && isWordLetter(w[i-2]) ||
		i >= 3 && isWordLetter(w[i-1]) && w[i-2] == '-' && isWordLetter(w[i-3])
	if !before || i+2 >= len(w) || !isWordLetter(w[i+1]) {
		return false
	}
	return isWordLetter(w[i+2]) || w[i+2] == '-' && i+3 < len(w) && isWordLetter(w[i+3])
}

func isWordLetter(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r) || r == '_'
}

// lastHyphen returns the index of the last hyphen in s that has a
// non-hyphen somewhere before it, or -1.
func lastHyphen(s []rune) int {
	h := -1
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '-' {
			h = i
			break
		}
	}
	for i := 0; i < h; i++ {
		if s[i] != '-' {
			return h
		}
	}
	return -1
}

func isBlank(chunk []rune) bool {
	for _, r := range chunk {
		if r != ' ' {
			return false
		}
	}
	return true
}
