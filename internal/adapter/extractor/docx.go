package extractor

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"docrag/internal/domain"
)

const (
	wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	compatibilityNS  = "http://schemas.openxmlformats.org/markup-compatibility/2006"
)

// DocxExtractor reads paragraph text from word/document.xml.
type DocxExtractor struct{}

func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

func (e *DocxExtractor) Extract(_ context.Context, doc domain.Document, _ domain.ChunkOptions) domain.ExtractedText {
	paragraphs, err := readDocxParagraphs(doc.Path)
	if err != nil {
		return documentError(doc, err)
	}
	units := make([]domain.Unit, 0, len(paragraphs))
	for _, p := range paragraphs {
		units = append(units, domain.OK(p))
	}
	return domain.ExtractedText{Units: units}
}

// readDocxParagraphs returns the trimmed, non-empty paragraphs in document
// order. Paragraphs nested in tables and text boxes are included; the VML
// copy Word stores under mc:Fallback is skipped.
func readDocxParagraphs(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, errors.New("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	return parseDocxParagraphs(rc)
}

func parseDocxParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)
	var paragraphs []string
	var stack []*strings.Builder
	inText := false
	fallback := 0

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == compatibilityNS && t.Name.Local == "Fallback" {
				fallback++
				continue
			}
			if fallback > 0 || t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				stack = append(stack, &strings.Builder{})
			case "t":
				inText = len(stack) > 0
			case "tab":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteByte('\t')
				}
			case "br", "cr":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText {
				stack[len(stack)-1].Write(t)
			}

		case xml.EndElement:
			if t.Name.Space == compatibilityNS && t.Name.Local == "Fallback" {
				fallback--
				continue
			}
			if fallback > 0 || t.Name.Space != wordprocessingNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if len(stack) == 0 {
					continue
				}
				text := strings.TrimSpace(normalize(stack[len(stack)-1].String()))
				stack = stack[:len(stack)-1]
				if text != "" {
					paragraphs = append(paragraphs, text)
				}
			}
		}
	}

	return paragraphs, nil
}
