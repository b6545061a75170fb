package extractor

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"docrag/internal/domain"
)

const drawingMLNS = "http://schemas.openxmlformats.org/drawingml/2006/main"

// PptxExtractor reads the a:t text runs of every slide part.
type PptxExtractor struct{}

func NewPptxExtractor() *PptxExtractor {
	return &PptxExtractor{}
}

func (e *PptxExtractor) Extract(ctx context.Context, doc domain.Document, _ domain.ChunkOptions) domain.ExtractedText {
	r, err := zip.OpenReader(doc.Path)
	if err != nil {
		return documentError(doc, err)
	}
	defer r.Close()

	return domain.ExtractedText{Units: slideUnits(ctx, &r.Reader)}
}

// slideUnits returns one unit per slide part, in ascending part-name order.
// Archive entry order is not trusted.
func slideUnits(ctx context.Context, r *zip.Reader) []domain.Unit {
	slides := make(map[string]*zip.File)
	var names []string
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides[f.Name] = f
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)

	units := make([]domain.Unit, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			units = append(units, domain.Failed(fmt.Sprintf("[error reading %s: %v]", name, err)))
			continue
		}
		texts, err := readSlideTexts(slides[name])
		if err != nil {
			units = append(units, domain.Failed(fmt.Sprintf("[error reading %s: %v]", name, err)))
			continue
		}
		units = append(units, domain.OK(strings.Join(texts, "\n")))
	}
	return units
}

func readSlideTexts(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return parseSlideTexts(rc)
}

// parseSlideTexts collects non-empty a:t runs. A slide that is not
// well-formed XML yields no partial text.
func parseSlideTexts(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)
	var texts []string
	var current strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == drawingMLNS && t.Name.Local == "t" {
				inText = true
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			if t.Name.Space == drawingMLNS && t.Name.Local == "t" {
				inText = false
				if current.Len() > 0 {
					texts = append(texts, normalize(current.String()))
				}
			}
		}
	}

	return texts, nil
}
