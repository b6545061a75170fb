package port

import "context"

// Renderer lays extracted page text out into a new text-only PDF.
type Renderer interface {
	Render(ctx context.Context, pages []string, outputDir, stem string) (string, error)
}

type Merger interface {
	Merge(ctx context.Context, inputs []string, output string) (string, error)
}

// Converter turns the office files of a folder into PDFs.
type Converter interface {
	ConvertFolder(ctx context.Context, folder, outputDir string) ([]string, error)
}
