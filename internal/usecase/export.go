package usecase

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"docrag/internal/adapter/convert"
	"docrag/internal/adapter/render"
	"docrag/internal/logger"
	"docrag/internal/port"
)

const (
	// MergedTextOnlyName is the merged file inside a bundle.
	MergedTextOnlyName = "merged_text_only.pdf"
	textOnlyDirName    = "text_only_pdfs"
	convertedDirName   = "converted_pdfs"
)

var ErrNothingToExport = errors.New("no PDF or office files found")

// ExportUseCase re-renders PDFs as text-only PDFs and merges or bundles them.
type ExportUseCase struct {
	pages     port.PageExtractor
	renderer  port.Renderer
	merger    port.Merger
	converter port.Converter
}

func NewExportUseCase(
	pages port.PageExtractor,
	renderer port.Renderer,
	merger port.Merger,
	converter port.Converter,
) *ExportUseCase {
	return &ExportUseCase{
		pages:     pages,
		renderer:  renderer,
		merger:    merger,
		converter: converter,
	}
}

// ExportResult lists the text-only PDFs written and the inputs that failed.
type ExportResult struct {
	Outputs []string          `json:"files"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// PDFsIn lists the files directly inside folder that match pattern, sorted.
func PDFsIn(folder, pattern string) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", folder, convert.ErrNotDirectory)
	}
	matches, err := doublestar.Glob(os.DirFS(folder), pattern)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = filepath.Join(folder, m)
	}
	return paths, nil
}

// ExportFolder renders a text-only PDF for every *.pdf in folder.
func (u *ExportUseCase) ExportFolder(ctx context.Context, folder, outputDir string, progress ProgressFunc) (*ExportResult, error) {
	pdfs, err := PDFsIn(folder, "*.pdf")
	if err != nil {
		return nil, err
	}
	return u.ExportFiles(ctx, pdfs, outputDir, progress)
}

// ExportFiles renders a text-only PDF per input. A file that cannot be
// opened is recorded in Failed and the rest continue.
func (u *ExportUseCase) ExportFiles(ctx context.Context, pdfs []string, outputDir string, progress ProgressFunc) (*ExportResult, error) {
	log := logger.FromContext(ctx)
	result := &ExportResult{Outputs: []string{}, Failed: map[string]string{}}

	for i, path := range pdfs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Base(path)
		stem := strings.TrimSuffix(name, filepath.Ext(name))

		pages, err := u.pages.Pages(ctx, path)
		if err != nil {
			log.Warn("skipping unreadable pdf", "file", name, "error", err)
			result.Failed[name] = err.Error()
		} else {
			out, err := u.renderer.Render(ctx, pages, outputDir, stem)
			if err != nil {
				return nil, fmt.Errorf("render %s: %w", name, err)
			}
			result.Outputs = append(result.Outputs, out)
		}
		if progress != nil {
			progress(i+1, len(pdfs), name)
		}
	}
	return result, nil
}

// MergeTextOnly merges the *_text_only.pdf files of folder into output.
func (u *ExportUseCase) MergeTextOnly(ctx context.Context, folder, output string) (merged string, inputs []string, err error) {
	inputs, err = PDFsIn(folder, "*"+render.OutputName(""))
	if err != nil {
		return "", nil, err
	}
	merged, err = u.merger.Merge(ctx, inputs, output)
	return merged, inputs, err
}

// Convert converts the office files of folder into outputDir.
func (u *ExportUseCase) Convert(ctx context.Context, folder, outputDir string) ([]string, error) {
	return u.converter.ConvertFolder(ctx, folder, outputDir)
}

// ConvertResult describes a convert-and-merge run.
type ConvertResult struct {
	PDFs   []string `json:"pdf_files"`
	Merged string   `json:"merged_pdf,omitempty"`
}

// ConvertAndMerge converts the office files of folder into outputDir and
// merges the produced PDFs into outputDir/mergedName.
func (u *ExportUseCase) ConvertAndMerge(ctx context.Context, folder, outputDir, mergedName string) (*ConvertResult, error) {
	pdfs, err := u.converter.ConvertFolder(ctx, folder, outputDir)
	if err != nil {
		return nil, err
	}
	result := &ConvertResult{PDFs: pdfs}
	if len(pdfs) == 0 {
		return result, nil
	}
	result.Merged, err = u.merger.Merge(ctx, pdfs, filepath.Join(outputDir, mergedName))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Bundle converts office files in folder, renders text-only PDFs of the
// converted and existing PDFs, merges them, and writes a zip holding
// merged_text_only.pdf plus text_only_pdfs/<name> for each rendered file.
// workDir receives the intermediate files.
func (u *ExportUseCase) Bundle(ctx context.Context, folder, workDir string, w io.Writer) (*ExportResult, error) {
	converted, err := u.converter.ConvertFolder(ctx, folder, filepath.Join(workDir, convertedDirName))
	if err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	existing, err := PDFsIn(folder, "*.pdf")
	if err != nil {
		return nil, err
	}

	textDir := filepath.Join(workDir, textOnlyDirName)
	result, err := u.ExportFiles(ctx, append(converted, existing...), textDir, nil)
	if err != nil {
		return nil, err
	}
	if len(result.Outputs) == 0 {
		return nil, ErrNothingToExport
	}

	mergedPath := filepath.Join(workDir, MergedTextOnlyName)
	if _, err := u.merger.Merge(ctx, result.Outputs, mergedPath); err != nil {
		return nil, err
	}

	zw := zip.NewWriter(w)
	if err := addZipFile(zw, mergedPath, MergedTextOnlyName); err != nil {
		return nil, err
	}
	added := make(map[string]bool, len(result.Outputs))
	for _, out := range result.Outputs {
		if added[out] {
			continue
		}
		added[out] = true
		if err := addZipFile(zw, out, textOnlyDirName+"/"+filepath.Base(out)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish zip: %w", err)
	}
	return result, nil
}

func addZipFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("zip %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("zip %s: %w", name, err)
	}
	return nil
}
