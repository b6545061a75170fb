// Package convert turns office documents into PDFs with a headless LibreOffice.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"docrag/internal/logger"
)

var ErrNotDirectory = errors.New("not a directory")

// CommandRunner runs an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type Options struct {
	SofficePath string
	Timeout     time.Duration
	Extensions  []string
}

type LibreOfficeConverter struct {
	opts Options
	run  CommandRunner
}

func NewLibreOfficeConverter(opts Options) *LibreOfficeConverter {
	if opts.SofficePath == "" {
		opts.SofficePath = "soffice"
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".pptx", ".doc", ".docx"}
	}
	return &LibreOfficeConverter{opts: opts, run: execRunner}
}

// WithRunner replaces the command runner, for tests.
func (c *LibreOfficeConverter) WithRunner(run CommandRunner) *LibreOfficeConverter {
	c.run = run
	return c
}

// OfficeFiles lists the convertible files directly inside folder, grouped by
// extension in configured order and sorted by name within each group.
func (c *LibreOfficeConverter) OfficeFiles(folder string) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", folder, ErrNotDirectory)
	}

	var files []string
	fsys := os.DirFS(folder)
	for _, ext := range c.opts.Extensions {
		matches, err := doublestar.Glob(fsys, "*"+ext)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", ext, err)
		}
		for _, m := range matches {
			files = append(files, filepath.Join(folder, m))
		}
	}
	return files, nil
}

// ConvertFolder converts every office file in folder into outputDir and
// returns the produced PDF paths in conversion order.
func (c *LibreOfficeConverter) ConvertFolder(ctx context.Context, folder, outputDir string) ([]string, error) {
	files, err := c.OfficeFiles(folder)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	log := logger.FromContext(ctx)
	pdfs := make([]string, 0, len(files))
	for _, file := range files {
		out, err := c.ConvertFile(ctx, file, outputDir)
		if err != nil {
			return pdfs, err
		}
		log.Info("converted to pdf", "file", filepath.Base(file), "pdf", out)
		pdfs = append(pdfs, out)
	}
	return pdfs, nil
}

func (c *LibreOfficeConverter) ConvertFile(ctx context.Context, file, outputDir string) (string, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	args := []string{"--headless", "--convert-to", "pdf", "--outdir", outputDir, file}
	output, err := c.run(ctx, c.opts.SofficePath, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return "", fmt.Errorf("convert %s: %w: %s", filepath.Base(file), err, msg)
		}
		return "", fmt.Errorf("convert %s: %w", filepath.Base(file), err)
	}

	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	pdfPath := filepath.Join(outputDir, stem+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("convert %s: expected output missing: %w", filepath.Base(file), err)
	}
	return pdfPath, nil
}
