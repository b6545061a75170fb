// Package pdfmerge concatenates PDF files with pdfcpu.
package pdfmerge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"docrag/internal/logger"
)

var ErrNoInputs = errors.New("no PDF files to merge")

var disableConfigDir sync.Once

// Merger writes the pages of each input, in order, into a single output.
type Merger struct{}

func NewMerger() *Merger {
	// pdfcpu otherwise writes a config directory under the user's home
	disableConfigDir.Do(api.DisableConfigDir)
	return &Merger{}
}

func (m *Merger) Merge(ctx context.Context, inputs []string, output string) (string, error) {
	if len(inputs) == 0 {
		return "", ErrNoInputs
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, in := range inputs {
		if _, err := os.Stat(in); err != nil {
			return "", fmt.Errorf("merge input: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.MergeCreateFile(inputs, output, false, conf); err != nil {
		return "", fmt.Errorf("pdfcpu merge: %w", err)
	}

	logger.FromContext(ctx).Info("merged pdfs", "output", output, "inputs", len(inputs))
	return output, nil
}
