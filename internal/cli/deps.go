package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"docrag/config"
	"docrag/internal/adapter/convert"
	"docrag/internal/adapter/extractor"
	"docrag/internal/adapter/pdfmerge"
	"docrag/internal/adapter/render"
	"docrag/internal/domain"
	"docrag/internal/usecase"
)

func newRenderer(cfg *config.Config) *render.TextPDFRenderer {
	return render.NewTextPDFRenderer(render.Options{
		LinesPerChunk: cfg.Render.LinesPerChunk,
		FontSize:      cfg.Render.FontSize,
		FontFamily:    cfg.Render.FontFamily,
		FontPath:      cfg.Render.FontPath,
		Margin:        cfg.Render.Margin,
	})
}

func newConverter(cfg *config.Config) *convert.LibreOfficeConverter {
	return convert.NewLibreOfficeConverter(convert.Options{
		SofficePath: cfg.Convert.SofficePath,
		Timeout:     cfg.Convert.Timeout,
		Extensions:  cfg.Convert.Extensions,
	})
}

func newExportUseCase(cfg *config.Config) *usecase.ExportUseCase {
	return usecase.NewExportUseCase(
		extractor.NewPDFExtractor(),
		newRenderer(cfg),
		pdfmerge.NewMerger(),
		newConverter(cfg),
	)
}

func chunkOptions(cfg *config.Config) domain.ChunkOptions {
	return domain.ChunkOptions{
		ChunkSize: cfg.Extract.ChunkSize,
		MaxTokens: cfg.Extract.MaxTokens,
		RowLimit:  cfg.Extract.RowLimit,
		Prefix:    cfg.Extract.Prefix,
	}
}

// progressWriter keeps bars off stdout, which carries JSON output.
var progressWriter io.Writer = os.Stderr

// newProgress returns a usecase.ProgressFunc drawing a bar with an ETA.
// The bar is created on the first callback, once the total is known.
func newProgress(label string) usecase.ProgressFunc {
	var (
		mu        sync.Mutex
		bar       *progressbar.ProgressBar
		startTime time.Time
	)

	return func(processed, total int, _ string) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWriter(progressWriter),
				progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(progressWriter)
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-processed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
			}
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
