package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"docrag/internal/adapter/convert"
	"docrag/internal/adapter/pdfmerge"
	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/usecase"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps usecase errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, convert.ErrNotDirectory):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrNothingToExport):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// chunkOptions reads chunk_size, max_tokens, row_limit and prefix, falling
// back to the configured defaults. Non-positive limits are passed through:
// the chunkers treat them as unbounded and the sheet transcoder as its
// default row limit.
func (s *Server) chunkOptions(q url.Values) (domain.ChunkOptions, error) {
	opts := domain.ChunkOptions{
		ChunkSize: s.cfg.Extract.ChunkSize,
		MaxTokens: s.cfg.Extract.MaxTokens,
		RowLimit:  s.cfg.Extract.RowLimit,
		Prefix:    s.cfg.Extract.Prefix,
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"chunk_size", &opts.ChunkSize},
		{"max_tokens", &opts.MaxTokens},
		{"row_limit", &opts.RowLimit},
	}
	for _, p := range ints {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return opts, fmt.Errorf("%s must be an integer", p.key)
		}
		*p.dst = n
	}
	if q.Has("prefix") {
		opts.Prefix = q.Get("prefix")
	}
	return opts, nil
}

// handleExtract chunks uploaded documents.
// POST /rag/extract?chunk_size=&max_tokens=&row_limit=&prefix=
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	opts, err := s.chunkOptions(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if s.cfg.Server.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	}

	dir, cleanup, err := s.scratchDir()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer cleanup()

	docs, rejected, err := s.saveUploads(r, dir)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, errArchiveTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	set, err := s.extract.ExtractFiles(r.Context(), docs, opts, nil)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	for name, reason := range rejected {
		set.Reject(name, reason)
	}

	logger.FromContext(r.Context()).Info("extracted upload",
		"documents", len(set.Documents),
		"rejected", len(set.Rejected),
		"chunks", set.TotalChunks(),
	)
	writeJSON(w, http.StatusOK, set.Response())
}

func requireFolder(w http.ResponseWriter, q url.Values) (string, bool) {
	folder := q.Get("folder_path")
	if folder == "" {
		writeError(w, http.StatusBadRequest, errors.New("folder_path is required"))
		return "", false
	}
	return folder, true
}

func queryOr(q url.Values, key, fallback string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return fallback
}

// outputDir resolves the output_dir parameter under the configured output
// root. Absolute paths and paths escaping the root are rejected.
func (s *Server) outputDir(q url.Values, fallback string) (string, error) {
	dir := queryOr(q, "output_dir", fallback)
	if !filepath.IsLocal(dir) {
		return "", fmt.Errorf("output_dir must be a relative path inside the output root: %q", dir)
	}
	return filepath.Join(s.cfg.Server.OutputRoot, dir), nil
}

// POST /convert-folder?folder_path=&output_dir=
func (s *Server) handleConvertFolder(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	folder, ok := requireFolder(w, q)
	if !ok {
		return
	}
	outDir, err := s.outputDir(q, "office-to-pdf")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	pdfs, err := s.export.Convert(r.Context(), folder, outDir)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       fmt.Sprintf("converted %d file(s)", len(pdfs)),
		"output_folder": outDir,
		"pdf_files":     nonNil(pdfs),
	})
}

// POST /merge-pdf?folder_path=&merged_name=
func (s *Server) handleMergePDF(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	folder, ok := requireFolder(w, q)
	if !ok {
		return
	}
	outDir, err := s.outputDir(q, "output")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	output := filepath.Join(outDir, filepath.Base(queryOr(q, "merged_name", "merged.pdf")))

	merged, inputs, err := s.export.MergeTextOnly(r.Context(), folder, output)
	if errors.Is(err, pdfmerge.ErrNoInputs) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "no text-only PDFs found to merge"})
		return
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    fmt.Sprintf("merged %d text-only PDF(s)", len(inputs)),
		"merged_pdf": merged,
	})
}

// POST /convert-and-merge?folder_path=&merged_name=
func (s *Server) handleConvertAndMerge(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	folder, ok := requireFolder(w, q)
	if !ok {
		return
	}
	outDir, err := s.outputDir(q, "office-to-pdf")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	mergedName := filepath.Base(queryOr(q, "merged_name", "merged.pdf"))

	result, err := s.export.ConvertAndMerge(r.Context(), folder, outDir, mergedName)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if len(result.PDFs) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"message": "no office files found to convert"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       fmt.Sprintf("converted %d file(s) and merged them", len(result.PDFs)),
		"output_folder": outDir,
		"pdf_files":     result.PDFs,
		"merged_pdf":    result.Merged,
	})
}

// POST /extract-pdf?folder_path=&output_dir=
func (s *Server) handleExtractPDF(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	folder, ok := requireFolder(w, q)
	if !ok {
		return
	}
	outDir, err := s.outputDir(q, "output_pdfs")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.export.ExportFolder(r.Context(), folder, outDir, nil)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("extracted %d text-only PDF(s)", len(result.Outputs)),
		"files":   result.Outputs,
		"failed":  result.Failed,
	})
}

// POST /convert-extract-download?folder_path=
func (s *Server) handleConvertExtractDownload(w http.ResponseWriter, r *http.Request) {
	folder, ok := requireFolder(w, r.URL.Query())
	if !ok {
		return
	}

	dir, cleanup, err := s.scratchDir()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer cleanup()

	zipPath := filepath.Join(dir, "result.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	_, err = s.export.Bundle(r.Context(), folder, filepath.Join(dir, "work"), f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	zf, err := os.Open(zipPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer zf.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="result.zip"`)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, zf); err != nil {
		logger.FromContext(r.Context()).Error("failed to stream bundle", "error", err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
