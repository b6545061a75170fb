package server

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"docrag/internal/domain"
	"docrag/internal/logger"
)

const (
	uploadField     = "files"
	maxMemoryUpload = 32 << 20
)

var errArchiveTooLarge = errors.New("archive expands beyond the upload limit")

// scratchDir creates a per-request working directory.
func (s *Server) scratchDir() (string, func(), error) {
	base := s.cfg.Server.ScratchDir
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "docrag-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// saveUploads writes the multipart "files" into dir. A .zip upload is
// expanded and its members take its place, named by their archive path.
// Archives that cannot be read are returned as rejections.
func (s *Server) saveUploads(r *http.Request, dir string) ([]domain.Document, map[string]string, error) {
	if err := r.ParseMultipartForm(maxMemoryUpload); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		return nil, nil, fmt.Errorf("no files uploaded in field %q", uploadField)
	}

	log := logger.FromContext(r.Context())
	var docs []domain.Document
	rejected := make(map[string]string)

	for i, h := range headers {
		name := path.Base(strings.ReplaceAll(h.Filename, `\`, "/"))
		if name == "." || name == "/" {
			return nil, nil, fmt.Errorf("upload %d has no file name", i+1)
		}
		slot := filepath.Join(dir, strconv.Itoa(i))
		saved, err := saveMultipartFile(h, slot, name)
		if err != nil {
			return nil, nil, err
		}

		mtype, err := mimetype.DetectFile(saved)
		if err != nil {
			return nil, nil, fmt.Errorf("inspect %s: %w", name, err)
		}

		if strings.EqualFold(filepath.Ext(name), ".zip") {
			if !mtype.Is("application/zip") {
				rejected[name] = "invalid zip archive: detected " + mtype.String()
				continue
			}
			members, err := s.expandZip(saved, slot)
			if errors.Is(err, errArchiveTooLarge) {
				return nil, nil, err
			}
			if err != nil {
				rejected[name] = "invalid zip archive: " + err.Error()
				continue
			}
			docs = append(docs, members...)
			continue
		}

		if want := expectedMIME(name); want != "" && !mtype.Is(want) {
			log.Warn("upload content does not match its extension", "file", name, "detected", mtype.String())
		}
		docs = append(docs, uploadedDocument(name, saved, h.Size))
	}
	return docs, rejected, nil
}

func saveMultipartFile(h *multipart.FileHeader, dir, name string) (string, error) {
	src, err := h.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", name, err)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("save upload %s: %w", name, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		return "", fmt.Errorf("save upload %s: %w", name, err)
	}
	return dst, nil
}

// expandZip extracts regular members of archive under dir. Member files are
// stored by index so archive paths never reach the filesystem.
func (s *Server) expandZip(archive, dir string) ([]domain.Document, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	limit := s.cfg.Server.MaxUploadBytes
	var total int64
	var docs []domain.Document

	for i, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		total += int64(f.UncompressedSize64)
		if limit > 0 && total > limit {
			return nil, errArchiveTooLarge
		}

		dst := filepath.Join(dir, "zip", strconv.Itoa(i)+"_"+path.Base(f.Name))
		if err := extractMember(f, dst); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		docs = append(docs, uploadedDocument(path.Clean(f.Name), dst, int64(f.UncompressedSize64)))
	}
	return docs, nil
}

func extractMember(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, rc)
	return err
}

func uploadedDocument(name, file string, size int64) domain.Document {
	return domain.Document{
		ID:     name,
		Name:   name,
		Path:   file,
		Format: domain.DetectFormat(name),
		Size:   size,
	}
}

// expectedMIME is the type mimetype reports for a well-formed file of
// each supported format.
func expectedMIME(name string) string {
	switch domain.DetectFormat(name) {
	case domain.FormatPDF:
		return "application/pdf"
	case domain.FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case domain.FormatPPTX:
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case domain.FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return ""
	}
}
