// Package server exposes extraction, conversion and export over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docrag/config"
	"docrag/internal/logger"
	"docrag/internal/usecase"
)

type Server struct {
	cfg     *config.Config
	extract *usecase.ExtractUseCase
	export  *usecase.ExportUseCase
	log     logger.Logger
	router  *chi.Mux
	http    *http.Server
}

func New(cfg *config.Config, extract *usecase.ExtractUseCase, export *usecase.ExportUseCase, log logger.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		extract: extract,
		export:  export,
		log:     log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/rag/extract", s.handleExtract)
	r.Post("/convert-folder", s.handleConvertFolder)
	r.Post("/merge-pdf", s.handleMergePDF)
	r.Post("/convert-and-merge", s.handleConvertAndMerge)
	r.Post("/extract-pdf", s.handleExtractPDF)
	r.Post("/convert-extract-download", s.handleConvertExtractDownload)

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger attaches a request-scoped logger to the context and logs
// each completed request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := s.log.With("request_id", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(logger.ContextWithLogger(r.Context(), log)))

		log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start).Round(time.Millisecond),
		)
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server started", "addr", s.cfg.Server.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("stopping server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return <-errCh
}
