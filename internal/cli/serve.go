package cli

import (
	"github.com/spf13/cobra"

	"docrag/internal/adapter/extractor"
	"docrag/internal/logger"
	"docrag/internal/server"
	"docrag/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve extraction and PDF tooling over HTTP.

Endpoints:
  POST /rag/extract               multipart "files" (or a .zip), returns chunks as JSON
  POST /convert-folder            ?folder_path=
  POST /merge-pdf                 ?folder_path=&merged_name=
  POST /convert-and-merge         ?folder_path=&merged_name=
  POST /extract-pdf               ?folder_path=&output_dir=
  POST /convert-extract-download  ?folder_path=  (returns result.zip)
  GET  /healthz`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	extract := usecase.NewExtractUseCase(extractor.NewRegistry(cfg.Extract.MaxFileSize), nil, nil, cfg.Extract.Workers)
	srv := server.New(cfg, extract, newExportUseCase(cfg), logger.FromContext(ctx))
	return srv.Start(ctx)
}
