package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docrag/config"
	"docrag/internal/logger"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Extract and chunk office documents for retrieval-augmented generation",
	Long: `docrag extracts text and tables from PDF, Word, PowerPoint and Excel files
and splits them into bounded chunks ready for embedding. It can also convert
office files to PDF, re-render PDFs as text-only documents and merge them.

Example usage:
  docrag extract ./docs --max-tokens 200     # Chunk a folder, print JSON
  docrag extract report.pdf deck.pptx        # Chunk individual files
  docrag export ./pdfs -o ./text-only        # Text-only PDF per input
  docrag serve --addr :8000                  # Start the HTTP API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cmd.Flags().Changed("log-level") || cfg.Logging.Level == "" {
			cfg.Logging.Level = logLevel
		}
		if logJSON {
			cfg.Logging.JSON = true
		}

		log := logger.NewLogger(&logger.Config{
			Level:      logger.ParseLevel(cfg.Logging.Level),
			Output:     os.Stderr,
			JSON:       cfg.Logging.JSON,
			TimeFormat: "15:04:05",
		})
		logger.SetDefault(log)
		cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error, disabled")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	rootCmd.SilenceErrors = true
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
