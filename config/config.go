package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DataDirName is the per-project directory holding the chunk store and config.
const DataDirName = ".docrag"

// Config holds all configuration for docrag.
type Config struct {
	Extract ExtractConfig `yaml:"extract"`
	Render  RenderConfig  `yaml:"render"`
	Convert ConvertConfig `yaml:"convert"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExtractConfig holds extraction and chunking configuration.
type ExtractConfig struct {
	Includes    []string `yaml:"includes"`
	Excludes    []string `yaml:"excludes"`
	ChunkSize   int      `yaml:"chunk_size"` // characters, 0 = unbounded
	MaxTokens   int      `yaml:"max_tokens"` // words, 0 = unbounded; wins over chunk_size
	RowLimit    int      `yaml:"row_limit"`  // spreadsheet rows per markdown chunk
	Prefix      string   `yaml:"prefix"`
	Workers     int      `yaml:"workers"`
	MaxFileSize int64    `yaml:"max_file_size"`
}

// RenderConfig holds text-only PDF rendering configuration.
type RenderConfig struct {
	LinesPerChunk int     `yaml:"lines_per_chunk"`
	FontSize      float64 `yaml:"font_size"`
	FontFamily    string  `yaml:"font_family"`
	FontPath      string  `yaml:"font_path"` // optional UTF-8 TrueType font
	Margin        float64 `yaml:"margin"`
}

// ConvertConfig holds LibreOffice conversion configuration.
type ConvertConfig struct {
	SofficePath string        `yaml:"soffice_path"`
	Timeout     time.Duration `yaml:"timeout"`
	Extensions  []string      `yaml:"extensions"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ScratchDir     string        `yaml:"scratch_dir"` // empty = os.TempDir()
	OutputRoot     string        `yaml:"output_root"` // output_dir parameters resolve under it; empty = working directory
}

// StoreConfig holds chunk store configuration.
type StoreConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Extract: ExtractConfig{
			Includes:    []string{"**/*.pdf", "**/*.docx", "**/*.pptx", "**/*.xlsx"},
			Excludes:    []string{"**/.git/**", "**/" + DataDirName + "/**", "**/~$*"},
			ChunkSize:   0,
			MaxTokens:   0,
			RowLimit:    50,
			Workers:     4,
			MaxFileSize: 100 * 1024 * 1024,
		},
		Render: RenderConfig{
			LinesPerChunk: 10,
			FontSize:      11,
			FontFamily:    "Helvetica",
			Margin:        50,
		},
		Convert: ConvertConfig{
			SofficePath: defaultSofficePath(),
			Timeout:     2 * time.Minute,
			Extensions:  []string{".pptx", ".doc", ".docx"},
		},
		Server: ServerConfig{
			Addr:           ":8000",
			MaxUploadBytes: 200 * 1024 * 1024,
			ReadTimeout:    5 * time.Minute,
			WriteTimeout:   10 * time.Minute,
		},
		Store: StoreConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultSofficePath() string {
	if p := os.Getenv("DOCRAG_SOFFICE"); p != "" {
		return p
	}
	return "soffice"
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Extract.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("extract.chunk_size must not be negative: %d", c.Extract.ChunkSize))
	}
	if c.Extract.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("extract.max_tokens must not be negative: %d", c.Extract.MaxTokens))
	}
	if c.Extract.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("extract.max_file_size must not be negative: %d", c.Extract.MaxFileSize))
	}
	if c.Render.FontSize < 0 || c.Render.Margin < 0 {
		errs = append(errs, errors.New("render.font_size and render.margin must not be negative"))
	}
	if c.Convert.Timeout < 0 {
		errs = append(errs, fmt.Errorf("convert.timeout must not be negative: %s", c.Convert.Timeout))
	}
	if c.Server.MaxUploadBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must not be negative: %d", c.Server.MaxUploadBytes))
	}
	return errors.Join(errs...)
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, DataDirName, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StoreDBPath returns the path to the chunk store database.
func StoreDBPath(dir string) string {
	return filepath.Join(dir, DataDirName, "chunks.db")
}

// EnsureDataDir ensures the .docrag directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, DataDirName), 0755)
}
