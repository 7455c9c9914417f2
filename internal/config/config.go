package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	// Input and output file names inside a book directory
	MetadataFile    string
	TextFile        string
	ChunksFile      string
	AnnotationsFile string

	// Chunking
	ChunkSize int

	// Logging
	LogLevel  string
	LogFormat string

	// HTTP server
	Port           string
	APIKey         string
	MaxUploadBytes int64
	StatsWindow    time.Duration

	// Downstream import system
	ImportURL     string
	ImportAPIKey  string
	ImportTimeout time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		MetadataFile:    envOr("ICC_METADATA_FILE", "metadata.yml"),
		TextFile:        envOr("ICC_TEXT_FILE", "text.icc"),
		ChunksFile:      envOr("ICC_CHUNKS_FILE", "chunks.json"),
		AnnotationsFile: envOr("ICC_ANNOTATIONS_FILE", "annotations.json"),

		ChunkSize: envInt("ICC_CHUNK_SIZE", 100000),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "json"),

		Port:           envOr("PORT", "8090"),
		APIKey:         os.Getenv("ICCIMPORT_API_KEY"),
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
		StatsWindow:    envDuration("STATS_WINDOW", 1*time.Hour),

		ImportURL:     os.Getenv("IMPORT_URL"),
		ImportAPIKey:  os.Getenv("IMPORT_API_KEY"),
		ImportTimeout: envDuration("IMPORT_TIMEOUT", 60*time.Second),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100000
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = 60 * time.Second
	}

	return cfg
}

// Validate checks the settings every command depends on.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("ICC_CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	names := map[string]string{
		"ICC_METADATA_FILE":    c.MetadataFile,
		"ICC_TEXT_FILE":        c.TextFile,
		"ICC_CHUNKS_FILE":      c.ChunksFile,
		"ICC_ANNOTATIONS_FILE": c.AnnotationsFile,
	}
	seen := make(map[string]string, len(names))
	for key, name := range names {
		if name == "" || filepath.Base(name) != name {
			return fmt.Errorf("%s must be a plain file name, got %q", key, name)
		}
		if other, dup := seen[name]; dup {
			return fmt.Errorf("%s and %s both name %q", key, other, name)
		}
		seen[name] = key
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// ValidatePublish checks the settings needed to push to the import system.
func (c Config) ValidatePublish() error {
	if c.ImportURL == "" {
		return fmt.Errorf("IMPORT_URL is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
