// Package social_archiver ties together platform identification, captioning
// and configuration for mirroring social video content into Telegram-style
// destinations.
package social_archiver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// A LedgerSlot is the fixed remote location of the deduplication ledger
// record: the entity holding it plus the pinned message ID.
type LedgerSlot struct {
	EntityID  int64
	MessageID int
}

type Config struct {
	// DownloadDir is where extraction backends write media files.
	DownloadDir string
	// MaxParallelDownloads bounds the download stage's concurrency.
	MaxParallelDownloads int
	// ArchivePath is the sqlite index of processed videos.
	ArchivePath string
	// JournalPath is the bbolt batch journal.
	JournalPath string
	// LedgerDir holds the file-backed ledger record used when no remote
	// slot is configured.
	LedgerDir string
	// ExportDir is where the filesystem uploader places published files.
	ExportDir string
	// EntitiesFile is the JSON destination table.
	EntitiesFile string
	// Destinations is the per-platform destination table, loaded from
	// EntitiesFile by LoadEntities.
	Destinations DestinationTable
	// Ledger is the remote ledger slot, if configured.
	Ledger LedgerSlot
}

const defaultMaxParallelDownloads = 5

// LoadConfig reads configuration from the environment, optionally seeded from
// a .env file (a missing file is not an error).
func LoadConfig(envFile string) (*Config, error) {
	log := zap.S().Named("config")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		// Best effort default location.
		_ = godotenv.Load()
	}

	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".config", "social-archiver")
	}

	c := &Config{
		DownloadDir:          envOr("DOWNLOADS_DIR", filepath.Join(configDir, "downloads")),
		MaxParallelDownloads: envIntOr("MAX_PARALLEL_DOWNLOADS", defaultMaxParallelDownloads),
		ArchivePath:          envOr("ARCHIVE_DB", filepath.Join(configDir, "archive.db")),
		JournalPath:          envOr("JOURNAL_DB", filepath.Join(configDir, "journal.db")),
		LedgerDir:            envOr("LEDGER_DIR", filepath.Join(configDir, "ledger")),
		ExportDir:            envOr("EXPORT_DIR", filepath.Join(configDir, "export")),
		EntitiesFile:         envOr("ENTITIES_FILE", filepath.Join(configDir, "entities.json")),
		Destinations:         DestinationTable{},
	}
	if c.MaxParallelDownloads < 1 {
		c.MaxParallelDownloads = 1
	}
	c.Ledger.EntityID = int64(envIntOr("LEDGER_ENTITY_ID", 0))
	c.Ledger.MessageID = envIntOr("LEDGER_MESSAGE_ID", 0)

	if err := os.MkdirAll(c.DownloadDir, 0775); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	log.Debugw("config loaded",
		"download_dir", c.DownloadDir,
		"max_parallel_downloads", c.MaxParallelDownloads,
		"entities_file", c.EntitiesFile,
	)
	return c, nil
}

// LoadEntities reads the destination table from EntitiesFile. A missing file
// leaves the table empty; destination resolution then falls back to
// caller-supplied values.
func (c *Config) LoadEntities() error {
	log := zap.S().Named("config")
	data, err := os.ReadFile(c.EntitiesFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warnw("entities file not found, destination table empty", "path", c.EntitiesFile)
			return nil
		}
		return err
	}
	table := DestinationTable{}
	if err := json.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("failed to parse entities file %s: %w", c.EntitiesFile, err)
	}
	c.Destinations = table
	log.Debugw("entities loaded", "platforms", len(table))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
