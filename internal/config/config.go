package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	StorageInMemory = "in-memory"
	StoragePostgres = "postgres"
)

// Config - настройки сервера из окружения.
type Config struct {
	Port             string
	Storage          string
	DatabaseURL      string
	AdminToken       string
	BlobDir          string
	BlobBaseURL      string
	CORSOrigins      []string
	SubmitRatePerMin int
	DBLogSilent      bool
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из произвольного источника переменных.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Port:             withDefault(getenv("PORT"), "8080"),
		Storage:          withDefault(getenv("STORAGE"), StorageInMemory),
		DatabaseURL:      getenv("DATABASE_URL"),
		AdminToken:       getenv("ADMIN_TOKEN"),
		BlobDir:          withDefault(getenv("BLOB_DIR"), "./uploads"),
		BlobBaseURL:      strings.TrimRight(withDefault(getenv("BLOB_BASE_URL"), "/media"), "/"),
		SubmitRatePerMin: 10,
	}

	for _, origin := range strings.Split(getenv("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	if v := getenv("SUBMIT_RATE_PER_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: SUBMIT_RATE_PER_MIN must be a positive integer, got %q", v)
		}
		cfg.SubmitRatePerMin = n
	}
	if v := getenv("DB_LOG_SILENT"); v != "" {
		silent, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: DB_LOG_SILENT: %w", err)
		}
		cfg.DBLogSilent = silent
	}
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageInMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL must be set for postgres storage")
		}
	default:
		return fmt.Errorf("config: unknown storage %q (in-memory or postgres)", c.Storage)
	}
	return nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
