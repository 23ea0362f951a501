package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Store   StoreConfig
	History HistoryConfig
	Logging LoggingConfig
	Session SessionConfig
}

type StoreConfig struct {
	Driver        string // sqlite, postgres, mysql, mongodb, memory
	DSN           string
	DataDir       string
	MongoURI      string
	MongoDatabase string
}

type HistoryConfig struct {
	MaxDepth      int
	SaveDelay     time.Duration
	Retention     time.Duration
	PruneSchedule string
}

type LoggingConfig struct {
	Level string
	File  string
}

// SessionConfig names the board and user an interactive process acts for.
type SessionConfig struct {
	BoardID string
	UserID  string
}

// SQLitePath is the database file used when Driver is sqlite and no DSN
// was given.
func (c StoreConfig) SQLitePath() string {
	if c.DSN != "" {
		return c.DSN
	}
	return filepath.Join(c.DataDir, "whiteboard.db")
}

func Load() (*Config, error) {
	godotenv.Load()

	saveDelay, err := time.ParseDuration(getEnv("HISTORY_SAVE_DELAY", "500ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_SAVE_DELAY: %w", err)
	}
	retention, err := time.ParseDuration(getEnv("HISTORY_RETENTION", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_RETENTION: %w", err)
	}

	cfg := &Config{
		Store: StoreConfig{
			Driver:        getEnv("STORE_DRIVER", "sqlite"),
			DSN:           getEnv("STORE_DSN", ""),
			DataDir:       getEnv("DATA_DIR", defaultDataDir()),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGO_DATABASE", "whiteboard"),
		},
		History: HistoryConfig{
			MaxDepth:      getEnvAsInt("HISTORY_MAX_DEPTH", 40),
			SaveDelay:     saveDelay,
			Retention:     retention,
			PruneSchedule: getEnv("HISTORY_PRUNE_SCHEDULE", "@daily"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Session: SessionConfig{
			BoardID: getEnv("BOARD_ID", "default"),
			UserID:  getEnv("USER_ID", defaultUser()),
		},
	}

	switch cfg.Store.Driver {
	case "sqlite", "postgres", "mysql", "mongodb", "memory":
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.Store.Driver)
	}
	if (cfg.Store.Driver == "postgres" || cfg.Store.Driver == "mysql") && cfg.Store.DSN == "" {
		return nil, fmt.Errorf("STORE_DSN is required for %s", cfg.Store.Driver)
	}
	if cfg.History.MaxDepth <= 0 {
		return nil, fmt.Errorf("HISTORY_MAX_DEPTH must be positive, got %d", cfg.History.MaxDepth)
	}
	return cfg, nil
}

func defaultDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "whiteboard")
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
