package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend selects which store of record the CLI talks to.
type Backend string

const (
	BackendLocal  Backend = "local"
	BackendRemote Backend = "remote"
)

// Config holds everything the storecount binary reads from its environment.
type Config struct {
	DBPath          string
	Backend         Backend
	RemoteURL       string
	RemoteAPIKey    string
	RemoteTimeoutMs int
	RedisURL        string // empty keeps the registry and submit guard in-process
	UserID          string
	CompanyID       string
	StoreID         string
	LogLevel        slog.Level
	LogCalls        bool
	ServeAddr       string
	ServeAPIKey     string
	SearchMinLength int
}

// Default returns a Config for a single-machine setup on the embedded
// SQLite backend.
func Default() Config {
	return Config{
		DBPath:          defaultDBPath(),
		Backend:         BackendLocal,
		RemoteTimeoutMs: 10000,
		UserID:          currentUser(),
		LogLevel:        slog.LevelWarn,
		ServeAddr:       ":8787",
		SearchMinLength: 2,
	}
}

// Load reads a .env file from the working directory if one exists, then
// applies STORECOUNT_* variables over Default. Unparseable values are
// ignored.
func Load() Config {
	_ = godotenv.Load()
	cfg := Default()

	if v := os.Getenv("STORECOUNT_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("STORECOUNT_BACKEND"); v != "" {
		switch b := Backend(strings.ToLower(v)); b {
		case BackendLocal, BackendRemote:
			cfg.Backend = b
		}
	}
	if v := os.Getenv("STORECOUNT_REMOTE_URL"); v != "" {
		cfg.RemoteURL = v
	}
	if v := os.Getenv("STORECOUNT_REMOTE_API_KEY"); v != "" {
		cfg.RemoteAPIKey = v
	}
	if v := os.Getenv("STORECOUNT_REMOTE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RemoteTimeoutMs = n
		}
	}
	if v := os.Getenv("STORECOUNT_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("STORECOUNT_USER_ID"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("STORECOUNT_COMPANY_ID"); v != "" {
		cfg.CompanyID = v
	}
	if v := os.Getenv("STORECOUNT_STORE_ID"); v != "" {
		cfg.StoreID = v
	}
	if v := os.Getenv("STORECOUNT_LOG_LEVEL"); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			cfg.LogLevel = lvl
		}
	}
	if v := os.Getenv("STORECOUNT_LOG_CALLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogCalls = b
		}
	}
	if v := os.Getenv("STORECOUNT_SERVE_ADDR"); v != "" {
		cfg.ServeAddr = v
	}
	if v := os.Getenv("STORECOUNT_SERVE_API_KEY"); v != "" {
		cfg.ServeAPIKey = v
	}
	if v := os.Getenv("STORECOUNT_SEARCH_MIN_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SearchMinLength = n
		}
	}

	return cfg
}

// RemoteTimeout returns the remote call timeout as a duration.
func (c Config) RemoteTimeout() time.Duration {
	return time.Duration(c.RemoteTimeoutMs) * time.Millisecond
}

var ErrMissingRemoteURL = errors.New("remote backend requires STORECOUNT_REMOTE_URL")

func (c Config) Validate() error {
	if c.Backend == BackendRemote && c.RemoteURL == "" {
		return ErrMissingRemoteURL
	}
	if c.Backend == BackendLocal && c.DBPath == "" {
		return fmt.Errorf("local backend requires a database path")
	}
	return nil
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".storecount", "storecount.db")
	}
	return filepath.Join(home, ".storecount", "storecount.db")
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local-user"
}
