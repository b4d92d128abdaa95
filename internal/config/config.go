// Package config reads the web server's configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied when a variable is unset or unparsable.
const (
	DefaultAPIURL         = "http://localhost:3000/api"
	DefaultBaseURL        = "http://localhost:8080"
	DefaultAPITimeout     = 30 * time.Second
	DefaultSubmitRate     = 10
	DefaultMaxUploadBytes = 20 << 20
)

// Config holds server configuration.
type Config struct {
	APIURL         string        // ticketing API root
	APITimeout     time.Duration // per-request timeout for API calls
	BaseURL        string        // public URL of the web UI; https turns on Secure cookies
	DevMode        bool
	DBPath         string // empty means db.DefaultPath
	SubmitRate     int    // ticket submissions per minute per client IP
	MaxUploadBytes int64  // multipart limit for the ticket form
}

// FromEnv creates a Config from TB_* environment variables.
func FromEnv() Config {
	return Config{
		APIURL:         envOrDefault("TB_API_URL", DefaultAPIURL),
		APITimeout:     durationOrDefault("TB_API_TIMEOUT", DefaultAPITimeout),
		BaseURL:        envOrDefault("TB_BASE_URL", DefaultBaseURL),
		DevMode:        os.Getenv("TB_DEV_MODE") == "true",
		DBPath:         os.Getenv("TB_DB_PATH"),
		SubmitRate:     intOrDefault("TB_SUBMIT_RATE", DefaultSubmitRate),
		MaxUploadBytes: int64(intOrDefault("TB_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
	}
}

// SecureCookies reports whether cookies should carry the Secure attribute,
// which is the case when the UI is served over https.
func (c Config) SecureCookies() bool {
	u, err := url.Parse(c.BaseURL)
	return err == nil && strings.EqualFold(u.Scheme, "https")
}

// LoadDotEnv seeds the environment from a .env file. Variables already set
// win over the file, and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid config value", "key", key, "value", v)
		return fallback
	}
	return n
}

func durationOrDefault(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("ignoring invalid config value", "key", key, "value", v)
		return fallback
	}
	return d
}
