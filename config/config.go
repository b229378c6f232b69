// Package config holds the osuconv settings that can come from the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the CLI configuration. Flags override it.
type Config struct {
	// DBPath is the sqlite cache; empty disables caching.
	DBPath       string
	FetchBaseURL string
	FetchTimeout time.Duration
	// RateLimit is the number of downloads allowed per minute.
	RateLimit int
	Workers   int
	LogLevel  string
	Mode      string
}

func Default() *Config {
	return &Config{
		FetchBaseURL: "https://osu.ppy.sh",
		FetchTimeout: 30 * time.Second,
		RateLimit:    30,
		Workers:      runtime.NumCPU(),
		LogLevel:     "warn",
		Mode:         "standard",
	}
}

// Load overlays OSUCONV_* environment variables on the defaults. Malformed
// values are ignored.
func Load() *Config {
	return load(os.Getenv)
}

// LoadWithEnvFile is Load with a dotenv file as a fallback for variables
// missing from the environment. A missing file is not an error.
func LoadWithEnvFile(path string) (*Config, error) {
	file, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Load(), nil
	}
	if err != nil {
		return nil, err
	}
	return load(func(k string) string {
		if v, ok := os.LookupEnv(k); ok && v != "" {
			return v
		}
		return file[k]
	}), nil
}

func load(getenv func(string) string) *Config {
	cfg := Default()

	if v := getenv("OSUCONV_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("OSUCONV_FETCH_URL"); v != "" {
		cfg.FetchBaseURL = v
	}

	// accepts "45s" or plain seconds
	if v := getenv("OSUCONV_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.FetchTimeout = d
		} else if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.FetchTimeout = time.Duration(secs) * time.Second
		}
	}

	if v := getenv("OSUCONV_RATE_LIMIT"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.RateLimit = val
		}
	}
	if v := getenv("OSUCONV_WORKERS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.Workers = val
		}
	}
	if v := getenv("OSUCONV_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("OSUCONV_MODE"); v != "" {
		cfg.Mode = v
	}

	return cfg
}
