// Package config resolves runtime settings for the detection client.
//
// Settings come from the process environment, optionally seeded from a
// .env file in the working directory. The base URL of the detection service
// is resolved in a fixed order:
//
//  1. an explicit override (e.g. the -api flag)
//  2. the production URL variable
//  3. the default URL variable
//  4. LocalBaseURL
//
// Each URL variable is read under both its GOLFBALL_ name and the VITE_
// name used by the browser build, so one .env file can serve both.
package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LocalBaseURL is the fallback used for local development.
const LocalBaseURL = "http://localhost:8000"

// Environment variable names, in lookup order within each tier.
var (
	productionURLVars = []string{"GOLFBALL_PRODUCTION_API_URL", "VITE_PRODUCTION_API_URL"}
	defaultURLVars    = []string{"GOLFBALL_API_URL", "VITE_API_URL"}
)

// Config holds resolved settings.
type Config struct {
	// BaseURL is the detection service root, without a trailing slash.
	BaseURL string

	// Timeout bounds a single detection request. Zero means no timeout.
	Timeout time.Duration

	// ListenAddr is the address the web surface binds to.
	ListenAddr string

	// Debug enables verbose logging.
	Debug bool
}

// Load reads .env (if present) and the environment, then resolves the
// configuration. override, when non-empty, wins over every environment
// source for the base URL.
func Load(override string) *Config {
	loadDotEnv(".env")
	return Resolve(override, os.Getenv)
}

// Resolve builds a Config from a lookup function. It never touches the
// filesystem, which keeps the resolution order testable.
func Resolve(override string, getenv func(string) string) *Config {
	timeout, err := time.ParseDuration(lookup(getenv, []string{"GOLFBALL_TIMEOUT"}, "0s"))
	if err != nil {
		log.Printf("Ignoring invalid GOLFBALL_TIMEOUT: %v", err)
		timeout = 0
	}

	return &Config{
		BaseURL:    ResolveBaseURL(override, getenv),
		Timeout:    timeout,
		ListenAddr: lookup(getenv, []string{"GOLFBALL_LISTEN_ADDR"}, ":8080"),
		Debug:      strings.EqualFold(getenv("GOLFBALL_LOG_LEVEL"), "debug"),
	}
}

// ResolveBaseURL applies the override → production → default → local order.
func ResolveBaseURL(override string, getenv func(string) string) string {
	url := override
	if url == "" {
		url = lookup(getenv, productionURLVars, "")
	}
	if url == "" {
		url = lookup(getenv, defaultURLVars, "")
	}
	if url == "" {
		url = LocalBaseURL
	}
	return strings.TrimRight(url, "/")
}

func lookup(getenv func(string) string, keys []string, def string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
	}
	return def
}

// loadDotEnv seeds the environment from path. Variables already set in the
// real environment are left alone.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Failed to load %s: %v", path, err)
	}
}
