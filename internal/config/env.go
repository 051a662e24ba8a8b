package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names read by ApplyEnv.
const (
	EnvSocksProxy  = "SITESCAN_SOCKS_PROXY"
	EnvDatabaseDSN = "SITESCAN_DB_DSN"
	EnvUserAgent   = "SITESCAN_USER_AGENT"
	EnvCookie      = "SITESCAN_COOKIE"
	EnvResultsDir  = "SITESCAN_RESULTS_DIR"
	EnvMaxDepth    = "SITESCAN_MAX_DEPTH"
	EnvDelay       = "SITESCAN_DELAY"
)

// LoadEnvFiles loads KEY=VALUE pairs from the given .env files into the
// process environment. Missing files are skipped; variables that are already
// set are never overwritten. With no paths, ".env" in the working directory
// is tried.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overlays SITESCAN_* environment variables onto the configuration.
// Malformed numeric values are returned as errors rather than ignored.
func ApplyEnv(c *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvSocksProxy)); v != "" {
		c.SocksProxy = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseDSN)); v != "" {
		c.DatabaseDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUserAgent)); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv(EnvCookie); v != "" {
		c.Cookie = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvResultsDir)); v != "" {
		c.ResultsDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxDepth)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxDepth, err)
		}
		c.MaxDepth = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvDelay)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDelay, err)
		}
		c.Delay = d
	}
	return nil
}
