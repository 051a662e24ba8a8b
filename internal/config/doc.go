// Package config provides configuration structures and utilities for sitescan.
// It defines the crawl settings, the per-site YAML overrides, the environment
// defaults read from .env files, and validation of the combined result.
package config
