package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while users still get a readable message.
var (
	// ErrNoSeed is returned when no seed address is specified.
	ErrNoSeed = errors.New("no seed specified: provide a URL or use --list")

	// ErrInvalidSeed is returned when a seed is not an absolute http(s) URL.
	ErrInvalidSeed = errors.New("invalid seed: must be an absolute http or https URL")

	// ErrInvalidDepth is returned when the maximum depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidDelay is returned when the crawl delay is negative.
	// Use 0 for no delay.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxPasses is returned when the pass bound is negative.
	// Use 0 for an unbounded change-detection loop.
	ErrInvalidMaxPasses = errors.New("invalid max passes: must be non-negative")

	// ErrInvalidRequestRate is returned when the request rate cap is negative.
	ErrInvalidRequestRate = errors.New("invalid request rate: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingProxies is returned when both --tor and --socks-proxy are set.
	ErrConflictingProxies = errors.New("conflicting proxies: --tor and --socks-proxy cannot be used together")
)
