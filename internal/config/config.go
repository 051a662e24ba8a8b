package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These mirror the behaviour of the interactive tool sitescan grew out of,
// so a bare "sitescan scan <seed>" behaves the same way.
const (
	// DefaultMaxDepth is the deepest level the crawler descends to.
	// The seed is depth 0.
	DefaultMaxDepth = 3

	// DefaultDelay is the pause before descending into each newly
	// discovered same-origin address.
	DefaultDelay = 500 * time.Millisecond

	// DefaultResultsDir is where the run artifacts are written.
	DefaultResultsDir = "results"

	// DefaultKeywordFileName is the custom keyword list inside the results directory.
	DefaultKeywordFileName = "custom_keywords.txt"

	// DefaultMaxPasses bounds the change-detection loop.
	// Targets with perpetually changing content (timestamps, nonces) would
	// otherwise never converge.
	DefaultMaxPasses = 10

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultProbeAddress is dialled to decide whether the network is up.
	DefaultProbeAddress = "8.8.8.8:53"

	// DefaultProbeTimeout bounds a single connectivity probe.
	DefaultProbeTimeout = 3 * time.Second

	// DefaultProbeInterval is the wait between failed connectivity probes.
	DefaultProbeInterval = 5 * time.Second

	// DefaultBatchSize is the number of seeds scanned concurrently.
	// Each run is itself sequential.
	DefaultBatchSize = 1

	// DefaultUserAgent identifies sitescan in HTTP requests.
	DefaultUserAgent = "sitescan/1.0 (+https://github.com/nao1215/sitescan)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "sitescan"
)

// Config holds all configuration options for sitescan.
// It is populated from the environment, the YAML file and CLI flags, in that
// order, and passed through the application explicitly.
type Config struct {
	// Seeds are the addresses to start crawling from.
	// Each seed is an independent run with its own state.
	Seeds []string

	// Origin restricts recursive descent to addresses with this prefix.
	// Empty means each seed is its own origin.
	Origin string

	// MaxDepth is the deepest level the crawler descends to.
	MaxDepth int

	// Delay is the pause before each same-origin descent.
	// Zero disables pacing.
	Delay time.Duration

	// ScanURLs enables link discovery and recursion.
	ScanURLs bool

	// ScanObjects enables tag record extraction and keyword counting.
	ScanObjects bool

	// DownloadFiles persists every newly discovered resource to disk.
	DownloadFiles bool

	// ResultsDir is where the run artifacts are written.
	ResultsDir string

	// DownloadDir is the root of the extension-keyed download tree.
	// Empty means "<ResultsDir>/downloads".
	DownloadDir string

	// KeywordFile is the custom keyword list, one keyword per line.
	// It is re-read for every document, so edits apply mid-run.
	// Empty means "<ResultsDir>/custom_keywords.txt".
	KeywordFile string

	// MaxPasses bounds the change-detection loop. Zero means unbounded.
	MaxPasses int

	// FollowExternal allows descent into addresses outside the origin.
	// Cross-origin descent is not paced by Delay.
	FollowExternal bool

	// RespectRobots consults robots.txt before same-origin descent.
	RespectRobots bool

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// ProbeAddress is the TCP endpoint dialled by the connectivity guard.
	ProbeAddress string

	// ProbeTimeout bounds a single connectivity probe.
	ProbeTimeout time.Duration

	// ProbeInterval is the wait between failed probes.
	ProbeInterval time.Duration

	// SkipConnectivityCheck disables the connectivity guard.
	SkipConnectivityCheck bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// MaxRequestsPerSecond caps the overall request rate across every fetch,
	// including change detection. Zero disables the cap.
	MaxRequestsPerSecond float64

	// Cookie is sent with every request. Site configuration may override it.
	Cookie string

	// Headers are added to every request. Site configuration may extend them.
	Headers map[string]string

	// IgnorePatterns are glob patterns (matched against the URL path) that
	// are never descended into.
	IgnorePatterns []string

	// FollowPatterns, when set, restrict descent to matching URL paths.
	FollowPatterns []string

	// SocksProxy routes all traffic through a SOCKS5 proxy ("host:port").
	SocksProxy string

	// UseTor starts an embedded Tor daemon and routes traffic through it.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor daemon.
	TorStartupTimeout time.Duration

	// BatchSize is the number of seeds scanned concurrently.
	BatchSize int

	// Verbose enables debug level logging, including progress lines.
	Verbose bool

	// LogJSON switches the log output to JSON.
	LogJSON bool

	// JSONReport prints the run summary as JSON.
	JSONReport bool

	// MarkdownReport prints the run summary as Markdown.
	MarkdownReport bool

	// ReportFile redirects the summary to a file.
	ReportFile string

	// SaveToDB records each run in the history database.
	SaveToDB bool

	// DBDir is the directory of the SQLite history database.
	DBDir string

	// DatabaseDSN selects PostgreSQL when it starts with "postgres".
	// Otherwise the SQLite database in DBDir is used.
	DatabaseDSN string

	// ConfigFilePath is the path to the YAML configuration file.
	ConfigFilePath string

	// SiteConfigs holds per-host overrides loaded from the configuration file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:          DefaultMaxDepth,
		Delay:             DefaultDelay,
		ScanURLs:          true,
		ScanObjects:       true,
		ResultsDir:        DefaultResultsDir,
		MaxPasses:         DefaultMaxPasses,
		Timeout:           DefaultTimeout,
		ProbeAddress:      DefaultProbeAddress,
		ProbeTimeout:      DefaultProbeTimeout,
		ProbeInterval:     DefaultProbeInterval,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		BatchSize:         DefaultBatchSize,
	}
}

// XDGDataDir returns the XDG data directory for sitescan.
// On Linux: ~/.local/share/sitescan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitescan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// EffectiveDownloadDir returns the download root.
func (c *Config) EffectiveDownloadDir() string {
	if c.DownloadDir != "" {
		return c.DownloadDir
	}
	return filepath.Join(c.ResultsDir, "downloads")
}

// EffectiveKeywordFile returns the custom keyword file path.
func (c *Config) EffectiveKeywordFile() string {
	if c.KeywordFile != "" {
		return c.KeywordFile
	}
	return filepath.Join(c.ResultsDir, DefaultKeywordFileName)
}

// OriginFor returns the same-origin prefix for a seed.
func (c *Config) OriginFor(seed string) string {
	if c.Origin != "" {
		return c.Origin
	}
	return seed
}

// ForSeed returns a copy of the configuration with the site overrides for
// the seed's host applied. The receiver is not modified.
func (c *Config) ForSeed(seed string) *Config {
	out := *c
	out.Headers = make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		out.Headers[k] = v
	}
	if c.SiteConfigs == nil {
		return &out
	}

	u, err := url.Parse(seed)
	if err != nil {
		return &out
	}
	site := c.SiteConfigs.GetSiteConfig(strings.ToLower(u.Host))

	if site.Depth != 0 {
		out.MaxDepth = site.Depth
	}
	if site.Delay != 0 {
		out.Delay = site.Delay
	}
	if site.Cookie != "" {
		out.Cookie = site.Cookie
	}
	for k, v := range site.Headers {
		out.Headers[k] = v
	}
	if len(site.IgnorePatterns) > 0 {
		out.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		out.FollowPatterns = site.FollowPatterns
	}
	if site.KeywordFile != "" {
		out.KeywordFile = site.KeywordFile
	}
	return &out
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	for _, seed := range c.Seeds {
		u, err := url.Parse(seed)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidSeed
		}
	}

	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxPasses < 0 {
		return ErrInvalidMaxPasses
	}

	if c.MaxRequestsPerSecond < 0 {
		return ErrInvalidRequestRate
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.UseTor && c.SocksProxy != "" {
		return ErrConflictingProxies
	}

	return nil
}
