package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescan/internal/config"
	"github.com/nao1215/sitescan/internal/crawler"
	"github.com/nao1215/sitescan/internal/database"
	"github.com/nao1215/sitescan/internal/download"
	"github.com/nao1215/sitescan/internal/extract"
	"github.com/nao1215/sitescan/internal/fetch"
	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/pipeline"
	"github.com/nao1215/sitescan/internal/report"
	"github.com/nao1215/sitescan/internal/sink"
	"github.com/nao1215/sitescan/internal/tor"
)

var (
	// errInterrupted is returned when the scan was stopped by a signal.
	// Partial results have been written by then.
	errInterrupted = errors.New("scan interrupted")

	// errOnionNeedsProxy is returned for .onion seeds without a Tor route.
	errOnionNeedsProxy = errors.New("onion seeds require --tor or --socks-proxy")
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [seed...]",
		Short: "Crawl a site and record what it contains",
		Long: `Scan crawls each seed address recursively and records:
- every discovered address (and which ones were denied)
- a tag record for every link, script, image and form
- word frequencies of the visible text and custom keyword hits
- records that appear when the site is re-scanned

Seeds without a scheme are crawled over http. Several seeds are scanned as
independent runs; with more than one seed, each run writes its results to
a subdirectory of the results directory named after the seed's host.

Press Ctrl+C to stop a scan. The results gathered so far are still written.

Examples:
  # Crawl a site three levels deep
  sitescan scan https://example.com/

  # Only collect addresses, do not record tags or keywords
  sitescan scan --no-objects https://example.com/

  # Download every discovered file and write a Markdown summary
  sitescan scan --download --markdown -o report.md https://example.com/

  # Scan seeds listed in a file, two at a time
  sitescan scan --list seeds.txt --batch 2

  # Crawl an onion service through an embedded Tor daemon
  sitescan scan --tor http://exampleonion.onion/`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Crawl behaviour
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum crawl depth (the seed is depth 0)")
	cmd.Flags().Duration("delay", config.DefaultDelay,
		"Pause before each same-origin descent")
	cmd.Flags().Bool("no-urls", false,
		"Disable link discovery and recursion")
	cmd.Flags().Bool("no-objects", false,
		"Disable tag records and keyword counting")
	cmd.Flags().Bool("download", false,
		"Save every discovered resource below the download directory")
	cmd.Flags().String("results-dir", config.DefaultResultsDir,
		"Directory for the result files")
	cmd.Flags().String("download-dir", "",
		"Directory for downloaded files (default: <results-dir>/downloads)")
	cmd.Flags().StringP("keywords", "k", "",
		"Custom keyword file, one keyword per line (default: <results-dir>/custom_keywords.txt)")
	cmd.Flags().Int("max-passes", config.DefaultMaxPasses,
		"Maximum change detection passes (0 = until nothing changes)")
	cmd.Flags().String("origin", "",
		"Address prefix that counts as same-origin (default: the seed)")
	cmd.Flags().Bool("follow-external", false,
		"Also descend into addresses outside the origin")
	cmd.Flags().Bool("respect-robots", false,
		"Skip same-origin addresses disallowed by robots.txt")
	cmd.Flags().StringSlice("ignore", nil,
		"Glob patterns of URL paths never descended into")
	cmd.Flags().StringSlice("follow", nil,
		"Glob patterns of URL paths to descend into (all others are skipped)")

	// Transport
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().Float64("max-rps", 0,
		"Maximum requests per second across the run (0 = unlimited)")
	cmd.Flags().String("cookie", "",
		"Cookie sent with every request")
	cmd.Flags().StringToString("header", nil,
		"Extra request header as Name=Value (repeatable)")
	cmd.Flags().String("socks-proxy", "",
		"Route traffic through a SOCKS5 proxy (e.g. 127.0.0.1:9050)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route traffic through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Connectivity
	cmd.Flags().String("probe-address", config.DefaultProbeAddress,
		"TCP address dialled to check that the network is up")
	cmd.Flags().Bool("skip-connectivity-check", false,
		"Do not wait for the network before each request")

	// Runs and output
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds scanned concurrently")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitescan in current or home directory)")
	cmd.Flags().StringP("list", "l", "",
		"File with one seed per line")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the summary to a file instead of stdout")
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the SQLite history database (default: XDG data directory)")
	cmd.Flags().String("db-dsn", "",
		"PostgreSQL connection URL for the history database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := checkOnionSeeds(cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig creates a Config from defaults, the environment, the
// configuration file and the command flags, in increasing precedence.
// Flags only override earlier layers when they were set explicitly.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.DBDir = config.XDGDataDir()

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	flags := cmd.Flags()
	var err error

	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if err := loadSiteConfigs(cfg); err != nil {
		return nil, err
	}

	if flags.Changed("depth") {
		if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("delay") {
		if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
			return nil, err
		}
	}

	noURLs, err := flags.GetBool("no-urls")
	if err != nil {
		return nil, err
	}
	cfg.ScanURLs = !noURLs

	noObjects, err := flags.GetBool("no-objects")
	if err != nil {
		return nil, err
	}
	cfg.ScanObjects = !noObjects

	if cfg.DownloadFiles, err = flags.GetBool("download"); err != nil {
		return nil, err
	}
	if flags.Changed("results-dir") {
		if cfg.ResultsDir, err = flags.GetString("results-dir"); err != nil {
			return nil, err
		}
	}
	if cfg.DownloadDir, err = flags.GetString("download-dir"); err != nil {
		return nil, err
	}
	if cfg.KeywordFile, err = flags.GetString("keywords"); err != nil {
		return nil, err
	}
	if cfg.MaxPasses, err = flags.GetInt("max-passes"); err != nil {
		return nil, err
	}
	if cfg.Origin, err = flags.GetString("origin"); err != nil {
		return nil, err
	}
	if cfg.FollowExternal, err = flags.GetBool("follow-external"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
		return nil, err
	}
	if cfg.IgnorePatterns, err = flags.GetStringSlice("ignore"); err != nil {
		return nil, err
	}
	if cfg.FollowPatterns, err = flags.GetStringSlice("follow"); err != nil {
		return nil, err
	}

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.MaxRequestsPerSecond, err = flags.GetFloat64("max-rps"); err != nil {
		return nil, err
	}
	if flags.Changed("cookie") {
		if cfg.Cookie, err = flags.GetString("cookie"); err != nil {
			return nil, err
		}
	}
	if cfg.Headers, err = flags.GetStringToString("header"); err != nil {
		return nil, err
	}
	if flags.Changed("socks-proxy") {
		if cfg.SocksProxy, err = flags.GetString("socks-proxy"); err != nil {
			return nil, err
		}
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}

	if cfg.ProbeAddress, err = flags.GetString("probe-address"); err != nil {
		return nil, err
	}
	if cfg.SkipConnectivityCheck, err = flags.GetBool("skip-connectivity-check"); err != nil {
		return nil, err
	}

	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-dsn") {
		if cfg.DatabaseDSN, err = flags.GetString("db-dsn"); err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")

	listFile, err := flags.GetString("list")
	if err != nil {
		return nil, err
	}
	seeds := append([]string(nil), args...)
	if listFile != "" {
		listed, err := readSeedList(listFile)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, listed...)
	}
	cfg.Seeds = normalizeSeeds(seeds)

	return cfg, nil
}

// loadSiteConfigs loads the configuration file into cfg.SiteConfigs.
// A missing file is an error only when the user named it explicitly.
func loadSiteConfigs(cfg *config.Config) error {
	explicit := cfg.ConfigFilePath != ""
	path := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case path != "":
		site, err := config.LoadConfigFile(path)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.SiteConfigs = site
	case explicit:
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	return nil
}

// readSeedList reads one seed per line. Blank lines and lines starting with
// '#' are skipped.
func readSeedList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open seed list: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seed list: %w", err)
	}
	return seeds, nil
}

// normalizeSeeds adds a missing http scheme, drops fragments and removes
// duplicates while keeping the order.
func normalizeSeeds(seeds []string) []string {
	out := make([]string, 0, len(seeds))
	seen := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.Contains(s, "://") {
			s = "http://" + s
		}
		s = model.NormalizeAddress(s)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// checkOnionSeeds validates .onion seeds and makes sure they can be reached.
func checkOnionSeeds(cfg *config.Config) error {
	if !hasOnionSeed(cfg.Seeds) {
		return nil
	}
	for _, seed := range cfg.Seeds {
		u, err := url.Parse(seed)
		if err != nil {
			return fmt.Errorf("%w: %s", config.ErrInvalidSeed, seed)
		}
		if !tor.IsOnionHost(u.Hostname()) {
			continue
		}
		if err := tor.ValidateOnionHost(u.Hostname()); err != nil {
			return fmt.Errorf("seed %s: %w", seed, err)
		}
	}
	if !cfg.UseTor && cfg.SocksProxy == "" {
		return errOnionNeedsProxy
	}
	return nil
}

func hasOnionSeed(seeds []string) bool {
	for _, seed := range seeds {
		if u, err := url.Parse(seed); err == nil && tor.IsOnionHost(u.Hostname()) {
			return true
		}
	}
	return false
}

// runScan executes the scan of every seed and writes the summaries to out.
// Progress messages go to status.
func runScan(ctx context.Context, cfg *config.Config, out, status io.Writer, logger *slog.Logger) error {
	logger.Info("starting scan",
		"seeds", cfg.Seeds,
		"max_depth", cfg.MaxDepth,
		"batch_size", cfg.BatchSize,
		"save_to_db", cfg.SaveToDB,
	)

	transport, err := setupTransport(ctx, cfg, status, logger)
	if err != nil {
		return err
	}
	defer transport.close()

	var guard *crawler.ConnectivityGuard
	if !cfg.SkipConnectivityCheck {
		guard = crawler.NewConnectivityGuard(transport.probe, cfg.ProbeInterval, logger)
	}

	var db *database.RunDB
	if cfg.SaveToDB {
		db, err = database.Connect(ctx, cfg.DatabaseDSN, cfg.DBDir)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close() //nolint:errcheck // closed on exit
		logger.Info("database opened", "location", db.Location())
	}

	reportOut, closeReport, err := openReportOutput(cfg.ReportFile, out)
	if err != nil {
		return err
	}
	defer closeReport()
	reports := sink.NewReportSink(newReportWriter(cfg, reportOut), report.DefaultTopKeywords)

	factory := func(seed string) (*pipeline.Runner, error) {
		return newRunner(cfg, seed, transport.roundTripper, guard, db, reports, logger)
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	var mu sync.Mutex
	err = bp.ProcessBatchWithCallback(ctx, cfg.Seeds, func(state *model.RunState, index int) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(status, "[%d/%d] Scan finished: %s (%d addresses, %d errors)\n",
			index+1, len(cfg.Seeds), state.Seed, state.Addresses.Len(), len(state.Errors()))
	})

	if len(cfg.Seeds) > 1 {
		fmt.Fprintf(status, "\nBatch scan completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	}

	if ctx.Err() != nil {
		return errInterrupted
	}
	return err
}

// newRunner assembles the crawl engine, its collaborators and the result
// sinks for one seed.
func newRunner(
	cfg *config.Config,
	seed string,
	rt http.RoundTripper,
	guard *crawler.ConnectivityGuard,
	db *database.RunDB,
	reports sink.ResultSink,
	logger *slog.Logger,
) (*pipeline.Runner, error) {
	siteCfg := cfg.ForSeed(seed)
	keywordFile := siteCfg.EffectiveKeywordFile()
	if len(cfg.Seeds) > 1 {
		dir, err := seedDir(seed)
		if err != nil {
			return nil, err
		}
		siteCfg.ResultsDir = filepath.Join(cfg.ResultsDir, dir)
	}
	runLogger := logger.With("seed", seed)

	fetchOpts := []fetch.Option{
		fetch.WithUserAgent(siteCfg.UserAgent),
		fetch.WithHeaders(siteCfg.Headers),
		fetch.WithCookie(siteCfg.Cookie),
		fetch.WithTimeout(siteCfg.Timeout),
		fetch.WithMaxBodySize(siteCfg.MaxBodySize),
		fetch.WithRequestRate(siteCfg.MaxRequestsPerSecond),
		fetch.WithLogger(runLogger),
	}
	if rt != nil {
		fetchOpts = append(fetchOpts, fetch.WithTransport(rt))
	}
	fetcher := fetch.NewHTTPFetcher(fetchOpts...)

	extractor := extract.New(
		extract.WithKeywordSource(extract.KeywordFile(keywordFile)),
		extract.WithScanURLs(siteCfg.ScanURLs),
		extract.WithScanObjects(siteCfg.ScanObjects),
		extract.WithLogger(runLogger),
	)

	engineOpts := []crawler.Option{
		crawler.WithMaxDepth(siteCfg.MaxDepth),
		crawler.WithOrigin(siteCfg.OriginFor(seed)),
		crawler.WithFollowExternal(siteCfg.FollowExternal),
		crawler.WithIgnorePatterns(siteCfg.IgnorePatterns),
		crawler.WithFollowPatterns(siteCfg.FollowPatterns),
		crawler.WithRateLimiter(crawler.NewRateLimiter(siteCfg.Delay)),
		crawler.WithGuard(guard),
		crawler.WithLogger(runLogger),
	}
	if siteCfg.RespectRobots {
		engineOpts = append(engineOpts,
			crawler.WithRobots(crawler.NewRobotsPolicy(fetcher.Client(), fetcher.UserAgent(), guard)))
	}
	if siteCfg.DownloadFiles {
		dlOpts := []download.Option{
			download.WithEXIF(siteCfg.ScanObjects),
			download.WithLogger(runLogger),
		}
		if guard != nil {
			dlOpts = append(dlOpts, download.WithGuard(guard))
		}
		engineOpts = append(engineOpts,
			crawler.WithDownloader(download.NewManager(siteCfg.EffectiveDownloadDir(), fetcher, dlOpts...)))
	}
	engine := crawler.New(fetcher, extractor, engineOpts...)

	sinks := sink.Multi{
		sink.NewFileSink(siteCfg.ResultsDir,
			sink.WithScanURLs(siteCfg.ScanURLs),
			sink.WithScanObjects(siteCfg.ScanObjects),
			sink.WithLogger(runLogger),
		),
		reports,
	}
	if db != nil {
		sinks = append(sinks, sink.NewDatabaseSink(db, runLogger))
	}

	return pipeline.NewRunner(engine, engine.Detector(),
		pipeline.WithScanURLs(siteCfg.ScanURLs),
		pipeline.WithScanObjects(siteCfg.ScanObjects),
		pipeline.WithMaxPasses(siteCfg.MaxPasses),
		pipeline.WithSink(sinks),
		pipeline.WithRunnerLogger(runLogger),
	), nil
}

// seedDir returns a directory name for a seed's results: its host, with the
// port separator replaced so the name is valid on every platform.
func seedDir(seed string) (string, error) {
	u, err := url.Parse(seed)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %s", config.ErrInvalidSeed, seed)
	}
	return strings.ReplaceAll(strings.ToLower(u.Host), ":", "_"), nil
}

// scanTransport is the network route shared by every run.
type scanTransport struct {
	// roundTripper is nil for direct connections.
	roundTripper http.RoundTripper

	// probe is dialled by the connectivity guard.
	probe crawler.Probe

	close func()
}

// setupTransport prepares direct, SOCKS5 or embedded Tor connectivity.
func setupTransport(ctx context.Context, cfg *config.Config, status io.Writer, logger *slog.Logger) (*scanTransport, error) {
	clientOpts := []tor.ClientOption{
		tor.WithTimeout(cfg.Timeout),
		tor.WithInsecureSkipVerify(hasOnionSeed(cfg.Seeds)),
	}

	switch {
	case cfg.UseTor:
		return startEmbeddedTor(ctx, cfg, clientOpts, status, logger)

	case cfg.SocksProxy != "":
		client, err := tor.NewClient(cfg.SocksProxy, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS client: %w", err)
		}
		if st := client.CheckConnection(ctx); st != tor.ProxyStatusOK {
			return nil, fmt.Errorf("SOCKS proxy check failed: %w (make sure the proxy is running at %s)",
				st.Err(), cfg.SocksProxy)
		}
		logger.Info("SOCKS proxy connection verified", "address", cfg.SocksProxy)
		return &scanTransport{
			roundTripper: client.Transport(),
			probe:        client,
			close:        func() {},
		}, nil

	default:
		return &scanTransport{
			probe: crawler.DialProbe{Address: cfg.ProbeAddress, Timeout: cfg.ProbeTimeout},
			close: func() {},
		}, nil
	}
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
func startEmbeddedTor(
	ctx context.Context,
	cfg *config.Config,
	clientOpts []tor.ClientOption,
	status io.Writer,
	logger *slog.Logger,
) (*scanTransport, error) {
	fmt.Fprintln(status, "Starting embedded Tor daemon...")
	fmt.Fprintf(status, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embedded := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
		tor.WithLogger(logger),
	)
	if err := embedded.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	stopTor := func() {
		logger.Info("stopping embedded Tor daemon")
		if err := embedded.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	client, err := embedded.NewClient(clientOpts...)
	if err != nil {
		stopTor()
		return nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	if st := client.CheckConnection(ctx); st != tor.ProxyStatusOK {
		stopTor()
		return nil, fmt.Errorf("embedded Tor proxy check failed: %w", st.Err())
	}

	fmt.Fprintf(status, "Embedded Tor daemon started (SOCKS proxy: %s)\n\n", embedded.SocksAddr())
	return &scanTransport{
		roundTripper: client.Transport(),
		probe:        client,
		close:        stopTor,
	}, nil
}

// openReportOutput returns the summary destination: the report file when
// one is configured, fallback otherwise.
func openReportOutput(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Summaries list crawled addresses, so only the owner may read them.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newReportWriter selects the summary format.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}
