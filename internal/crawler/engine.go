package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/nao1215/sitescan/internal/download"
	"github.com/nao1215/sitescan/internal/extract"
	"github.com/nao1215/sitescan/internal/fetch"
	"github.com/nao1215/sitescan/internal/model"
)

// Downloader persists the resource behind an address.
type Downloader interface {
	Save(ctx context.Context, address string) (*model.DownloadRecord, error)
}

// Engine performs the depth-bounded traversal of a site.
//
// An Engine is bound to one seed's configuration and may be reused across
// the passes of a run. It keeps no traversal state of its own apart from the
// change detector snapshots: everything a run accumulates lives in the
// model.RunState handed to each call.
type Engine struct {
	fetcher   fetch.Fetcher
	extractor *extract.Extractor

	maxDepth       int
	origin         string
	followExternal bool
	ignorePatterns []string
	followPatterns []string

	limiter    *RateLimiter
	guard      *ConnectivityGuard
	robots     *RobotsPolicy
	downloader Downloader
	detector   *ChangeDetector
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth sets the maximum traversal depth. The seed is at depth 0.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth >= 0 {
			e.maxDepth = depth
		}
	}
}

// WithOrigin sets the prefix that makes an address same-origin.
// When unset, the address passed to Crawl is used.
func WithOrigin(origin string) Option {
	return func(e *Engine) {
		e.origin = origin
	}
}

// WithFollowExternal allows descending into cross-origin links.
func WithFollowExternal(follow bool) Option {
	return func(e *Engine) {
		e.followExternal = follow
	}
}

// WithIgnorePatterns sets glob patterns for paths that are never descended into.
func WithIgnorePatterns(patterns []string) Option {
	return func(e *Engine) {
		e.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts descent to paths matching one of the patterns.
func WithFollowPatterns(patterns []string) Option {
	return func(e *Engine) {
		e.followPatterns = patterns
	}
}

// WithRateLimiter sets the pause applied before same-origin descent.
func WithRateLimiter(limiter *RateLimiter) Option {
	return func(e *Engine) {
		e.limiter = limiter
	}
}

// WithGuard sets the connectivity guard consulted before every fetch.
func WithGuard(guard *ConnectivityGuard) Option {
	return func(e *Engine) {
		e.guard = guard
	}
}

// WithRobots enables robots.txt checks before descent.
func WithRobots(policy *RobotsPolicy) Option {
	return func(e *Engine) {
		e.robots = policy
	}
}

// WithDownloader enables file downloads for newly discovered links.
func WithDownloader(d Downloader) Option {
	return func(e *Engine) {
		e.downloader = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine.
func New(fetcher fetch.Fetcher, extractor *extract.Extractor, opts ...Option) *Engine {
	e := &Engine{
		fetcher:   fetcher,
		extractor: extractor,
		maxDepth:  3,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.extractor == nil {
		e.extractor = extract.New(extract.WithLogger(e.logger))
	}
	e.detector = newChangeDetector(e)
	return e
}

// Detector returns the change detector fed by this engine's visits.
func (e *Engine) Detector() *ChangeDetector {
	return e.detector
}

// MaxDepth returns the configured maximum depth.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// frame is one level of the explicit traversal stack.
type frame struct {
	depth    int
	links    []string
	next     int
	progress *progress

	// resumed is set while a child subtree sits above this frame. Once the
	// frame is on top again the pending download, if any, is saved.
	resumed  bool
	download string
}

// Crawl visits address at depth and everything reachable from it within the
// depth bound, in pre-order.
//
// Addresses deeper than the maximum depth, or already visited, are skipped.
// Fetch and extraction failures are recorded in the run state and never stop
// the traversal; only context cancellation does.
func (e *Engine) Crawl(ctx context.Context, state *model.RunState, address string, depth int) error {
	address = model.NormalizeAddress(address)
	origin := e.origin
	if origin == "" {
		origin = address
	}
	origin = originPrefix(origin)

	if depth > e.maxDepth || state.Addresses.IsVisited(address) {
		return nil
	}
	state.Addresses.AddAtDepth(address, depth)

	links, err := e.visit(ctx, state, address)
	if err != nil {
		return err
	}

	stack := []*frame{e.newFrame(depth, links)}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		top := stack[len(stack)-1]
		if top.resumed {
			top.resumed = false
			if link := top.download; link != "" {
				top.download = ""
				if err := e.download(ctx, state, link); err != nil {
					return err
				}
			}
			top.progress.report(top.next)
		}

		if top.next >= len(top.links) {
			stack = stack[:len(stack)-1]
			continue
		}
		link := top.links[top.next]
		top.next++

		childDepth := top.depth + 1
		if !state.Addresses.AddAtDepth(link, childDepth) {
			top.progress.report(top.next)
			continue
		}

		var child *frame
		if childDepth <= e.maxDepth && e.shouldDescend(ctx, link, origin) {
			if e.isSameOrigin(link, origin) {
				if err := e.limiter.Wait(ctx); err != nil {
					return err
				}
			}
			links, err := e.visit(ctx, state, link)
			if err != nil {
				return err
			}
			child = e.newFrame(childDepth, links)
		}

		if child != nil {
			top.resumed = true
			if e.downloader != nil {
				top.download = link
			}
			stack = append(stack, child)
			continue
		}

		if e.downloader != nil {
			if err := e.download(ctx, state, link); err != nil {
				return err
			}
		}
		top.progress.report(top.next)
	}
	return nil
}

func (e *Engine) newFrame(depth int, links []string) *frame {
	return &frame{
		depth:    depth,
		links:    links,
		progress: newProgress(e.logger, "crawl", len(links)),
	}
}

// visit marks the address visited, fetches it and commits the extraction.
// It returns the links found; the error is non-nil only on cancellation.
func (e *Engine) visit(ctx context.Context, state *model.RunState, address string) ([]string, error) {
	state.Addresses.MarkVisited(address)

	page, err := e.retrieve(ctx, state, address)
	if page == nil {
		return nil, err
	}

	base := page.BaseURL()
	res := e.extractor.Extract(page.Raw, page.ContentType, base)
	for _, msg := range res.Errors {
		state.AddError("%s", msg)
	}
	res.Commit(state, base)
	e.detector.Baseline(state, address, res.Records)

	e.logger.Debug("visited", "url", address, "links", len(res.Links), "records", len(res.Records))
	return res.Links, nil
}

// retrieve fetches one address behind the connectivity guard.
//
// Failures are classified into the run's error and denied logs; in that case
// both return values are nil and the caller moves on. The error is non-nil
// only when ctx is done.
func (e *Engine) retrieve(ctx context.Context, state *model.RunState, address string) (*model.Page, error) {
	if err := e.guard.EnsureOnline(ctx); err != nil {
		return nil, err
	}

	page, err := e.fetcher.Fetch(ctx, address)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		state.AddError("Error fetching %s: %v", address, err)
		return nil, nil
	}

	if page.IsDenied() {
		state.Addresses.MarkDenied(address)
	}
	if page.StatusCode != http.StatusOK {
		state.AddError("Failed to fetch %s: Status %d", address, page.StatusCode)
		return nil, nil
	}
	if len(page.Raw) == 0 {
		state.AddError("Error fetching %s: %v", address, ErrEmptyBody)
		return nil, nil
	}
	return page, nil
}

func (e *Engine) download(ctx context.Context, state *model.RunState, address string) error {
	rec, err := e.downloader.Save(ctx, address)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var statusErr *download.StatusError
		if errors.As(err, &statusErr) {
			state.AddError("%s", statusErr.Error())
		} else {
			state.AddError("Error downloading %s: %v", address, err)
		}
		return nil
	}
	if rec != nil {
		state.AddDownload(*rec)
		e.logger.Debug("downloaded", "url", address, "path", rec.Path, "bytes", rec.Size)
	}
	return nil
}

// shouldDescend decides whether a newly discovered link is fetched.
func (e *Engine) shouldDescend(ctx context.Context, link, origin string) bool {
	if !e.isSameOrigin(link, origin) && !e.followExternal {
		return false
	}
	if !e.shouldCrawl(link) {
		return false
	}
	return e.allowed(ctx, link)
}

func (e *Engine) allowed(ctx context.Context, address string) bool {
	if e.robots == nil {
		return true
	}
	ok := e.robots.Allowed(ctx, address)
	if !ok {
		e.logger.Debug("disallowed by robots.txt", "url", address)
	}
	return ok
}

func (e *Engine) isSameOrigin(link, origin string) bool {
	return strings.HasPrefix(link, origin)
}

// originPrefix closes a host-only origin with "/" so that the prefix match
// cannot run past the host, as in http://a.test matching http://a.test.evil/.
func originPrefix(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || u.Path != "" || u.RawQuery != "" {
		return origin
	}
	return origin + "/"
}

// shouldCrawl applies the ignore and follow patterns to the link's path.
//
// A path matching any ignore pattern is skipped. When follow patterns are
// set, the path must match at least one of them.
func (e *Engine) shouldCrawl(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	p := u.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range e.ignorePatterns {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(e.followPatterns) == 0 {
		return true
	}
	for _, pattern := range e.followPatterns {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern reports whether a URL path matches a glob pattern.
//
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - "/api/v?" matches "/api/v1"
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*."); ok && !strings.Contains(ext, "/") {
		if strings.HasSuffix(p, "."+ext) {
			return true
		}
	}
	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}
	if !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}
	return false
}
