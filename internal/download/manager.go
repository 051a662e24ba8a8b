package download

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/sitescan/internal/fetch"
	"github.com/nao1215/sitescan/internal/model"
)

const (
	unknownExtension = ".unknown"
	defaultFileName  = "index.html"
)

// Guard blocks until the network is reachable.
type Guard interface {
	EnsureOnline(ctx context.Context) error
}

// Manager saves fetched resources to disk.
type Manager struct {
	root    string
	fetcher fetch.Fetcher
	guard   Guard
	exif    bool
	logger  *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithGuard sets the connectivity guard consulted before each download.
func WithGuard(g Guard) Option {
	return func(m *Manager) {
		m.guard = g
	}
}

// WithEXIF toggles EXIF extraction for images.
func WithEXIF(enabled bool) Option {
	return func(m *Manager) {
		m.exif = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager storing files below root.
func NewManager(root string, fetcher fetch.Fetcher, opts ...Option) *Manager {
	m := &Manager{
		root:    root,
		fetcher: fetcher,
		exif:    true,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Save fetches address and writes it to its extension-keyed location.
func (m *Manager) Save(ctx context.Context, address string) (*model.DownloadRecord, error) {
	if m.fetcher == nil {
		return nil, ErrNoFetcher
	}
	if m.guard != nil {
		if err := m.guard.EnsureOnline(ctx); err != nil {
			return nil, err
		}
	}

	page, err := m.fetcher.Fetch(ctx, address)
	if err != nil {
		return nil, err
	}
	if page.StatusCode != http.StatusOK {
		return nil, &StatusError{Address: address, StatusCode: page.StatusCode}
	}

	dir, name, err := Location(address)
	if err != nil {
		return nil, err
	}
	dir = filepath.Join(m.root, dir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, page.Raw, 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", target, err)
	}

	sum := sha3.Sum256(page.Raw)
	rec := &model.DownloadRecord{
		Address: address,
		Path:    target,
		Size:    int64(len(page.Raw)),
		Digest:  hex.EncodeToString(sum[:]),
	}
	if m.exif && hasEXIFContainer(name) {
		rec.Metadata = InspectEXIF(page.Raw)
	}

	m.logger.Info("downloaded", "url", address, "path", target)
	return rec, nil
}

// Location returns the directory (relative to the download root) and file
// name an address is stored under.
func Location(address string) (dir, name string, err error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", "", fmt.Errorf("parse %s: %w", address, err)
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || ext == "." {
		ext = unknownExtension
	}

	name = u.Path[strings.LastIndex(u.Path, "/")+1:]
	if name == "" || name == "." || name == ".." {
		name = defaultFileName
	}
	return strings.TrimPrefix(ext, "."), name, nil
}
