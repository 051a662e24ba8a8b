package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescan/internal/model"
)

// Artifact file names inside the results directory.
const (
	AddressesFile      = "output.json"
	ObjectsFile        = "objects.json"
	DeniedFile         = "denied_urls.txt"
	ErrorsFile         = "errors.txt"
	ChangesFile        = "changing_data.txt"
	KeywordsFile       = "keywords.txt"
	KeywordResultsFile = "keyword_results.txt"
)

const jsonIndent = "    "

// FileSink writes the run artifacts into a directory.
// Existing files are overwritten.
type FileSink struct {
	dir         string
	scanURLs    bool
	scanObjects bool
	logger      *slog.Logger
}

// FileOption configures a FileSink.
type FileOption func(*FileSink)

// WithScanURLs controls whether output.json is written.
func WithScanURLs(enabled bool) FileOption {
	return func(s *FileSink) {
		s.scanURLs = enabled
	}
}

// WithScanObjects controls whether objects.json is written.
func WithScanObjects(enabled bool) FileOption {
	return func(s *FileSink) {
		s.scanObjects = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FileOption {
	return func(s *FileSink) {
		s.logger = logger
	}
}

// NewFileSink creates a FileSink rooted at dir.
func NewFileSink(dir string, opts ...FileOption) *FileSink {
	s := &FileSink{
		dir:         dir,
		scanURLs:    true,
		scanObjects: true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write implements ResultSink.
func (s *FileSink) Write(_ context.Context, state *model.RunState) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	type artifact struct {
		name   string
		render func(*model.RunState) ([]byte, error)
	}
	artifacts := []artifact{
		{DeniedFile, renderDenied},
		{ErrorsFile, renderErrors},
		{ChangesFile, renderChanges},
		{KeywordsFile, renderKeywords},
		{KeywordResultsFile, renderKeywordResults},
	}
	if s.scanURLs {
		artifacts = append(artifacts, artifact{AddressesFile, renderAddresses})
	}
	if s.scanObjects {
		artifacts = append(artifacts, artifact{ObjectsFile, renderObjects})
	}

	var g errgroup.Group
	for _, a := range artifacts {
		g.Go(func() error {
			data, err := a.render(state)
			if err != nil {
				return fmt.Errorf("render %s: %w", a.name, err)
			}
			path := filepath.Join(s.dir, a.name)
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", a.name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("results written", "dir", s.dir, "files", len(artifacts))
	return nil
}

func renderAddresses(state *model.RunState) ([]byte, error) {
	return json.MarshalIndent(state.Addresses.Discovered(), "", jsonIndent)
}

func renderObjects(state *model.RunState) ([]byte, error) {
	return json.MarshalIndent(state.Records(), "", jsonIndent)
}

func renderDenied(state *model.RunState) ([]byte, error) {
	return lines(state.Addresses.Denied()), nil
}

func renderErrors(state *model.RunState) ([]byte, error) {
	return lines(state.Errors()), nil
}

func renderChanges(state *model.RunState) ([]byte, error) {
	changes := state.Changes()
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.String()
	}
	return lines(out), nil
}

func renderKeywords(state *model.RunState) ([]byte, error) {
	keywords := state.Keywords()
	parts := make([]string, len(keywords))
	for i, kw := range keywords {
		parts[i] = kw.Word + ":" + strconv.Itoa(kw.Count)
	}
	return []byte(strings.Join(parts, ", ")), nil
}

func renderKeywordResults(state *model.RunState) ([]byte, error) {
	var b strings.Builder
	for _, hit := range state.CustomHits() {
		fmt.Fprintf(&b, "%s: %d occurrences\n", hit.Keyword, len(hit.Locations))
		fmt.Fprintf(&b, "Locations: %s\n\n", strings.Join(hit.Locations, ", "))
	}
	return []byte(b.String()), nil
}

// lines joins entries with newlines, terminating the last one.
func lines(entries []string) []byte {
	if len(entries) == 0 {
		return nil
	}
	return []byte(strings.Join(entries, "\n") + "\n")
}
