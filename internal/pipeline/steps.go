package pipeline

import (
	"context"

	"github.com/nao1215/sitescan/internal/model"
)

// Crawler is the part of crawler.Engine the steps drive.
type Crawler interface {
	Crawl(ctx context.Context, state *model.RunState, address string, depth int) error
	AnalyzeScripts(ctx context.Context, state *model.RunState) error
	EnumerateObjects(ctx context.Context, state *model.RunState) error
}

// Detector is the part of crawler.ChangeDetector the steps drive.
type Detector interface {
	DetectChanges(ctx context.Context, state *model.RunState, pass int) (bool, error)
}

// CrawlStep crawls the run's seed from depth 0.
type CrawlStep struct {
	crawler Crawler
}

// NewCrawlStep creates a CrawlStep.
func NewCrawlStep(c Crawler) *CrawlStep {
	return &CrawlStep{crawler: c}
}

// Name returns the step name.
func (s *CrawlStep) Name() string { return "crawl" }

// Do executes the step.
func (s *CrawlStep) Do(ctx context.Context, state *model.RunState) error {
	return s.crawler.Crawl(ctx, state, state.Seed, 0)
}

// ScriptStep scans discovered JavaScript files for embedded addresses.
type ScriptStep struct {
	crawler Crawler
}

// NewScriptStep creates a ScriptStep.
func NewScriptStep(c Crawler) *ScriptStep {
	return &ScriptStep{crawler: c}
}

// Name returns the step name.
func (s *ScriptStep) Name() string { return "analyze_scripts" }

// Do executes the step.
func (s *ScriptStep) Do(ctx context.Context, state *model.RunState) error {
	return s.crawler.AnalyzeScripts(ctx, state)
}

// EnumerateStep records every element of the pending addresses.
type EnumerateStep struct {
	crawler Crawler
}

// NewEnumerateStep creates an EnumerateStep.
func NewEnumerateStep(c Crawler) *EnumerateStep {
	return &EnumerateStep{crawler: c}
}

// Name returns the step name.
func (s *EnumerateStep) Name() string { return "enumerate_objects" }

// Do executes the step.
func (s *EnumerateStep) Do(ctx context.Context, state *model.RunState) error {
	return s.crawler.EnumerateObjects(ctx, state)
}

// DetectStep re-fetches known addresses for one convergence pass and
// remembers whether anything changed.
type DetectStep struct {
	detector Detector
	pass     int
	changed  bool
}

// NewDetectStep creates a DetectStep for the given pass.
func NewDetectStep(d Detector, pass int) *DetectStep {
	return &DetectStep{detector: d, pass: pass}
}

// Name returns the step name.
func (s *DetectStep) Name() string { return "detect_changes" }

// Do executes the step.
func (s *DetectStep) Do(ctx context.Context, state *model.RunState) error {
	changed, err := s.detector.DetectChanges(ctx, state, s.pass)
	s.changed = changed
	return err
}

// Changed reports whether the last Do found a change.
func (s *DetectStep) Changed() bool {
	return s.changed
}
