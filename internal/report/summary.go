package report

import (
	"time"

	"github.com/nao1215/sitescan/internal/model"
)

// DefaultTopKeywords is the number of keywords kept in a Summary.
const DefaultTopKeywords = 10

// ChangeSummary is the condensed form of a model.ChangeRecord.
type ChangeSummary struct {
	Source     string `json:"source"`
	Pass       int    `json:"pass"`
	NewRecords int    `json:"new_records"`
}

// Summary is the overview of one run.
type Summary struct {
	RunID      string        `json:"run_id"`
	Seed       string        `json:"seed"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	Passes     int           `json:"passes"`

	Discovered int `json:"discovered"`
	Visited    int `json:"visited"`
	Denied     int `json:"denied"`
	Pending    int `json:"pending"`

	Records   int `json:"records"`
	Downloads int `json:"downloads"`

	TopKeywords []model.KeywordCount `json:"top_keywords"`
	CustomHits  []model.CustomHit    `json:"custom_hits"`
	Changes     []ChangeSummary      `json:"changes"`
	Errors      []string             `json:"errors"`
	DeniedURLs  []string             `json:"denied_urls"`

	// Interrupted is set when the run was cancelled before it converged.
	Interrupted bool `json:"interrupted"`
}

// NewSummary digests a run state, keeping the topN most frequent keywords.
func NewSummary(state *model.RunState, topN int) *Summary {
	discovered, visited, denied := state.Addresses.Counts()

	keywords := state.Keywords()
	if topN > 0 && len(keywords) > topN {
		keywords = keywords[:topN]
	}

	changes := state.Changes()
	cs := make([]ChangeSummary, 0, len(changes))
	for _, c := range changes {
		cs = append(cs, ChangeSummary{Source: c.Source, Pass: c.Pass, NewRecords: len(c.Records)})
	}

	return &Summary{
		RunID:       state.ID,
		Seed:        state.Seed,
		StartedAt:   state.StartedAt,
		FinishedAt:  state.FinishedAt,
		Duration:    state.Duration(),
		Passes:      state.Passes(),
		Discovered:  discovered,
		Visited:     visited,
		Denied:      denied,
		Pending:     len(state.Addresses.Pending()),
		Records:     len(state.Records()),
		Downloads:   len(state.Downloads()),
		TopKeywords: keywords,
		CustomHits:  state.CustomHits(),
		Changes:     cs,
		Errors:      state.Errors(),
		DeniedURLs:  state.Addresses.Denied(),
		Interrupted: state.Interrupted(),
	}
}

// Fetched returns the number of visited addresses that were not denied.
func (s *Summary) Fetched() int {
	return s.Visited - s.Denied
}

// HasChanges reports whether any change was detected.
func (s *Summary) HasChanges() bool {
	return len(s.Changes) > 0
}
