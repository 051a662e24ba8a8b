package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunState holds everything a single run accumulates.
//
// It is created when the run starts, mutated by the crawl engine, the change
// detector and the download manager, and flushed to the result sinks once the
// run ends. The state is passed by reference; there are no package globals.
//
// All mutators are safe for concurrent use.
type RunState struct {
	mu sync.Mutex

	// ID uniquely identifies the run in the history database.
	ID string

	// Seed is the address the run started from.
	Seed string

	// StartedAt is when the run was created.
	StartedAt time.Time

	// FinishedAt is set by Finish.
	FinishedAt time.Time

	// Addresses is the run's address registry.
	Addresses *AddressSet

	passes        int
	records       []TagRecord
	keywords      KeywordTally
	customHits    *CustomKeywordHits
	changes       []ChangeRecord
	errors        []string
	downloads     []DownloadRecord
	executedSteps []string
	interrupted   bool
}

// CustomHit is one keyword together with the addresses it was found at.
type CustomHit struct {
	Keyword   string   `json:"keyword"`
	Locations []string `json:"locations"`
}

// NewRunState creates the state for a run starting at seed.
func NewRunState(seed string) *RunState {
	return &RunState{
		ID:         uuid.NewString(),
		Seed:       seed,
		StartedAt:  time.Now(),
		Addresses:  NewAddressSet(),
		keywords:   make(KeywordTally),
		customHits: NewCustomKeywordHits(),
	}
}

// AddRecords appends extracted records to the run's object list.
func (r *RunState) AddRecords(records ...TagRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
}

// MergeKeywords folds a keyword delta into the cumulative tally.
func (r *RunState) MergeKeywords(delta map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keywords.Merge(delta)
}

// RecordCustomHit appends the address to the keyword's hit list.
func (r *RunState) RecordCustomHit(keyword, address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customHits.Record(keyword, address)
}

// AddChange appends a detected change to the change log.
func (r *RunState) AddChange(change ChangeRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

// AddError appends a human-readable entry to the error log.
func (r *RunState) AddError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

// AddDownload records a persisted file.
func (r *RunState) AddDownload(d DownloadRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads = append(r.downloads, d)
}

// MarkStepExecuted records that a pipeline step ran.
func (r *RunState) MarkStepExecuted(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executedSteps = append(r.executedSteps, name)
}

// BeginPass increments and returns the convergence pass counter.
func (r *RunState) BeginPass() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes++
	return r.passes
}

// MarkInterrupted records that the run was cancelled before it converged.
func (r *RunState) MarkInterrupted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interrupted = true
}

// Interrupted reports whether MarkInterrupted was called.
func (r *RunState) Interrupted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.interrupted
}

// Passes returns the number of convergence passes started.
func (r *RunState) Passes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passes
}

// Finish stamps the end time.
func (r *RunState) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FinishedAt = time.Now()
}

// Duration returns how long the run took, or has taken so far.
func (r *RunState) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Records returns a copy of the extracted records.
func (r *RunState) Records() []TagRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TagRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Keywords returns the tally sorted by descending count.
func (r *RunState) Keywords() []KeywordCount {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keywords.Sorted()
}

// KeywordCount returns the cumulative count of a single word.
func (r *RunState) KeywordCount(word string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.keywords[word]
}

// CustomHits returns the custom keyword hits in first-hit order.
func (r *RunState) CustomHits() []CustomHit {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]CustomHit, 0, r.customHits.Len())
	for _, kw := range r.customHits.Keywords() {
		out = append(out, CustomHit{Keyword: kw, Locations: r.customHits.Locations(kw)})
	}
	return out
}

// Changes returns a copy of the change log.
func (r *RunState) Changes() []ChangeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ChangeRecord, len(r.changes))
	copy(out, r.changes)
	return out
}

// Errors returns a copy of the error log.
func (r *RunState) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.errors))
	copy(out, r.errors)
	return out
}

// Downloads returns a copy of the download records.
func (r *RunState) Downloads() []DownloadRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DownloadRecord, len(r.downloads))
	copy(out, r.downloads)
	return out
}

// ExecutedSteps returns the names of the pipeline steps that ran, in order.
func (r *RunState) ExecutedSteps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.executedSteps))
	copy(out, r.executedSteps)
	return out
}
