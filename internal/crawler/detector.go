package crawler

import (
	"context"
	"sync"
	"time"

	"github.com/nao1215/sitescan/internal/model"
)

// ChangeDetector finds addresses whose extracted records differ between
// visits.
//
// It keeps, per address, the records of the most recent extraction. The
// engine stores a snapshot on every successful visit; DetectChanges re-fetches
// the known addresses and compares.
type ChangeDetector struct {
	engine *Engine

	mu        sync.Mutex
	snapshots map[string][]model.TagRecord
	// fetched maps an address to the pass in which it was last fetched.
	fetched map[string]int
}

func newChangeDetector(e *Engine) *ChangeDetector {
	return &ChangeDetector{
		engine:    e,
		snapshots: make(map[string][]model.TagRecord),
		fetched:   make(map[string]int),
	}
}

// Baseline stores the records extracted from address during the current pass.
func (d *ChangeDetector) Baseline(state *model.RunState, address string, records []model.TagRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapshots[address] = records
	d.fetched[address] = state.Passes()
}

// Snapshot returns the stored records of an address.
func (d *ChangeDetector) Snapshot(address string) ([]model.TagRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	records, ok := d.snapshots[address]
	return records, ok
}

func (d *ChangeDetector) fetchedIn(address string, pass int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.fetched[address]
	return ok && p == pass
}

// DetectChanges re-fetches every discovered address that was not fetched in
// this pass, is not denied and lies within the depth bound, and reports
// whether any of them produced records missing from its snapshot.
//
// An address seen for the first time only gets a baseline. On a change the
// new records are appended to the run together with the document's keyword
// delta and custom keyword hits, a ChangeRecord is logged and the snapshot is
// replaced. Links found on re-fetched documents are registered one level
// below the document but are not descended into.
func (d *ChangeDetector) DetectChanges(ctx context.Context, state *model.RunState, pass int) (bool, error) {
	e := d.engine

	var candidates []string
	for _, address := range state.Addresses.Discovered() {
		if state.Addresses.IsDenied(address) || d.fetchedIn(address, pass) {
			continue
		}
		if depth, _ := state.Addresses.Depth(address); depth > e.maxDepth {
			continue
		}
		candidates = append(candidates, address)
	}

	changed := false
	prog := newProgress(e.logger, "detect changes", len(candidates))
	for i, address := range candidates {
		if !e.allowed(ctx, address) {
			prog.report(i + 1)
			continue
		}
		found, err := d.rescan(ctx, state, address, pass)
		if err != nil {
			return changed, err
		}
		changed = changed || found
		prog.report(i + 1)
	}
	return changed, nil
}

func (d *ChangeDetector) rescan(ctx context.Context, state *model.RunState, address string, pass int) (bool, error) {
	e := d.engine

	page, err := e.retrieve(ctx, state, address)
	if page == nil {
		return false, err
	}

	base := page.BaseURL()
	res := e.extractor.Extract(page.Raw, page.ContentType, base)

	depth, _ := state.Addresses.Depth(address)
	for _, link := range res.Links {
		state.Addresses.AddAtDepth(link, depth+1)
	}

	prev, seen := d.Snapshot(address)

	d.mu.Lock()
	d.fetched[address] = pass
	d.mu.Unlock()

	if !seen {
		for _, msg := range res.Errors {
			state.AddError("%s", msg)
		}
		d.mu.Lock()
		d.snapshots[address] = res.Records
		d.mu.Unlock()
		return false, nil
	}

	added := model.DiffRecords(prev, res.Records)
	if len(added) == 0 {
		return false, nil
	}

	for _, msg := range res.Errors {
		state.AddError("%s", msg)
	}
	current := res.Records
	res.Records = added
	res.Commit(state, base)
	state.AddChange(model.ChangeRecord{
		Source:     base,
		Pass:       pass,
		Records:    added,
		DetectedAt: time.Now(),
	})

	d.mu.Lock()
	d.snapshots[address] = current
	d.mu.Unlock()

	e.logger.Info("content changed", "url", address, "pass", pass, "new_records", len(added))
	return true, nil
}
