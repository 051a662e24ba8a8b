package crawler

import (
	"context"
	"net/url"
	"strings"

	"github.com/nao1215/sitescan/internal/extract"
	"github.com/nao1215/sitescan/internal/model"
)

// AnalyzeScripts fetches every discovered JavaScript file within the depth
// bound and registers the double-quoted http(s) literals found in it. It does
// nothing when link discovery is disabled.
func (e *Engine) AnalyzeScripts(ctx context.Context, state *model.RunState) error {
	if !e.extractor.ScanURLs() {
		return nil
	}

	var scripts []string
	for _, address := range state.Addresses.Discovered() {
		if !isScript(address) || state.Addresses.IsDenied(address) {
			continue
		}
		if depth, _ := state.Addresses.Depth(address); depth > e.maxDepth {
			continue
		}
		scripts = append(scripts, address)
	}

	prog := newProgress(e.logger, "analyze scripts", len(scripts))
	for i, address := range scripts {
		if e.allowed(ctx, address) {
			if err := e.analyzeScript(ctx, state, address); err != nil {
				return err
			}
		}
		prog.report(i + 1)
	}
	return nil
}

func (e *Engine) analyzeScript(ctx context.Context, state *model.RunState, address string) error {
	page, err := e.retrieve(ctx, state, address)
	if page == nil {
		return err
	}

	depth, _ := state.Addresses.Depth(address)
	added := 0
	for _, link := range extract.ScriptLinks(page.Raw) {
		if state.Addresses.AddAtDepth(link, depth+1) {
			added++
		}
	}
	e.logger.Debug("analyzed script", "url", address, "new_links", added)
	return nil
}

func isScript(address string) bool {
	u, err := url.Parse(address)
	if err != nil {
		return strings.HasSuffix(address, ".js")
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".js")
}

// EnumerateObjects fetches pending addresses within the depth bound and
// records every element of each document, repeating until nothing eligible
// is pending. Each address is marked visited before it is fetched, so the
// loop always makes progress. It does nothing when object scanning is
// disabled.
func (e *Engine) EnumerateObjects(ctx context.Context, state *model.RunState) error {
	if !e.extractor.ScanObjects() {
		return nil
	}

	skipped := make(map[string]struct{})
	for {
		batch := e.enumerable(state, skipped)
		if len(batch) == 0 {
			return nil
		}

		prog := newProgress(e.logger, "enumerate objects", len(batch))
		for i, address := range batch {
			if !e.allowed(ctx, address) {
				skipped[address] = struct{}{}
				prog.report(i + 1)
				continue
			}
			if err := e.enumerate(ctx, state, address); err != nil {
				return err
			}
			prog.report(i + 1)
		}
	}
}

func (e *Engine) enumerable(state *model.RunState, skipped map[string]struct{}) []string {
	var out []string
	for _, address := range state.Addresses.Pending() {
		if _, ok := skipped[address]; ok {
			continue
		}
		if depth, _ := state.Addresses.Depth(address); depth > e.maxDepth {
			continue
		}
		out = append(out, address)
	}
	return out
}

func (e *Engine) enumerate(ctx context.Context, state *model.RunState, address string) error {
	if state.Addresses.IsVisited(address) {
		return nil
	}
	state.Addresses.MarkVisited(address)

	page, err := e.retrieve(ctx, state, address)
	if page == nil {
		return err
	}

	records, err := e.extractor.Enumerate(page.Raw, page.ContentType)
	if err != nil {
		state.AddError("Error parsing %s: %v", address, err)
		return nil
	}
	state.AddRecords(records...)
	return nil
}
