package model

import "sort"

// KeywordTally maps a lowercased word to its cumulative occurrence count.
// Counts only grow over a run.
type KeywordTally map[string]int

// KeywordCount is one entry of a sorted tally.
type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Merge folds a per-document delta into the tally.
func (t KeywordTally) Merge(delta map[string]int) {
	for word, n := range delta {
		if n > 0 {
			t[word] += n
		}
	}
}

// Sorted returns the tally ordered by descending count.
// Ties are ordered alphabetically so output is deterministic.
func (t KeywordTally) Sorted() []KeywordCount {
	out := make([]KeywordCount, 0, len(t))
	for w, c := range t {
		out = append(out, KeywordCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	return out
}

// CustomKeywordHits records, per user-supplied keyword, every address where it
// was found. Duplicates are kept: one entry per matching document visit.
type CustomKeywordHits struct {
	order []string
	hits  map[string][]string
}

// NewCustomKeywordHits creates an empty hit list.
func NewCustomKeywordHits() *CustomKeywordHits {
	return &CustomKeywordHits{hits: make(map[string][]string)}
}

// Record appends an address to a keyword's hit list.
func (h *CustomKeywordHits) Record(keyword, address string) {
	if _, ok := h.hits[keyword]; !ok {
		h.order = append(h.order, keyword)
	}
	h.hits[keyword] = append(h.hits[keyword], address)
}

// Keywords returns keywords in first-hit order.
func (h *CustomKeywordHits) Keywords() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Locations returns the addresses recorded for a keyword.
func (h *CustomKeywordHits) Locations(keyword string) []string {
	out := make([]string, len(h.hits[keyword]))
	copy(out, h.hits[keyword])
	return out
}

// Len returns the number of distinct keywords with at least one hit.
func (h *CustomKeywordHits) Len() int {
	return len(h.order)
}
