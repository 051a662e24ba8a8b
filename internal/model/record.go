package model

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// TagRecord is one structured element extracted from a document.
// Records are immutable once produced.
type TagRecord struct {
	// Tag is the lowercased element name (a, script, img, link, form, ...).
	Tag string `json:"tag"`

	// Attributes holds every attribute present on the element.
	Attributes map[string]string `json:"attributes"`

	// Text is the trimmed inner text of the element.
	Text string `json:"text"`
}

// Fingerprint returns a stable identity for the record.
// Two records with the same tag, attributes and text share a fingerprint
// regardless of attribute order.
func (r TagRecord) Fingerprint() string {
	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(r.Tag)
	for _, k := range keys {
		b.WriteByte('\x1f')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.Attributes[k])
	}
	b.WriteByte('\x1e')
	b.WriteString(r.Text)
	return b.String()
}

// DiffRecords returns the records of next that are not in prev, treating both
// sides as multisets keyed by fingerprint. A record that appears twice in next
// but once in prev is reported once. Order follows next.
func DiffRecords(prev, next []TagRecord) []TagRecord {
	seen := make(map[string]int, len(prev))
	for _, r := range prev {
		seen[r.Fingerprint()]++
	}

	var added []TagRecord
	for _, r := range next {
		fp := r.Fingerprint()
		if seen[fp] > 0 {
			seen[fp]--
			continue
		}
		added = append(added, r)
	}
	return added
}

// ChangeRecord captures the records that appeared at an address between visits.
type ChangeRecord struct {
	// Source is the address whose content changed.
	Source string `json:"source"`

	// Pass is the convergence pass that detected the change (1-based).
	Pass int `json:"pass"`

	// Records are the newly observed records.
	Records []TagRecord `json:"records"`

	// DetectedAt is when the change was observed.
	DetectedAt time.Time `json:"detected_at"`
}

// String renders the change in the "<address> -> <records JSON>" line format.
func (c ChangeRecord) String() string {
	data, err := json.Marshal(c.Records)
	if err != nil {
		data = []byte("[]")
	}
	return c.Source + " -> " + string(data)
}

// DownloadRecord describes one persisted file.
type DownloadRecord struct {
	// Address is the source address of the file.
	Address string `json:"address"`

	// Path is the local file path relative to the working directory.
	Path string `json:"path"`

	// Size is the number of bytes written.
	Size int64 `json:"size"`

	// Digest is the hex encoded SHA3-256 of the content.
	Digest string `json:"digest"`

	// Metadata holds EXIF tags for image downloads.
	Metadata map[string]string `json:"metadata,omitempty"`
}
