package model

import (
	"mime"
	"strings"
	"time"
)

// Page represents a fetched resource with the response metadata the crawler needs.
// Fetchers fill it in; the extractor and the change detector only read it.
type Page struct {
	// URL is the address that was requested.
	URL string `json:"url"`

	// FinalURL is the address after redirects.
	// Relative references in the document are resolved against it.
	FinalURL string `json:"final_url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Headers contains all HTTP response headers in canonical form.
	Headers map[string][]string `json:"headers,omitempty"`

	// ContentType is the raw Content-Type header value.
	ContentType string `json:"content_type"`

	// Raw contains the decoded (decompressed) response body.
	Raw []byte `json:"-"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// MaxPageSize is the maximum size of a response body the fetcher reads.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// BaseURL returns the address used to resolve relative references.
func (p *Page) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// GetHeader returns the first value of the specified header.
// Returns empty string if the header is not present.
func (p *Page) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// MediaType returns the lowercased media type without parameters.
func (p *Page) MediaType() string {
	if p.ContentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(p.ContentType)
	if err != nil {
		mt, _, _ = strings.Cut(p.ContentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsHTML returns true if the page content type indicates HTML.
// An absent content type is treated as HTML because many servers omit it.
func (p *Page) IsHTML() bool {
	switch p.MediaType() {
	case "", "text/html", "application/xhtml+xml":
		return true
	default:
		return false
	}
}

// IsOK reports whether the response is a usable success.
func (p *Page) IsOK() bool {
	return p.StatusCode == 200 && len(p.Raw) > 0
}

// IsDenied reports whether the server refused access to the resource.
func (p *Page) IsDenied() bool {
	return p.StatusCode == 401 || p.StatusCode == 403
}
