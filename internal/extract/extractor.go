package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/sitescan/internal/model"
)

// elementsOfInterest maps each extracted element to its reference attribute.
var elementsOfInterest = map[string]string{
	"a":      "href",
	"link":   "href",
	"form":   "href",
	"script": "src",
	"img":    "src",
}

const selectorOfInterest = "a, script, img, link, form"

// literalAddress finds http(s) addresses in raw text, bounded by whitespace,
// quotes and angle brackets.
var literalAddress = regexp.MustCompile(`https?://[^\s"'<>]+`)

// quotedScriptAddress finds double-quoted http(s) string literals in scripts.
var quotedScriptAddress = regexp.MustCompile(`"(https?://[^"]+?)"`)

// Result is the output of one extraction.
type Result struct {
	// Links are absolute http(s) addresses in document order, deduplicated.
	Links []string

	// Records holds one TagRecord per element of interest.
	Records []model.TagRecord

	// Keywords is the per-document word count delta.
	Keywords map[string]int

	// CustomHits lists the custom keywords found in this document.
	CustomHits []string

	// Errors are human-readable problems met during extraction.
	Errors []string

	// Lossy reports that undecodable bytes were replaced.
	Lossy bool
}

// Commit folds the records, keyword delta and custom hits into the run state.
// Links and Errors are left to the caller.
func (r *Result) Commit(state *model.RunState, address string) {
	if len(r.Records) > 0 {
		state.AddRecords(r.Records...)
	}
	if len(r.Keywords) > 0 {
		state.MergeKeywords(r.Keywords)
	}
	for _, kw := range r.CustomHits {
		state.RecordCustomHit(kw, address)
	}
}

// Extractor converts fetched bodies into links, records and keyword counts.
// It is safe for concurrent use.
type Extractor struct {
	parser      MarkupParser
	keywords    KeywordSource
	scanURLs    bool
	scanObjects bool
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithParser replaces the default HTMLParser.
func WithParser(p MarkupParser) Option {
	return func(e *Extractor) {
		e.parser = p
	}
}

// WithKeywordSource sets where custom keywords come from.
func WithKeywordSource(src KeywordSource) Option {
	return func(e *Extractor) {
		e.keywords = src
	}
}

// WithScanURLs toggles link discovery.
func WithScanURLs(enabled bool) Option {
	return func(e *Extractor) {
		e.scanURLs = enabled
	}
}

// WithScanObjects toggles record extraction and keyword counting.
func WithScanObjects(enabled bool) Option {
	return func(e *Extractor) {
		e.scanObjects = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor. Both scans are enabled by default.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		parser:      HTMLParser{},
		keywords:    KeywordList(nil),
		scanURLs:    true,
		scanObjects: true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScanURLs reports whether link discovery is enabled.
func (e *Extractor) ScanURLs() bool { return e.scanURLs }

// ScanObjects reports whether record extraction is enabled.
func (e *Extractor) ScanObjects() bool { return e.scanObjects }

// Extract processes one document fetched from base.
func (e *Extractor) Extract(body []byte, contentType, base string) *Result {
	res := &Result{Keywords: make(map[string]int)}

	text, lossy := Decode(body, contentType)
	if lossy {
		res.Lossy = true
		e.logger.Debug("lossy decode", "url", base)
	}

	doc, err := e.parse(text, contentType)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Error parsing %s: %v", base, err))
		return res
	}
	if lossy {
		res.Errors = append(res.Errors, fmt.Sprintf("Error decoding %s: invalid byte sequences replaced", base))
	}

	// An unparsable base only disables reference resolution.
	baseURL, baseErr := url.Parse(base)
	seen := make(map[string]struct{})
	addLink := func(link string) {
		link = model.NormalizeAddress(link)
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		res.Links = append(res.Links, link)
	}

	doc.Find(selectorOfInterest).Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)

		if e.scanObjects {
			res.Records = append(res.Records, recordOf(s, tag))
		}
		if !e.scanURLs || baseErr != nil {
			return
		}

		ref, ok := s.Attr(elementsOfInterest[tag])
		ref = strings.TrimSpace(ref)
		if !ok || ref == "" {
			return
		}
		u, err := url.Parse(ref)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Error joining URL %s with base %s: %v", ref, base, err))
			return
		}
		resolved := baseURL.ResolveReference(u)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		addLink(resolved.String())
	})

	if e.scanURLs {
		for _, m := range literalAddress.FindAllString(text, -1) {
			if u, err := url.Parse(m); err == nil && u.Host != "" {
				addLink(m)
			}
		}
	}

	if e.scanObjects {
		visible := visibleText(doc)
		res.Keywords = Tokenize(visible)

		keywords, err := e.keywords.Keywords()
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Error loading custom keywords: %v", err))
		}
		res.CustomHits = MatchKeywords(toLower(visible), keywords)
	}

	return res
}

// Enumerate returns one TagRecord for every element in the document.
func (e *Extractor) Enumerate(body []byte, contentType string) ([]model.TagRecord, error) {
	text, _ := Decode(body, contentType)
	doc, err := e.parse(text, contentType)
	if err != nil {
		return nil, err
	}

	var records []model.TagRecord
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		records = append(records, recordOf(s, goquery.NodeName(s)))
	})
	return records, nil
}

// ScriptLinks returns the double-quoted http(s) literals of a script body.
func ScriptLinks(body []byte) []string {
	text, _ := Decode(body, "")
	var out []string
	seen := make(map[string]struct{})
	for _, m := range quotedScriptAddress.FindAllStringSubmatch(text, -1) {
		link := model.NormalizeAddress(m[1])
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}

func (e *Extractor) parse(text, contentType string) (*goquery.Document, error) {
	if text == "" {
		return nil, ErrEmptyDocument
	}
	doc, err := e.parser.Parse(text, contentType)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("parser returned no document")
	}
	return doc, nil
}

func recordOf(s *goquery.Selection, tag string) model.TagRecord {
	attrs := make(map[string]string)
	if n := s.Get(0); n != nil {
		for _, a := range n.Attr {
			attrs[a.Key] = a.Val
		}
	}
	return model.TagRecord{
		Tag:        tag,
		Attributes: attrs,
		Text:       strings.TrimSpace(s.Text()),
	}
}

// visibleText concatenates text nodes outside script, style and template
// elements, separated by spaces.
func visibleText(doc *goquery.Document) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return b.String()
}
