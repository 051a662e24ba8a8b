package extract

import (
	"fmt"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MarkupParser turns decoded text into a queryable document.
type MarkupParser interface {
	// Parse returns ErrParseUnsupported (possibly wrapped) when the content
	// type or the content itself is not markup.
	Parse(text, contentType string) (*goquery.Document, error)
}

// HTMLParser parses documents with golang.org/x/net/html.
// The HTML5 algorithm accepts any text, so only binary content is rejected;
// plain text, scripts and stylesheets parse into a document with a text body.
type HTMLParser struct{}

// binaryPrefixes are media types that are never markup.
var binaryPrefixes = []string{
	"image/",
	"audio/",
	"video/",
	"font/",
	"application/octet-stream",
	"application/pdf",
	"application/zip",
	"application/gzip",
	"application/x-gzip",
	"application/x-tar",
	"application/x-7z-compressed",
	"application/vnd.ms-",
	"application/vnd.openxmlformats",
	"application/wasm",
}

// Parse implements MarkupParser.
func (HTMLParser) Parse(text, contentType string) (*goquery.Document, error) {
	if mt := mediaType(contentType); isBinaryMediaType(mt) {
		return nil, fmt.Errorf("%w: %s", ErrParseUnsupported, mt)
	}
	if strings.IndexByte(text, 0) >= 0 {
		return nil, fmt.Errorf("%w: binary content", ErrParseUnsupported)
	}

	node, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return goquery.NewDocumentFromNode(node), nil
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

func isBinaryMediaType(mt string) bool {
	for _, p := range binaryPrefixes {
		if strings.HasPrefix(mt, p) {
			return true
		}
	}
	return false
}
