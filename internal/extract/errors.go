package extract

import "errors"

var (
	// ErrParseUnsupported is returned by a MarkupParser for content it cannot
	// parse as markup, such as images or archives.
	ErrParseUnsupported = errors.New("content type not parseable as markup")

	// ErrEmptyDocument is returned when there is nothing to parse.
	ErrEmptyDocument = errors.New("empty document")
)
