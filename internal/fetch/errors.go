package fetch

import "errors"

var (
	// ErrBodyTooLarge is returned when a response body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrInvalidAddress is returned for addresses that are not absolute http(s) URLs.
	ErrInvalidAddress = errors.New("invalid address: must be an absolute http or https URL")
)
