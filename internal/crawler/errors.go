package crawler

import "errors"

var (
	// ErrEmptyBody is recorded when a 200 response carries no content.
	ErrEmptyBody = errors.New("empty response body")

	// ErrRobotsUnavailable is returned when robots.txt could not be read.
	ErrRobotsUnavailable = errors.New("robots.txt unavailable")
)
