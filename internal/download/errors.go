package download

import (
	"errors"
	"fmt"
)

// ErrNoFetcher is returned when a Manager was created without a fetcher.
var ErrNoFetcher = errors.New("no fetcher configured")

// StatusError is returned when the server answers with a status other than 200.
type StatusError struct {
	Address    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Failed to download %s: Status %d", e.Address, e.StatusCode)
}
