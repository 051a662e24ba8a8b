package sink

import "errors"

// ErrNoDatabase is returned by a DatabaseSink without a database.
var ErrNoDatabase = errors.New("no database configured")
