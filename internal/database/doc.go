// Package database stores the history of sitescan runs.
//
// Every finished run is saved as one row in the runs table together with the
// addresses it discovered and the changes it detected. The history is used by
// "sitescan history" to list past runs and to compare the discovered sets of
// the two most recent runs of a seed.
//
// Two backends are supported through database/sql:
//   - SQLite (modernc.org/sqlite, CGO-free), the default, stored in a single
//     file under the XDG data directory with WAL enabled
//   - PostgreSQL (github.com/lib/pq), selected with a postgres:// DSN
//
// Queries are written with "?" placeholders and rebound to "$n" for
// PostgreSQL. Timestamps are stored as fixed-width UTC text so both backends
// sort them the same way.
package database
