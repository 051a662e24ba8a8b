// Package model defines the data structures shared by the sitescan packages.
//
// This package contains the following main types:
//   - AddressSet: The registry of discovered, visited and denied addresses
//   - Page: A fetched resource together with its response metadata
//   - TagRecord: One structured element extracted from a document
//   - RunState: Everything a single run accumulates before it is flushed
//
// Models live in their own package so that the crawler, the extractor, the
// sinks and the report writers can share them without import cycles.
// Every type here is serializable to JSON for artifacts and run history.
package model
