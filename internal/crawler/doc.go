// Package crawler implements the traversal engine of sitescan.
//
// The Engine walks the discovery graph of a site depth first, starting at a
// seed address. For every address it waits for network connectivity, fetches
// the resource, hands the body to the content extractor and merges the links
// it finds into the run's AddressSet. Same-origin links are descended into
// immediately, before their siblings, so the visiting order is a pre-order
// walk of the graph. The walk uses an explicit stack rather than recursion.
//
// # Pacing
//
// The RateLimiter is applied once per newly discovered same-origin address,
// right before the engine descends into it. Cross-origin descent (when
// enabled) and the fetches made by the ChangeDetector, script analysis and
// object enumeration are not paced by it. A global request ceiling can still
// be set on the fetcher.
//
// # Connectivity
//
// The ConnectivityGuard blocks before every outbound request until its Probe
// succeeds. There is no retry cap: an unreachable network stalls the run
// until the context is cancelled.
//
// # Change detection
//
// The ChangeDetector keeps the records extracted at the last visit of every
// address and re-fetches known addresses on each pass. Records that were not
// present in the previous snapshot are reported as a ChangeRecord.
//
// # Supplementary passes
//
// AnalyzeScripts scans discovered JavaScript files for quoted address
// literals, and EnumerateObjects fetches every pending address and records
// all of its elements.
package crawler
