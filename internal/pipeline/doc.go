// Package pipeline runs the stages of a scan in sequence.
//
// A run is a discovery round (crawl, script analysis, object enumeration)
// followed by convergence passes (crawl, object enumeration, change
// detection) that repeat until a pass sees no change or the pass limit is
// reached. Each stage is a Step; a Pipeline executes a list of steps against
// the run's model.RunState, and a Runner drives the rounds and flushes the
// state to a sink when the run ends.
//
// BatchProcessor scans several seeds concurrently with errgroup, each seed
// being an independent run.
package pipeline
