// Package sink persists the aggregates of a finished run.
//
// A run ends by handing its model.RunState to a ResultSink. FileSink writes
// the artifact files into the results directory, DatabaseSink records the run
// in the history database and ReportSink renders a summary. Multi fans a
// state out to several sinks at once.
package sink
