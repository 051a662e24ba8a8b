// Package report renders run summaries for people and tools.
//
// A Summary is a read-only digest of a model.RunState: address counts,
// totals, the most frequent keywords, custom keyword hits, detected changes
// and the error log. Writers turn it into:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: Markdown with tables and a Mermaid pie chart
//   - JSONWriter and FullJSONWriter: JSON for tool integration
//
// The artifact files of a run (output.json, keywords.txt, ...) are written by
// the sink package; this package only produces the overview.
package report
