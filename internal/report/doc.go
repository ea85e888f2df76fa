// Package report renders the result of a crawl run.
//
// Writers for different output formats:
//   - SimpleWriter: human-readable text for terminal display
//   - MarkdownWriter: Markdown for sharing in issues or chat
//   - JSONWriter: the hand-off to the downstream generation stage
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
