// Package report renders a status report of a boardaid installation.
//
// The report is assembled by Collect from the persistent store, the block
// lists and the configured boards, then written by one of the writers:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: structured output for scripts
//   - MarkdownWriter: tables and a mermaid chart for sharing
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
