// Package database provides the SQLite run journal for docharvest.
//
// The journal keeps one row per crawl run and one row per decision taken
// during a run (skipped, acquired, discarded). It is history only: the
// ledger file stays the single source of truth for document state, and
// deleting the journal never changes what the next run does.
//
// SQLite is used via modernc.org/sqlite, a CGO-free driver, so the binary
// cross-compiles without a C toolchain.
package database
