// Package harvest runs a crawl: it walks the seed pages, decides for every
// discovered link whether the ledger already holds a valid copy, downloads
// what is missing, and saves the ledger once at the end.
//
// Per canonical URL the run follows a small state machine:
//
//	candidate, record with a valid file  -> skipped
//	candidate, record with a bad file    -> downloaded again
//	candidate, no record                 -> downloaded
//	download validated                   -> acquired (ledger updated)
//	download failed or invalid           -> discarded (ledger untouched)
//
// A discarded URL is not retried within the run. The next run finds it
// missing from the ledger, or finds its file invalid, and tries again.
// That is the only retry mechanism (RetryOnNextRun).
//
// Work is strictly sequential: one seed at a time, one link at a time.
package harvest
