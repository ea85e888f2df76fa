// Package ledger persists the set of known documents and their lifecycle state.
//
// The ledger is a JSON object keyed by canonical document URL. It is the
// single source of truth shared between the acquisition run and the
// downstream generation stage: acquisition adds and refreshes records,
// the downstream stage flips processed and records its artifact path.
//
// Loading never fails. A missing, unreadable, empty or corrupt file yields
// an empty ledger so that a crawl can always proceed. Corrupt content is
// first moved aside to a timestamped sidecar file, so the next save does not
// destroy the only copy of it.
//
// Saving overwrites the whole file through a temporary file and a rename,
// which leaves either the old or the new ledger on disk if the process dies
// mid-write.
package ledger
