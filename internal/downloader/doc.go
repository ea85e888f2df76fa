// Package downloader retrieves candidate documents to a flat directory.
//
// Each document is stored under a name derived from its URL, so the same
// URL always maps to the same file. Bytes are streamed to a ".part" file,
// moved into place, and then checked by a validator.Validator; a file that
// fails the check is removed before Fetch returns. A path returned by Fetch
// therefore always names a file that passed validation.
package downloader
