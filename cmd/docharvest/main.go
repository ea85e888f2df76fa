// Package main provides the entry point for the docharvest CLI.
//
// docharvest collects PDF documents linked from a list of seed pages,
// checks that each download really is a PDF, and records it in a JSON
// ledger that a downstream generation stage picks its work from.
//
// Usage:
//
//	docharvest crawl --seeds seeds.txt
//	docharvest ledger list --pending
//	docharvest history
//
// See --help for all available options.
package main

// main is the entry point for docharvest.
func main() {
	Execute()
}
