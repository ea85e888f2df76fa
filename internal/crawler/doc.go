// Package crawler discovers candidate document links on seed pages.
//
// # Architecture
//
// The package is built around the Discoverer type, which fetches one seed
// page, decodes it to UTF-8, and hands it to the Parser. The Parser walks
// the anchors in document order and keeps those whose target ends in the
// document extension. The Discoverer then applies the inclusion Policy and,
// when enabled, the robots.txt check.
//
// Discovery never follows links: a seed page is fetched, its document links
// are reported, and that is all. A seed that cannot be fetched yields no
// links and does not stop the other seeds.
//
// # Components
//
//   - Discoverer: fetches seed pages and reports candidate links
//   - Parser: extracts document links and their display text from HTML
//   - Policy: per-domain rules deciding which candidates are kept
//   - Robots: optional robots.txt gate with a per-host cache
//
// # Canonical URLs
//
// A candidate URL is the anchor's href resolved against the page URL (or
// its <base href>). The fragment is dropped and the query string is kept,
// so "doc.pdf?v=2" on "https://ex.org/list/" becomes
// "https://ex.org/list/doc.pdf?v=2". This string is the ledger key.
//
// # Usage
//
//	d := crawler.NewDiscoverer(client,
//	    crawler.WithProfile(profile),
//	    crawler.WithPolicy(crawler.PolicyFromConfig(file)),
//	)
//	for seed, link := range d.All(ctx, seeds) {
//	    fmt.Println(seed, link.URL, link.Text)
//	}
package crawler
