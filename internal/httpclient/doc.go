// Package httpclient provides the outbound HTTP side of docharvest.
//
// It has two parts:
//   - Identity: the headers a request presents to a server (user agent,
//     Accept, Accept-Language, cookie, extra headers and the referer).
//     Identity is an explicit value passed to every component that talks
//     to the network, resolved per host through a Profile.
//   - Client construction: an *http.Client with a bounded timeout, a
//     cookie jar that follows public suffix rules, an optional SOCKS5 proxy
//     and a redirect limit.
//
// Get combines both and turns non-2xx answers into errors, so callers only
// ever see a successful response or an error.
package httpclient
