// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// The SecureHandler sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (bearer tokens, JWTs, keys)
//   - Session identifiers and authentication tokens
//   - Passwords and token query parameters embedded in URLs
//
// Even in verbose mode, sensitive values are masked so that cookies
// configured for a site do not end up in shared logs.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, log.Level(verbose, quiet))
//	logger.Debug("fetching seed",
//	    "url", "https://ex.org/list/",
//	    "cookie", "session=abc123", // masked
//	)
//	slog.SetDefault(logger)
package log
