package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Get issues a GET for rawURL with the identity p resolves for it.
// The response is returned only for 2xx statuses; any other status is a
// *StatusError and the body is already closed. The caller closes the body
// of a successful response.
func Get(ctx context.Context, c *http.Client, p Profile, rawURL, referer string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resolve(p, rawURL).Apply(req, referer)

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // Drain for connection reuse
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return resp, nil
}
