package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

// maxRedirects bounds redirect chains. Document links on municipal sites
// often pass through one or two tracking redirects.
const maxRedirects = 10

// options holds client construction settings.
type options struct {
	timeout time.Duration
	proxy   string
	jar     http.CookieJar
}

// Option configures New.
type Option func(*options)

// WithTimeout bounds each request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithProxy routes all connections through a SOCKS5 proxy at host:port.
// An empty address means direct connections.
func WithProxy(address string) Option {
	return func(o *options) {
		o.proxy = address
	}
}

// WithJar shares a cookie jar between clients, so cookies a seed page sets
// are presented when its documents are downloaded.
func WithJar(jar http.CookieJar) Option {
	return func(o *options) {
		o.jar = jar
	}
}

// NewJar returns a cookie jar that applies public suffix rules, so a site
// cannot set cookies for a whole registry domain such as "lg.jp".
func NewJar() http.CookieJar {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}) //nolint:errcheck // cookiejar.New never fails
	return jar
}

// New creates an HTTP client.
// Without WithJar, the client gets a jar of its own.
func New(opts ...Option) (*http.Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.jar == nil {
		o.jar = NewJar()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	transport.MaxIdleConnsPerHost = 2
	transport.IdleConnTimeout = 30 * time.Second

	if o.proxy != "" {
		if !isValidProxyAddress(o.proxy) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", o.proxy, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = contextDialer(dialer)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   o.timeout,
		Jar:       o.jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

// contextDialer adapts a proxy.Dialer to the transport's DialContext.
// The SOCKS5 dialer from x/net supports contexts natively.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// isValidProxyAddress checks if the address is in "host:port" form with
// a port between 1 and 65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}
