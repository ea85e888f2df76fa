package httpclient

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/nao1215/docharvest/internal/config"
)

func TestIdentityApply(t *testing.T) {
	t.Parallel()

	t.Run("sets all configured headers and referer", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "https://ex.org/doc.pdf", nil)
		id := Identity{
			UserAgent:      "agent/1.0",
			Accept:         "application/pdf",
			AcceptLanguage: "ja",
			Cookie:         "session=abc",
			Headers:        map[string]string{"X-Portal": "1"},
		}
		id.Apply(req, "https://ex.org/list/")

		want := map[string]string{
			"User-Agent":      "agent/1.0",
			"Accept":          "application/pdf",
			"Accept-Language": "ja",
			"Cookie":          "session=abc",
			"X-Portal":        "1",
			"Referer":         "https://ex.org/list/",
		}
		for k, v := range want {
			if got := req.Header.Get(k); got != v {
				t.Errorf("header %s = %q, want %q", k, got, v)
			}
		}
	})

	t.Run("empty referer is not sent", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "https://ex.org/", nil)
		DefaultIdentity().Apply(req, "")
		if req.Header.Get("Referer") != "" {
			t.Errorf("expected no referer, got %q", req.Header.Get("Referer"))
		}
		if req.Header.Get("User-Agent") != config.DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", req.Header.Get("User-Agent"))
		}
	})

	t.Run("cookie is appended to an existing one", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "https://ex.org/", nil)
		req.Header.Set("Cookie", "a=1")
		Identity{Cookie: "b=2"}.Apply(req, "")
		if got := req.Header.Get("Cookie"); got != "a=1; b=2" {
			t.Errorf("expected merged cookie, got %q", got)
		}
	})

	t.Run("extra headers win over fields", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "https://ex.org/", nil)
		Identity{UserAgent: "a", Headers: map[string]string{"User-Agent": "b"}}.Apply(req, "")
		if got := req.Header.Get("User-Agent"); got != "b" {
			t.Errorf("expected header override, got %q", got)
		}
	})
}

func TestSiteProfile(t *testing.T) {
	t.Parallel()

	file := &config.File{
		Defaults: config.SiteConfig{
			Headers: map[string]string{"Accept-Language": "en"},
		},
		Sites: map[string]config.SiteConfig{
			"gov.example": {
				UserAgent: "gov-agent",
				Cookie:    "consent=yes",
				Headers:   map[string]string{"X-Site": "gov"},
			},
		},
	}
	p := NewSiteProfile(DefaultIdentity(), file)

	t.Run("subdomain gets site identity", func(t *testing.T) {
		t.Parallel()

		u, _ := url.Parse("https://WWW.gov.example/koubo/a.pdf")
		id := p.IdentityFor(u)
		if id.UserAgent != "gov-agent" || id.Cookie != "consent=yes" {
			t.Errorf("unexpected identity %+v", id)
		}
		if id.Headers["X-Site"] != "gov" || id.Headers["Accept-Language"] != "en" {
			t.Errorf("expected merged headers, got %v", id.Headers)
		}
		if id.Accept != config.DefaultAccept {
			t.Errorf("expected base Accept to survive, got %q", id.Accept)
		}
	})

	t.Run("other host gets defaults only", func(t *testing.T) {
		t.Parallel()

		u, _ := url.Parse("https://ex.org/a.pdf")
		id := p.IdentityFor(u)
		if id.UserAgent != config.DefaultUserAgent || id.Cookie != "" {
			t.Errorf("unexpected identity %+v", id)
		}
	})

	t.Run("nil file behaves as empty", func(t *testing.T) {
		t.Parallel()

		u, _ := url.Parse("https://ex.org/a.pdf")
		if id := NewSiteProfile(DefaultIdentity(), nil).IdentityFor(u); id.UserAgent != config.DefaultUserAgent {
			t.Errorf("unexpected identity %+v", id)
		}
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	t.Run("returns 2xx response with identity applied", func(t *testing.T) {
		t.Parallel()

		seen := make(chan http.Header, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen <- r.Header.Clone()
			_, _ = io.WriteString(w, "ok")
		}))
		t.Cleanup(srv.Close)

		c, err := New(WithTimeout(5 * time.Second))
		if err != nil {
			t.Fatal(err)
		}

		resp, err := Get(t.Context(), c, Static(Identity{UserAgent: "agent/2"}), srv.URL+"/a.pdf", srv.URL+"/list/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer resp.Body.Close()

		h := <-seen
		gotUA, gotReferer := h.Get("User-Agent"), h.Get("Referer")
		if gotUA != "agent/2" {
			t.Errorf("server saw user agent %q", gotUA)
		}
		if gotReferer != srv.URL+"/list/" {
			t.Errorf("server saw referer %q", gotReferer)
		}
	})

	t.Run("non-2xx is ErrHTTPStatus", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		t.Cleanup(srv.Close)

		c, _ := New()
		_, err := Get(t.Context(), c, nil, srv.URL, "")
		if !errors.Is(err, ErrHTTPStatus) {
			t.Fatalf("expected ErrHTTPStatus, got %v", err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %v", err)
		}
	})

	t.Run("transport failure is an error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		c, _ := New(WithTimeout(2 * time.Second))
		if _, err := Get(t.Context(), c, nil, addr, ""); err == nil {
			t.Error("expected error for closed server")
		}
	})

	t.Run("malformed URL is an error", func(t *testing.T) {
		t.Parallel()

		c, _ := New()
		if _, err := Get(t.Context(), c, nil, "http://[::1", ""); err == nil {
			t.Error("expected error for malformed URL")
		}
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("rejects malformed proxy address", func(t *testing.T) {
		t.Parallel()

		for _, addr := range []string{"localhost", ":9050", "host:0", "host:70000", "host:abc"} {
			if _, err := New(WithProxy(addr)); !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("New(WithProxy(%q)) error = %v, want ErrInvalidProxyAddress", addr, err)
			}
		}
	})

	t.Run("accepts SOCKS5 proxy address", func(t *testing.T) {
		t.Parallel()

		c, err := New(WithProxy("127.0.0.1:9050"), WithTimeout(time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Timeout != time.Second {
			t.Errorf("expected timeout 1s, got %v", c.Timeout)
		}
	})

	t.Run("shared jar carries cookies between clients", func(t *testing.T) {
		t.Parallel()

		sawCookie := make(chan string, 1)
		mux := http.NewServeMux()
		mux.HandleFunc("/list/", func(w http.ResponseWriter, _ *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: "visit", Value: "1", Path: "/"})
		})
		mux.HandleFunc("/doc.pdf", func(_ http.ResponseWriter, r *http.Request) {
			value := ""
			if c, err := r.Cookie("visit"); err == nil {
				value = c.Value
			}
			sawCookie <- value
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		jar := NewJar()
		pageClient, _ := New(WithJar(jar))
		docClient, _ := New(WithJar(jar))

		resp, err := Get(t.Context(), pageClient, nil, srv.URL+"/list/", "")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()

		resp, err = Get(t.Context(), docClient, nil, srv.URL+"/doc.pdf", srv.URL+"/list/")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()

		if got := <-sawCookie; got != "1" {
			t.Errorf("expected cookie from page visit, got %q", got)
		}
	})

	t.Run("redirect loop stops at the limit", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, r.URL.Path, http.StatusFound)
		}))
		t.Cleanup(srv.Close)

		c, _ := New()
		_, err := Get(t.Context(), c, nil, srv.URL+"/loop", "")
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusFound {
			t.Errorf("expected redirect status to surface as StatusError, got %v", err)
		}
	})
}

func TestStatusErrorMessage(t *testing.T) {
	t.Parallel()

	err := &StatusError{URL: "https://ex.org/a.pdf", Code: 503}
	if err.Error() != "unexpected HTTP status 503 for https://ex.org/a.pdf" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
