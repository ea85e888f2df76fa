package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/jung-kurt/gofpdf"

	"github.com/nao1215/docharvest/internal/crawler"
	"github.com/nao1215/docharvest/internal/downloader"
	"github.com/nao1215/docharvest/internal/httpclient"
	"github.com/nao1215/docharvest/internal/ledger"
	"github.com/nao1215/docharvest/internal/model"
	"github.com/nao1215/docharvest/internal/validator"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pdfBytes(t *testing.T) []byte {
	t.Helper()

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	doc.AddPage()
	doc.Cell(40, 10, "notice")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("failed to render PDF: %v", err)
	}
	return buf.Bytes()
}

// site is a fake web site serving HTML pages and documents.
// It counts requests per path.
type site struct {
	*httptest.Server

	mu    sync.Mutex
	hits  map[string]int
	pages map[string]string
	docs  map[string][]byte
}

func newSite(t *testing.T) *site {
	t.Helper()

	s := &site{
		hits:  make(map[string]int),
		pages: make(map[string]string),
		docs:  make(map[string][]byte),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.RequestURI()]++
		page, isPage := s.pages[r.URL.Path]
		doc, isDoc := s.docs[r.URL.RequestURI()]
		s.mu.Unlock()

		switch {
		case isPage:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, page)
		case isDoc:
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write(doc)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *site) page(path, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = html
}

func (s *site) doc(requestURI string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[requestURI] = body
}

func (s *site) hitCount(requestURI string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[requestURI]
}

// env wires the real discovery and download components to a temp directory.
type env struct {
	dir        string
	ledgerPath string
	downloads  string
	discoverer *crawler.Discoverer
	downloader *downloader.Downloader
}

func newEnv(t *testing.T, discOpts ...crawler.DiscovererOption) *env {
	t.Helper()
	return newEnvWithTimeout(t, 5*time.Second, discOpts...)
}

// newEnvWithTimeout is newEnv with a custom per-request timeout.
func newEnvWithTimeout(t *testing.T, timeout time.Duration, discOpts ...crawler.DiscovererOption) *env {
	t.Helper()

	client, err := httpclient.New(httpclient.WithTimeout(timeout))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	e := &env{
		dir:        dir,
		ledgerPath: filepath.Join(dir, "data", "processed_files.json"),
		downloads:  filepath.Join(dir, "data", "downloads"),
	}
	e.discoverer = crawler.NewDiscoverer(client, append([]crawler.DiscovererOption{crawler.WithLogger(quietLogger())}, discOpts...)...)
	e.downloader = downloader.New(client, e.downloads, downloader.WithLogger(quietLogger()))
	return e
}

func (e *env) load() *ledger.Ledger {
	return ledger.Load(e.ledgerPath, ledger.WithLogger(quietLogger()))
}

func (e *env) run(t *testing.T, seeds []string, opts ...Option) *Result {
	t.Helper()
	h := New(e.load(), e.discoverer, e.downloader, append([]Option{WithLogger(quietLogger())}, opts...)...)
	res, err := h.Run(t.Context(), seeds)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return res
}

// TestRunIdempotent tests that a second run over unchanged content changes nothing.
func TestRunIdempotent(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.page("/list/", `<a href="a.pdf">A</a><a href="b.pdf">B</a>`)
	s.doc("/list/a.pdf", pdfBytes(t))
	s.doc("/list/b.pdf", pdfBytes(t))

	e := newEnv(t)
	seeds := []string{s.URL + "/list/"}

	first := e.run(t, seeds)
	if len(first.Acquired) != 2 {
		t.Fatalf("expected 2 acquired on first run, got %d", len(first.Acquired))
	}
	before, err := os.ReadFile(e.ledgerPath)
	if err != nil {
		t.Fatal(err)
	}

	second := e.run(t, seeds)
	if len(second.Acquired) != 0 {
		t.Errorf("expected nothing acquired on second run, got %d", len(second.Acquired))
	}
	if second.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", second.Skipped)
	}

	after, err := os.ReadFile(e.ledgerPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Errorf("ledger changed between runs:\n%s\n---\n%s", before, after)
	}
	if n := s.hitCount("/list/a.pdf"); n != 1 {
		t.Errorf("expected a.pdf downloaded once, got %d", n)
	}
}

// TestRunDedup tests that a URL linked from two seeds becomes one record.
func TestRunDedup(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.page("/one", `<a href="/files/a.pdf">From one</a>`)
	s.page("/two", `<a href="/files/a.pdf">From two</a><a href="/files/a.pdf#p2">again</a>`)
	s.doc("/files/a.pdf", pdfBytes(t))

	e := newEnv(t)
	res := e.run(t, []string{s.URL + "/one", s.URL + "/two"})

	if res.Discovered != 1 {
		t.Errorf("expected 1 distinct candidate, got %d", res.Discovered)
	}
	if l := e.load(); l.Len() != 1 {
		t.Errorf("expected 1 record, got %d", l.Len())
	}
	if n := s.hitCount("/files/a.pdf"); n != 1 {
		t.Errorf("expected one download, got %d", n)
	}
	if res.Acquired[0].DisplayText != "From one" {
		t.Errorf("expected first seed's label, got %q", res.Acquired[0].DisplayText)
	}
}

// TestRunValidityGating tests that invalid bytes never reach the ledger.
func TestRunValidityGating(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.page("/list", `<a href="/bad.pdf">Bad</a>`)
	s.page("/again", `<a href="/bad.pdf">Bad again</a>`)
	s.doc("/bad.pdf", []byte("<!DOCTYPE html><p>login required</p>"))

	e := newEnv(t)
	res := e.run(t, []string{s.URL + "/list", s.URL + "/again"})

	if len(res.Acquired) != 0 {
		t.Errorf("expected nothing acquired, got %v", res.Acquired)
	}
	if len(res.Failures) != 1 || res.Failures[0].Stage != StageValidate {
		t.Fatalf("expected one validation failure, got %+v", res.Failures)
	}
	if res.Discarded() != 1 {
		t.Errorf("expected 1 discarded, got %d", res.Discarded())
	}
	if _, ok := e.load().Get(s.URL + "/bad.pdf"); ok {
		t.Error("invalid document must not be recorded")
	}
	entries, _ := os.ReadDir(e.downloads)
	if len(entries) != 0 {
		t.Errorf("expected empty download directory, got %d entries", len(entries))
	}
	if n := s.hitCount("/bad.pdf"); n != 1 {
		t.Errorf("expected discarded URL to be tried once per run, got %d", n)
	}
}

// TestRunRetryOnMissing tests that a record whose file is gone is downloaded again.
func TestRunRetryOnMissing(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.page("/list", `<a href="/a.pdf">A</a>`)
	s.doc("/a.pdf", pdfBytes(t))

	e := newEnv(t)
	docURL := s.URL + "/a.pdf"

	l := e.load()
	if err := l.Put(model.Record{
		CanonicalURL:          docURL,
		DisplayText:           "A",
		LocalPath:             filepath.Join(e.dir, "gone", "doc_old.pdf"),
		Processed:             true,
		GeneratedArtifactPath: "docs/a.html",
	}); err != nil {
		t.Fatal(err)
	}
	if err := l.Save(); err != nil {
		t.Fatal(err)
	}

	res := e.run(t, []string{s.URL + "/list"})
	if len(res.Acquired) != 1 {
		t.Fatalf("expected a fresh download, got %d acquired", len(res.Acquired))
	}

	rec, ok := e.load().Get(docURL)
	if !ok {
		t.Fatal("record disappeared")
	}
	if rec.LocalPath != e.downloader.PathFor(docURL) {
		t.Errorf("expected local path to be updated, got %q", rec.LocalPath)
	}
	if !rec.Processed || rec.GeneratedArtifactPath != "docs/a.html" {
		t.Errorf("downstream fields must be preserved, got %+v", rec)
	}
}

// TestRunRetryOnInvalid tests that a record whose file exists but is not a
// document is downloaded again.
func TestRunRetryOnInvalid(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.page("/list", `<a href="/a.pdf">A</a>`)
	s.doc("/a.pdf", pdfBytes(t))

	e := newEnv(t)
	docURL := s.URL + "/a.pdf"
	stale := e.downloader.PathFor(docURL)
	if err := os.MkdirAll(filepath.Dir(stale), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("<html>truncated"), 0o600); err != nil {
		t.Fatal(err)
	}

	l := e.load()
	if err := l.Put(model.Record{
		CanonicalURL:          docURL,
		DisplayText:           "A",
		LocalPath:             stale,
		Processed:             true,
		GeneratedArtifactPath: "docs/a.html",
	}); err != nil {
		t.Fatal(err)
	}
	if err := l.Save(); err != nil {
		t.Fatal(err)
	}

	res := e.run(t, []string{s.URL + "/list"})
	if len(res.Acquired) != 1 || res.Skipped != 0 {
		t.Fatalf("expected a fresh download, got %d acquired and %d skipped", len(res.Acquired), res.Skipped)
	}
	if n := s.hitCount("/a.pdf"); n != 1 {
		t.Errorf("expected one download, got %d", n)
	}

	data, err := os.ReadFile(stale)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("expected the file to be replaced by a document, starts with %q", data[:min(len(data), 8)])
	}
	rec, _ := e.load().Get(docURL)
	if !rec.Processed || rec.GeneratedArtifactPath != "docs/a.html" {
		t.Errorf("downstream fields must be preserved, got %+v", rec)
	}
}

// TestRunCanonicalization tests the key and file name of a relative link with a query.
func TestRunCanonicalization(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.page("/list/", `<a href="doc.pdf?v=2">Annual Report</a>`)
	s.doc("/list/doc.pdf?v=2", pdfBytes(t))

	e := newEnv(t)
	e.run(t, []string{s.URL + "/list/"})

	want := s.URL + "/list/doc.pdf?v=2"
	rec, ok := e.load().Get(want)
	if !ok {
		t.Fatalf("expected record keyed %q", want)
	}
	if filepath.Base(rec.LocalPath) != downloader.FileName(want) {
		t.Errorf("expected file name from the full URL, got %q", rec.LocalPath)
	}
	if rec.DisplayText != "Annual Report" {
		t.Errorf("unexpected display text %q", rec.DisplayText)
	}
}

// TestRunInclusionPolicy tests that filtered candidates are never downloaded.
func TestRunInclusionPolicy(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	s.page("/", `<a href="/koubo/a.pdf">A</a><a href="/news/b.pdf">B</a>`)
	s.doc("/koubo/a.pdf", pdfBytes(t))
	s.doc("/news/b.pdf", pdfBytes(t))

	u, err := url.Parse(s.URL)
	if err != nil {
		t.Fatal(err)
	}
	policy := crawler.NewPolicy(crawler.Rule{Match: u.Hostname(), Require: []string{"koubo"}})

	e := newEnv(t, crawler.WithPolicy(policy))
	res := e.run(t, []string{s.URL + "/"})

	if len(res.Acquired) != 1 || res.Acquired[0].CanonicalURL != s.URL+"/koubo/a.pdf" {
		t.Errorf("unexpected acquisitions %+v", res.Acquired)
	}
	if n := s.hitCount("/news/b.pdf"); n != 0 {
		t.Errorf("filtered document was requested %d times", n)
	}
}

// TestRunFailureIsolation tests that an unreachable seed does not stop the run.
func TestRunFailureIsolation(t *testing.T) {
	t.Parallel()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL + "/list"
	dead.Close()

	s := newSite(t)
	s.page("/b", `<a href="/1.pdf">1</a><a href="/2.pdf">2</a>`)
	s.doc("/1.pdf", pdfBytes(t))
	s.doc("/2.pdf", pdfBytes(t))

	e := newEnv(t)
	res := e.run(t, []string{deadURL, s.URL + "/b"})

	if len(res.Acquired) != 2 {
		t.Errorf("expected both links of the second seed, got %d", len(res.Acquired))
	}
	if len(res.Failures) != 1 {
		t.Fatalf("expected one failure, got %+v", res.Failures)
	}
	f := res.Failures[0]
	if f.Seed != deadURL || f.Stage != StageDiscover || f.URL != "" {
		t.Errorf("unexpected failure %+v", f)
	}
	if res.Discarded() != 0 {
		t.Errorf("seed failures are not discarded links, got %d", res.Discarded())
	}
}

// TestRunFailureIsolationTimeout tests that a seed answering slower than the
// client timeout is abandoned and the next seed is still crawled.
func TestRunFailureIsolationTimeout(t *testing.T) {
	t.Parallel()

	const timeout = 200 * time.Millisecond

	slow := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(10 * timeout):
		}
	}))
	t.Cleanup(slow.Close)
	slowURL := slow.URL + "/list"

	s := newSite(t)
	s.page("/b", `<a href="/1.pdf">1</a><a href="/2.pdf">2</a>`)
	s.doc("/1.pdf", pdfBytes(t))
	s.doc("/2.pdf", pdfBytes(t))

	e := newEnvWithTimeout(t, timeout)
	start := time.Now()
	res := e.run(t, []string{slowURL, s.URL + "/b"})
	elapsed := time.Since(start)

	if len(res.Acquired) != 2 {
		t.Errorf("expected both links of the second seed, got %d", len(res.Acquired))
	}
	if len(res.Failures) != 1 {
		t.Fatalf("expected one failure, got %+v", res.Failures)
	}
	if f := res.Failures[0]; f.Seed != slowURL || f.Stage != StageDiscover {
		t.Errorf("unexpected failure %+v", f)
	}
	if elapsed >= 10*timeout {
		t.Errorf("the slow seed was not cut off by the timeout, run took %v", elapsed)
	}
}

// TestRunLocked tests that a held ledger lock refuses the run.
func TestRunLocked(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	h := New(e.load(), e.discoverer, e.downloader, WithLock(true), WithLogger(quietLogger()))

	if err := os.MkdirAll(filepath.Dir(h.LockPath()), 0o750); err != nil {
		t.Fatal(err)
	}
	held := flock.New(h.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("failed to take lock: %v", err)
	}
	t.Cleanup(func() { _ = held.Unlock() })

	if _, err := h.Run(t.Context(), nil); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if _, err := os.Stat(e.ledgerPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("a refused run must not write the ledger")
	}
}

// fakeSource serves links from memory and can run a hook per seed.
type fakeSource struct {
	links  map[string][]model.Link
	onSeed func(seed string)
}

func (f *fakeSource) DiscoverPage(_ context.Context, seed string) ([]model.Link, error) {
	if f.onSeed != nil {
		f.onSeed(seed)
	}
	links, ok := f.links[seed]
	if !ok {
		return nil, fmt.Errorf("no such seed %s", seed)
	}
	return links, nil
}

// fakeFetcher writes a signature-only file for every URL.
type fakeFetcher struct {
	dir   string
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL, _ string) (string, error) {
	f.calls = append(f.calls, rawURL)
	path := filepath.Join(f.dir, downloader.FileName(rawURL))
	if err := os.WriteFile(path, []byte("%PDF-1.4\n"), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// recorder collects journal calls.
type recorder struct {
	started  int
	entries  []Entry
	finished *Result
}

func (r *recorder) StartRun(context.Context, string, time.Time, int) error {
	r.started++
	return nil
}

func (r *recorder) RecordEntry(_ context.Context, _ string, e Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *recorder) FinishRun(_ context.Context, res *Result) error {
	r.finished = res
	return nil
}

// TestRunCancelled tests that cancellation stops between seeds and still saves.
func TestRunCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	src := &fakeSource{
		links: map[string][]model.Link{
			"https://ex.org/1": {{URL: "https://ex.org/a.pdf", Text: "A"}},
			"https://ex.org/2": {{URL: "https://ex.org/b.pdf", Text: "B"}},
		},
		onSeed: func(string) { cancel() },
	}
	fetcher := &fakeFetcher{dir: dir}
	ledgerPath := filepath.Join(dir, "ledger.json")
	rec := &recorder{}

	h := New(ledger.Load(ledgerPath, ledger.WithLogger(quietLogger())), src, fetcher,
		WithRecorder(rec), WithLogger(quietLogger()))
	res, err := h.Run(ctx, []string{"https://ex.org/1", "https://ex.org/2"})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res == nil || !res.Cancelled {
		t.Fatalf("expected a cancelled result, got %+v", res)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("expected no downloads after cancellation, got %v", fetcher.calls)
	}
	if _, err := os.Stat(ledgerPath); err != nil {
		t.Errorf("expected the ledger to be saved: %v", err)
	}
	if rec.finished != res {
		t.Error("expected the journal to see the run end")
	}
}

// TestRunRecorder tests the entries sent to the journal.
func TestRunRecorder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "ledger.json")

	existing := filepath.Join(dir, "doc_existing.pdf")
	if err := os.WriteFile(existing, []byte("%PDF-1.7"), 0o600); err != nil {
		t.Fatal(err)
	}
	l := ledger.Load(ledgerPath, ledger.WithLogger(quietLogger()))
	if err := l.Put(model.Record{CanonicalURL: "https://ex.org/old.pdf", LocalPath: existing}); err != nil {
		t.Fatal(err)
	}

	src := &fakeSource{links: map[string][]model.Link{
		"https://ex.org/": {
			{URL: "https://ex.org/old.pdf", Text: "Old"},
			{URL: "https://ex.org/new.pdf", Text: "New"},
		},
	}}
	rec := &recorder{}
	fixed := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	h := New(l, src, &fakeFetcher{dir: dir}, WithRecorder(rec), WithClock(func() time.Time { return fixed }), WithLogger(quietLogger()))
	res, err := h.Run(t.Context(), []string{"https://ex.org/", "https://ex.org/missing"})
	if err != nil {
		t.Fatal(err)
	}

	if rec.started != 1 {
		t.Errorf("expected one run start, got %d", rec.started)
	}
	if len(rec.entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", rec.entries)
	}
	if rec.entries[0].Outcome != model.OutcomeSkipped || rec.entries[1].Outcome != model.OutcomeAcquired {
		t.Errorf("unexpected outcomes %v, %v", rec.entries[0].Outcome, rec.entries[1].Outcome)
	}
	if !rec.entries[1].At.Equal(fixed) {
		t.Errorf("expected entry time from the clock, got %v", rec.entries[1].At)
	}
	if res.RunID == "" || res.Seeds != 2 || res.Duration() != 0 {
		t.Errorf("unexpected result header %+v", res)
	}
	if len(res.Failures) != 1 || res.Failures[0].Stage != StageDiscover {
		t.Errorf("expected the missing seed to fail discovery, got %+v", res.Failures)
	}
}

// TestRunDelay tests the politeness delay between requests.
func TestRunDelay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := &fakeSource{links: map[string][]model.Link{
		"https://ex.org/": {
			{URL: "https://ex.org/a.pdf"},
			{URL: "https://ex.org/b.pdf"},
		},
	}}

	const delay = 40 * time.Millisecond
	h := New(ledger.Load(filepath.Join(dir, "l.json"), ledger.WithLogger(quietLogger())), src, &fakeFetcher{dir: dir},
		WithDelay(delay), WithLogger(quietLogger()))

	start := time.Now()
	if _, err := h.Run(t.Context(), []string{"https://ex.org/"}); err != nil {
		t.Fatal(err)
	}
	// One page and two documents: the second and third requests wait.
	if elapsed := time.Since(start); elapsed < 2*delay {
		t.Errorf("expected at least %v, took %v", 2*delay, elapsed)
	}
}

// TestRunSaveFailure tests that a ledger that cannot be written fails the run.
func TestRunSaveFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	src := &fakeSource{links: map[string][]model.Link{"https://ex.org/": {{URL: "https://ex.org/a.pdf"}}}}
	l := ledger.Load(filepath.Join(blocker, "ledger.json"), ledger.WithLogger(quietLogger()))
	h := New(l, src, &fakeFetcher{dir: dir}, WithLogger(quietLogger()))

	res, err := h.Run(t.Context(), []string{"https://ex.org/"})
	if err == nil {
		t.Fatal("expected a save error")
	}
	if res == nil || len(res.Acquired) != 1 {
		t.Errorf("expected the result to be returned with the error, got %+v", res)
	}
}

// TestRetryPolicy tests the named retry policy.
func TestRetryPolicy(t *testing.T) {
	t.Parallel()

	h := New(ledger.Load(filepath.Join(t.TempDir(), "l.json"), ledger.WithLogger(quietLogger())), &fakeSource{}, &fakeFetcher{})
	if h.RetryPolicy() != RetryOnNextRun {
		t.Errorf("unexpected policy %v", h.RetryPolicy())
	}
	if RetryOnNextRun.String() != "retry-on-next-run" {
		t.Errorf("unexpected name %q", RetryOnNextRun.String())
	}
}

// TestVerifier tests read-only re-validation of ledger records.
func TestVerifier(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.pdf")
	bad := filepath.Join(dir, "bad.pdf")
	if err := os.WriteFile(good, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("<html>"), 0o600); err != nil {
		t.Fatal(err)
	}

	records := []model.Record{
		{CanonicalURL: "https://ex.org/a.pdf", LocalPath: good},
		{CanonicalURL: "https://ex.org/b.pdf", LocalPath: bad},
		{CanonicalURL: "https://ex.org/c.pdf", LocalPath: filepath.Join(dir, "gone.pdf")},
		{CanonicalURL: "https://ex.org/d.pdf"},
	}

	v := NewVerifier(validator.Magic{}, WithConcurrency(2), WithVerifierLogger(quietLogger()))

	checks, err := v.Verify(t.Context(), records)
	if err != nil {
		t.Fatal(err)
	}

	want := []bool{true, false, false, false}
	for i, c := range checks {
		if c.Record.CanonicalURL != records[i].CanonicalURL {
			t.Errorf("check %d out of order: %s", i, c.Record.CanonicalURL)
		}
		if c.Valid != want[i] {
			t.Errorf("check %d valid = %v, want %v", i, c.Valid, want[i])
		}
		if c.WillRefetch() == want[i] {
			t.Errorf("check %d WillRefetch inconsistent", i)
		}
	}
}

// cancellingValidator cancels a context on its first check.
type cancellingValidator struct {
	validator.Magic

	cancel context.CancelFunc
}

func (c cancellingValidator) IsValid(path string) bool {
	c.cancel()
	return c.Magic.IsValid(path)
}

// TestVerifierCancelled tests that a cancelled verify returns only the checks it completed.
func TestVerifierCancelled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.pdf")
	if err := os.WriteFile(good, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}
	records := []model.Record{
		{CanonicalURL: "https://ex.org/a.pdf", LocalPath: good},
		{CanonicalURL: "https://ex.org/b.pdf", LocalPath: good},
		{CanonicalURL: "https://ex.org/c.pdf", LocalPath: good},
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	v := NewVerifier(cancellingValidator{cancel: cancel}, WithConcurrency(1), WithVerifierLogger(quietLogger()))

	checks, err := v.Verify(ctx, records)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(checks) != 1 {
		t.Fatalf("expected only the completed check, got %d", len(checks))
	}
	if checks[0].Record.CanonicalURL != records[0].CanonicalURL || !checks[0].Valid {
		t.Errorf("unexpected check %+v", checks[0])
	}
}
