package crawler

import (
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/docharvest/internal/model"
)

// ignoredSchemes are href schemes that never point at a document.
var ignoredSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// Parser extracts document links from HTML content.
type Parser struct {
	// ext is the lowercase document extension including the dot.
	ext string
}

// NewParser creates a Parser matching links that end in ext, e.g. ".pdf".
// The match is case-insensitive.
func NewParser(ext string) *Parser {
	return &Parser{ext: strings.ToLower(ext)}
}

// Parse reads UTF-8 HTML and returns the document links it contains, in
// document order, each URL reported once.
// pageURL is the address the content was fetched from.
func (p *Parser) Parse(content io.Reader, pageURL *url.URL) ([]model.Link, error) {
	doc, err := goquery.NewDocumentFromReader(content)
	if err != nil {
		return nil, err
	}

	base := pageURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = pageURL.ResolveReference(ref)
		}
	}

	seen := make(map[string]struct{})
	var links []model.Link

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		target, ok := p.resolve(base, href)
		if !ok {
			return
		}

		key := target.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}

		links = append(links, model.Link{
			URL:  key,
			Text: displayText(s, target),
		})
	})

	return links, nil
}

// resolve checks an href against the extension and returns the absolute
// candidate URL. The extension is matched on the href with its query and
// fragment removed; the URL is resolved from the full href so the query
// survives.
func (p *Parser) resolve(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return nil, false
	}

	lower := strings.ToLower(href)
	for _, scheme := range ignoredSchemes {
		if strings.HasPrefix(lower, scheme) {
			return nil, false
		}
	}

	stripped := lower
	if i := strings.IndexAny(stripped, "?#"); i >= 0 {
		stripped = stripped[:i]
	}
	if !strings.HasSuffix(stripped, p.ext) {
		return nil, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	target := base.ResolveReference(ref)
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, false
	}
	target.Fragment = ""
	target.RawFragment = ""

	return target, true
}

// displayText returns the anchor's label: its text, else its title
// attribute, else the file name of the target.
// Whitespace is collapsed and full-width ASCII folded by NFKC.
func displayText(s *goquery.Selection, target *url.URL) string {
	if text := normalizeText(s.Text()); text != "" {
		return text
	}
	if title, ok := s.Attr("title"); ok {
		if text := normalizeText(title); text != "" {
			return text
		}
	}
	if name := path.Base(target.Path); name != "." && name != "/" {
		return name
	}
	return target.Host
}

// normalizeText collapses runs of whitespace and applies NFKC.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}
