package validator

import (
	"github.com/ledongthuc/pdf"
)

// Structural accepts files that pass Magic and also parse as a PDF with
// at least one page. It catches truncated downloads that still start with
// the right signature.
type Structural struct{}

// Name returns "structural".
func (Structural) Name() string { return StrategyStructural }

// IsValid reports whether path is a parseable PDF with one or more pages.
func (Structural) IsValid(path string) bool {
	if !(Magic{}).IsValid(path) {
		return false
	}
	return pageCount(path) > 0
}

// pageCount opens the document and returns its page count.
// Parse failures and parser panics on malformed input both count as zero.
func pageCount(path string) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	return r.NumPage()
}
