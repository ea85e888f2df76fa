package validator

import (
	"bytes"
	"io"
	"os"
)

// Signature is the byte sequence every PDF file starts with.
var Signature = []byte("%PDF")

// Magic accepts files whose first bytes are the PDF signature.
type Magic struct{}

// Name returns "magic".
func (Magic) Name() string { return StrategyMagic }

// IsValid reports whether path starts with Signature.
func (Magic) IsValid(path string) bool {
	if !regularFile(path) {
		return false
	}

	f, err := os.Open(path) //nolint:gosec // Path comes from the download directory
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, len(Signature))
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, Signature)
}
