package model

import (
	"encoding/json"
	"strings"
)

// Link is a candidate document link produced by discovery.
// It is transient and never persisted on its own.
type Link struct {
	// URL is the absolute candidate URL, resolved against the seed page.
	// The query string is preserved; the fragment is dropped.
	URL string `json:"url"`

	// Text is the human-readable label taken from the anchor.
	Text string `json:"text"`
}

// Record is the ledger's unit of state for one document.
//
// The acquisition core owns CanonicalURL, DisplayText and LocalPath.
// The downstream generation stage owns Processed and GeneratedArtifactPath;
// the core carries them over untouched.
type Record struct {
	// CanonicalURL is the ledger key: the resolved absolute URL including query.
	CanonicalURL string `json:"canonical_url"`

	// DisplayText is the label the document was discovered with.
	DisplayText string `json:"display_text"`

	// LocalPath is where the validated artifact lives.
	// Empty until a download has passed validation.
	LocalPath string `json:"local_path,omitempty"`

	// Processed reports whether the downstream stage has handled the document.
	Processed bool `json:"processed"`

	// GeneratedArtifactPath is written by the downstream stage.
	GeneratedArtifactPath string `json:"generated_artifact_path,omitempty"`
}

// legacyRecord mirrors the entries written by the previous tool generation,
// which used short keys and named the generated artifact after infographics.
type legacyRecord struct {
	URL             string `json:"url"`
	Text            string `json:"text"`
	InfographicPath string `json:"infographic_path"`
}

// UnmarshalJSON decodes a record, accepting the legacy key names as well.
// Canonical keys win when both forms are present.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var current plain
	if err := json.Unmarshal(data, &current); err != nil {
		return err
	}

	var legacy legacyRecord
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}

	if current.CanonicalURL == "" {
		current.CanonicalURL = legacy.URL
	}
	if current.DisplayText == "" {
		current.DisplayText = legacy.Text
	}
	if current.GeneratedArtifactPath == "" {
		current.GeneratedArtifactPath = legacy.InfographicPath
	}

	*r = Record(current)
	return nil
}

// HasArtifact reports whether the record points at a downloaded file.
// It does not check that the file is still valid.
func (r Record) HasArtifact() bool {
	return strings.TrimSpace(r.LocalPath) != ""
}

// IsPending reports whether the downstream stage still has work to do.
func (r Record) IsPending() bool {
	return r.HasArtifact() && !r.Processed
}

// Acquired returns a copy of r updated for a fresh, validated download.
// Fields owned by the downstream stage are preserved so a re-download never
// reverts a processed document.
func (r Record) Acquired(link Link, localPath string) Record {
	r.CanonicalURL = link.URL
	if link.Text != "" || r.DisplayText == "" {
		r.DisplayText = link.Text
	}
	r.LocalPath = localPath
	return r
}
