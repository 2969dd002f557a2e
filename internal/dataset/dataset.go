// Package dataset reads CLiCR-style clinical QA corpora: a JSON file with a
// top-level "data" array of report records, each wrapping a document with a
// title, running context and an ordered list of QA pairs.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMissingField is returned when a record lacks an expected document field.
var ErrMissingField = errors.New("missing document field")

// Answer is one gold answer for a query.
type Answer struct {
	Text   string `json:"text"`
	Origin string `json:"origin,omitempty"`
}

// QA is one query with its ordered answers. The query text carries exactly
// one @placeholder marker in well-formed input.
type QA struct {
	Query   string   `json:"query"`
	ID      string   `json:"id,omitempty"`
	Answers []Answer `json:"answers"`
}

// Record is one clinical report plus its QA pairs. The document payload is
// kept as raw JSON fields so missing keys can be reported explicitly instead
// of silently decaying to zero values.
type Record struct {
	Source   string `json:"source"`
	Document struct {
		Title   *string `json:"title"`
		Context *string `json:"context"`
		QAs     []QA    `json:"qas"`
	} `json:"document"`
}

// Title returns the document title or ErrMissingField.
func (r *Record) Title() (string, error) {
	if r.Document.Title == nil {
		return "", fmt.Errorf("%w: title (source=%s)", ErrMissingField, r.Source)
	}
	return *r.Document.Title, nil
}

// Context returns the document context or ErrMissingField.
func (r *Record) Context() (string, error) {
	if r.Document.Context == nil {
		return "", fmt.Errorf("%w: context (source=%s)", ErrMissingField, r.Source)
	}
	return *r.Document.Context, nil
}

// Corpus is one fully decoded split file.
type Corpus struct {
	Version string   `json:"version,omitempty"`
	Data    []Record `json:"data"`
}

// Load reads and decodes one split file. I/O and decode failures are fatal
// for the split and are returned wrapped.
func Load(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	var corpus Corpus
	if err := json.NewDecoder(f).Decode(&corpus); err != nil {
		return nil, fmt.Errorf("decode dataset %s: %w", path, err)
	}
	return &corpus, nil
}
