// Package search provides the external lookup collaborators used by stage workers:
// market/social-proof search, listing search and code-repository search.
package search

import (
	"context"
	"errors"
	"fmt"
)

// ErrLookupUnavailable marks any failure of an external search collaborator.
// Workers treat it as a soft failure.
var ErrLookupUnavailable = errors.New("lookup unavailable")

// Snippet is one search hit.
type Snippet struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
}

// Searcher answers a free-text query with a sequence of snippets.
type Searcher interface {
	Query(ctx context.Context, text string) ([]Snippet, error)
}

// LookupError wraps a collaborator failure so that errors.Is matches ErrLookupUnavailable.
type LookupError struct {
	Backend string
	Query   string
	Cause   error
}

func (e *LookupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s lookup %q unavailable: %v", e.Backend, e.Query, e.Cause)
	}
	return fmt.Sprintf("%s lookup %q unavailable", e.Backend, e.Query)
}

func (e *LookupError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match ErrLookupUnavailable.
func (e *LookupError) Is(target error) bool {
	return target == ErrLookupUnavailable
}

// Unavailable is a Searcher for a backend that is not configured. Every query fails softly.
type Unavailable struct {
	Backend string
}

// Query implements Searcher.
func (u Unavailable) Query(_ context.Context, text string) ([]Snippet, error) {
	return nil, &LookupError{Backend: u.Backend, Query: text, Cause: errors.New("backend not configured")}
}

// Texts flattens snippets into display lines.
func Texts(snippets []Snippet) []string {
	out := make([]string, 0, len(snippets))
	for _, s := range snippets {
		switch {
		case s.Title != "" && s.Text != "":
			out = append(out, s.Title+": "+s.Text)
		case s.Text != "":
			out = append(out, s.Text)
		case s.Title != "":
			out = append(out, s.Title)
		}
	}
	return out
}
