package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// GitHubSearchURL is the repository search endpoint.
const GitHubSearchURL = "https://api.github.com/search/repositories"

// GitHubSearcher finds code repositories through the GitHub search API.
// Each snippet's Title is the repository identifier in owner/repo form.
type GitHubSearcher struct {
	token      string
	endpoint   string
	perPage    int
	httpClient *http.Client
}

// NewGitHubSearcher creates a repository searcher. The token is optional.
func NewGitHubSearcher(token string) *GitHubSearcher {
	return &GitHubSearcher{
		token:    token,
		endpoint: GitHubSearchURL,
		perPage:  3,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// WithEndpoint points the searcher at a different API base. Useful for tests.
func (g *GitHubSearcher) WithEndpoint(endpoint string) *GitHubSearcher {
	g.endpoint = endpoint
	return g
}

// Query implements Searcher.
func (g *GitHubSearcher) Query(ctx context.Context, text string) ([]Snippet, error) {
	params := url.Values{}
	params.Set("q", text)
	params.Set("sort", "stars")
	params.Set("order", "desc")
	params.Set("per_page", fmt.Sprintf("%d", g.perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &LookupError{Backend: "github", Query: text, Cause: err}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &LookupError{Backend: "github", Query: text, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LookupError{Backend: "github", Query: text, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "message").String()
		return nil, &LookupError{Backend: "github", Query: text, Cause: fmt.Errorf("HTTP status %d: %s", resp.StatusCode, msg)}
	}

	items := gjson.GetBytes(body, "items")
	if !items.IsArray() {
		return nil, &LookupError{Backend: "github", Query: text, Cause: fmt.Errorf("response has no items array")}
	}

	var snippets []Snippet
	items.ForEach(func(_, item gjson.Result) bool {
		name := item.Get("full_name").String()
		if name == "" {
			return true
		}
		snippets = append(snippets, Snippet{
			Title: name,
			Text:  item.Get("description").String(),
			URL:   item.Get("html_url").String(),
		})
		return len(snippets) < g.perPage
	})
	return snippets, nil
}
