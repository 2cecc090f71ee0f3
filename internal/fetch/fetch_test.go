package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("a", 64)))
		default:
			assert.Equal(t, DefaultUserAgent, r.UserAgent())
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body><h1>Backend Engineer</h1></body></html>"))
		}
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL+"/job/1", nil)
	require.NoError(t, err)
	assert.Contains(t, result.HTML, "<h1>Backend Engineer</h1>")
	assert.Equal(t, "text/html", result.ContentType)

	// A non-200 still returns the result alongside the error.
	result, err = URL(context.Background(), server.URL+"/gone", nil)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "404")
	require.NotNil(t, result)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)

	opts := DefaultOptions()
	opts.MaxBodyBytes = 10
	result, err = URL(context.Background(), server.URL+"/big", opts)
	require.NoError(t, err)
	assert.Len(t, result.HTML, 10)

	_, err = URL(context.Background(), "not-a-valid-url", nil)
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "invalid URL", fetchErr.Message)
}

func TestExtractMainText(t *testing.T) {
	tests := []struct {
		name    string
		html    string
		want    []string
		notWant []string
	}{
		{
			name: "description block beats chrome",
			html: `<html><body><nav>Navigation</nav><div class="sidebar">Sidebar junk</div><div class="job-description"><h2>Requirements</h2>
				<p>5 years   of Go</p></div><footer>Footer</footer></body></html>`,
			want:    []string{"Requirements\n5 years of Go"},
			notWant: []string{"Navigation", "Sidebar", "Footer"},
		},
		{
			name:    "main element",
			html:    `<html><body><header>Logo</header><main><h1>Platform Engineer</h1><p>Kuala Lumpur</p></main></body></html>`,
			want:    []string{"Platform Engineer", "Kuala Lumpur"},
			notWant: []string{"Logo"},
		},
		{
			name: "article element",
			html: `<html><body><article><h1>SRE</h1><p>On-call rotation.</p></article></body></html>`,
			want: []string{"SRE", "On-call rotation."},
		},
		{
			name:    "falls back to body",
			html:    `<html><body><script>track()</script><div>Some content here.</div></body></html>`,
			want:    []string{"Some content here."},
			notWant: []string{"track()"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := ExtractMainText(tt.html, JobPostingSelectors())
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, text, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, text, nw)
			}
		})
	}
}

func TestExtractMainText_PlatformNoise(t *testing.T) {
	html := `<html><body><main><div class="apply">Apply now</div><p>Go and Kafka</p></main></body></html>`
	text, err := ExtractMainText(html, []string{"main"}, ".apply")
	require.NoError(t, err)
	assert.Equal(t, "Go and Kafka", text)
}

func TestDetectPlatform(t *testing.T) {
	tests := map[string]Platform{
		"https://boards.greenhouse.io/acme/jobs/1":         PlatformGreenhouse,
		"https://jobs.lever.co/acme/abc":                   PlatformLever,
		"https://www.linkedin.com/jobs/view/123":           PlatformLinkedIn,
		"https://www.jobstreet.com.my/job/789":             PlatformJobStreet,
		"https://www.glassdoor.com/job-listing/x":          PlatformGlassdoor,
		"https://careers.example.com/positions/backend-go": PlatformUnknown,
		"::bad::": PlatformUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, DetectPlatform(in), in)
	}
}

func TestVisitor_HTTPOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><form>Apply now</form><div class="job-description">Go, Kubernetes, PostgreSQL</div></body></html>`))
	}))
	defer server.Close()

	page, err := NewVisitor(nil, nil).Visit(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, PlatformUnknown, page.Platform)
	assert.Equal(t, "Go, Kubernetes, PostgreSQL", page.Text)
	assert.False(t, page.Rendered)
}

func TestVisitor_BrowserFallbackOnThinPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="root"></div></body></html>`))
	}))
	defer server.Close()

	var rendered string
	render := func(_ context.Context, url string, _ time.Duration) (string, error) {
		rendered = url
		return `<html><body><main>Rendered requirements: Go</main></body></html>`, nil
	}

	page, err := NewVisitor(nil, render).Visit(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, server.URL, rendered)
	assert.True(t, page.Rendered)
	assert.Equal(t, "Rendered requirements: Go", page.Text)
}

func TestVisitor_HTTPErrorWithoutBrowser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewVisitor(nil, nil).Visit(context.Background(), server.URL)
	require.Error(t, err)
	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, "abc", truncate("abc", 10))
}
