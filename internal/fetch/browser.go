package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// MinContentLength is the minimum extracted text length to consider an HTTP fetch useful.
// Shorter pages are assumed to be client-rendered.
const MinContentLength = 500

// ShouldUseBrowser reports whether extracted text is too short to be a real posting.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// RenderFunc renders a URL and returns its HTML.
type RenderFunc func(ctx context.Context, url string, timeout time.Duration) (string, error)

// WithBrowser renders a page in headless Chrome and returns the rendered HTML.
// Requires Chrome/Chromium on the host.
func WithBrowser(ctx context.Context, url string, timeout time.Duration) (string, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}
	return html, nil
}

// Page is the readable text of a visited job page.
type Page struct {
	URL      string
	Platform Platform
	Text     string
	Rendered bool
	// Posting is the page's structured JobPosting, when it publishes one.
	Posting *Posting
}

// Visitor fetches a page over HTTP and, if enabled, re-renders thin pages in a browser.
type Visitor struct {
	opts    *Options
	render  RenderFunc
	log     *zap.Logger
	timeout time.Duration
}

// NewVisitor creates a page visitor. A nil render disables the browser fallback.
func NewVisitor(log *zap.Logger, render RenderFunc) *Visitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Visitor{
		opts:    DefaultOptions(),
		render:  render,
		log:     log,
		timeout: DefaultTimeout,
	}
}

// Visit returns the main text of a job page.
func (v *Visitor) Visit(ctx context.Context, urlStr string) (*Page, error) {
	platform := DetectPlatform(urlStr)
	selectors := PlatformContentSelectors(platform)
	noise := PlatformNoiseSelectors(platform)

	page := &Page{URL: urlStr, Platform: platform}

	res, err := URL(ctx, urlStr, v.opts)
	if err == nil {
		page.Posting = ExtractPosting(res.HTML)
		page.Text, err = ExtractMainText(res.HTML, selectors, noise...)
	}
	if err != nil && v.render == nil {
		return nil, err
	}

	if v.render != nil && (err != nil || ShouldUseBrowser(page.Text)) {
		v.log.Debug("falling back to browser rendering",
			zap.String("url", urlStr),
			zap.Int("http_text_len", len(page.Text)),
			zap.Error(err))
		html, rerr := v.render(ctx, urlStr, v.timeout)
		if rerr != nil {
			if page.Text != "" {
				page.Text = truncate(page.Text, MaxPageText)
				return page, nil
			}
			return nil, rerr
		}
		text, xerr := ExtractMainText(html, selectors, noise...)
		if xerr != nil {
			return nil, xerr
		}
		page.Text = text
		page.Rendered = true
		if page.Posting == nil {
			page.Posting = ExtractPosting(html)
		}
	}

	page.Text = truncate(page.Text, MaxPageText)
	return page, nil
}
