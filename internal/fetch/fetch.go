// Package fetch downloads bill pages and extracts plain-text excerpts used
// as summarizer context.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// Excerpts longer than this are truncated before being handed to the
// summarizer prompt.
const maxExcerptChars = 6000

// Extracted text shorter than this is considered noise (nav chrome, SPA
// shells) and discarded.
const minExcerptChars = 100

// Fetcher retrieves bill page text via HTTP + readability extraction.
type Fetcher struct {
	client *http.Client
}

// New creates a fetcher with the given per-request timeout.
func New(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Excerpt fetches an HTML bill page and returns its readable text, capped
// for prompt use. Returns "" without error when the page has no extractable
// text; the summarizer then falls back to official metadata.
func (f *Fetcher) Excerpt(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "civicboard/1.0 (bill text fetcher)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetching %s: HTTP %d", pageURL, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") {
		// PDFs and other binary documents are resolved separately.
		return "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minExcerptChars {
		return "", nil
	}
	if len(text) > maxExcerptChars {
		text = text[:maxExcerptChars]
	}
	return text, nil
}
