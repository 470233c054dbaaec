package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTPScraper fetches static HTML and extracts paragraph text and image sources.
// It only connects to public addresses and reads at most 5 MiB of a page.
type HTTPScraper struct {
	httpClient *http.Client
	maxRetries int
	log        *zap.Logger
}

func NewHTTPScraper(timeout time.Duration, maxRetries int, log *zap.Logger) *HTTPScraper {
	return newHTTPScraper(newPublicHTTPClient(timeout), maxRetries, log)
}

func newHTTPScraper(client *http.Client, maxRetries int, log *zap.Logger) *HTTPScraper {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HTTPScraper{httpClient: client, maxRetries: maxRetries, log: log}
}

func (s *HTTPScraper) Scrape(ctx context.Context, pageURL string) (*ScrapeResult, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var doc *goquery.Document
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if errors.Is(err, ErrNonPublicAddress) {
				break
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, pageURL)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				break
			}
			continue
		}

		doc, err = goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return extract(doc, base), nil
}

func extract(doc *goquery.Document, base *url.URL) *ScrapeResult {
	var paragraphs []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.Join(strings.Fields(p.Text()), " ")
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	var images []string
	seen := map[string]bool{}
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok {
			return
		}
		if abs := resolveURL(base, src); abs != "" && !seen[abs] {
			seen[abs] = true
			images = append(images, abs)
		}
	})

	return &ScrapeResult{Paragraphs: strings.Join(paragraphs, "\n"), Images: images}
}

// resolveURL makes src absolute against base and drops inline data URIs.
func resolveURL(base *url.URL, src string) string {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "data:") {
		return ""
	}
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
