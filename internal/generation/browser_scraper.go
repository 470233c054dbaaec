package generation

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// BrowserScraper renders the page in headless Chrome before extracting content,
// for landing pages that build their DOM with JavaScript.
type BrowserScraper struct {
	timeout time.Duration
	log     *zap.Logger
}

func NewBrowserScraper(timeout time.Duration, log *zap.Logger) *BrowserScraper {
	return &BrowserScraper{timeout: timeout, log: log}
}

func (s *BrowserScraper) Scrape(ctx context.Context, pageURL string) (*ScrapeResult, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := checkPublicHost(ctx, base.Hostname()); err != nil {
		return nil, err
	}

	l := launcher.New().Headless(true).NoSandbox(true)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	router := browser.HijackRequests()
	guard := &hostGuard{ctx: ctx, log: s.log}
	if err := router.Add("*", "", guard.handle); err != nil {
		return nil, fmt.Errorf("hijack requests: %w", err)
	}
	go router.Run()
	defer func() { _ = router.Stop() }()

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	result := &ScrapeResult{}

	paragraphs, err := page.Elements("p")
	if err != nil {
		return nil, fmt.Errorf("find paragraphs: %w", err)
	}
	var texts []string
	for _, el := range paragraphs {
		text, err := el.Text()
		if err != nil {
			continue
		}
		if text = strings.Join(strings.Fields(text), " "); text != "" {
			texts = append(texts, text)
		}
	}
	result.Paragraphs = strings.Join(texts, "\n")

	images, err := page.Elements("img")
	if err != nil {
		return nil, fmt.Errorf("find images: %w", err)
	}
	seen := map[string]bool{}
	for _, el := range images {
		src, err := el.Attribute("src")
		if err != nil || src == nil {
			continue
		}
		if abs := resolveURL(base, *src); abs != "" && !seen[abs] {
			seen[abs] = true
			result.Images = append(result.Images, abs)
		}
	}

	s.log.Debug("page rendered",
		zap.String("url", pageURL),
		zap.Int("paragraphs", len(texts)),
		zap.Int("images", len(result.Images)),
	)
	return result, nil
}

// hostGuard fails every browser request, redirects and subresources
// included, whose host resolves to an internal address.
type hostGuard struct {
	ctx     context.Context
	log     *zap.Logger
	checked sync.Map // host -> error (nil when public)
}

func (g *hostGuard) handle(h *rod.Hijack) {
	u := h.Request.URL()
	if u.Scheme == "data" || u.Scheme == "blob" {
		h.ContinueRequest(&proto.FetchContinueRequest{})
		return
	}
	if err := g.check(u.Hostname()); err != nil {
		g.log.Debug("blocked browser request", zap.String("url", u.String()), zap.Error(err))
		h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		return
	}
	h.ContinueRequest(&proto.FetchContinueRequest{})
}

func (g *hostGuard) check(host string) error {
	if v, ok := g.checked.Load(host); ok {
		err, _ := v.(error)
		return err
	}
	err := checkPublicHost(g.ctx, host)
	g.checked.Store(host, err)
	return err
}

// NewScraper picks the scraping engine by name.
func NewScraper(engine string, timeout time.Duration, maxRetries int, log *zap.Logger) Scraper {
	if engine == "browser" {
		return NewBrowserScraper(timeout, log)
	}
	return NewHTTPScraper(timeout, maxRetries, log)
}
