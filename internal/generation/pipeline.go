package generation

import (
	"context"
	"time"

	"github.com/adpilot/backend/internal/apperr"
	"go.uber.org/zap"
)

const (
	CapabilityScrape = "scrape"
	CapabilityCopy   = "generate_copy"
	CapabilityImage  = "generate_image"
)

type Result struct {
	Paragraphs   string                    `json:"paragraphs"`
	SourceImages []string                  `json:"source_images"`
	Copies       []CopyVariant             `json:"copies"`
	Images       []string                  `json:"images"`
	Degraded     []*apperr.CapabilityError `json:"-"`
}

// DefaultImage is the first generated image, falling back to the first
// image found on the page.
func (r *Result) DefaultImage() string {
	if len(r.Images) > 0 {
		return r.Images[0]
	}
	if len(r.SourceImages) > 0 {
		return r.SourceImages[0]
	}
	return ""
}

// Pipeline runs scrape, copy and image generation in sequence. It never fails:
// each capability failure is recorded and replaced by empty content.
type Pipeline struct {
	scraper     Scraper
	copy        CopyGenerator
	image       ImageGenerator
	callTimeout time.Duration
	log         *zap.Logger
}

// DefaultCallTimeout bounds each capability call when none is configured.
const DefaultCallTimeout = 30 * time.Second

func NewPipeline(scraper Scraper, copy CopyGenerator, image ImageGenerator, log *zap.Logger) *Pipeline {
	return &Pipeline{scraper: scraper, copy: copy, image: image, callTimeout: DefaultCallTimeout, log: log}
}

// WithCallTimeout sets the deadline applied to every capability call.
// Non-positive values keep the current setting.
func (p *Pipeline) WithCallTimeout(d time.Duration) *Pipeline {
	if d > 0 {
		p.callTimeout = d
	}
	return p
}

// MaxDuration is the longest a single Run can take.
func (p *Pipeline) MaxDuration() time.Duration {
	return 3 * p.callTimeout
}

func (p *Pipeline) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.callTimeout)
}

func (p *Pipeline) Run(ctx context.Context, objective, url string) *Result {
	res := &Result{}
	log := p.log.With(zap.String("url", url), zap.String("objective", objective))

	callCtx, cancel := p.bounded(ctx)
	scraped, err := p.scraper.Scrape(callCtx, url)
	cancel()
	if err != nil {
		res.degrade(log, CapabilityScrape, err)
	} else if scraped != nil {
		res.Paragraphs = scraped.Paragraphs
		res.SourceImages = scraped.Images
	}

	callCtx, cancel = p.bounded(ctx)
	text, err := p.copy.GenerateCopy(callCtx, CopyPrompt(objective, res.Paragraphs))
	cancel()
	if err != nil {
		res.degrade(log, CapabilityCopy, err)
	} else {
		res.Copies = SplitVariants(text)
	}

	callCtx, cancel = p.bounded(ctx)
	images, err := p.image.GenerateImage(callCtx, ImagePrompt(objective, res.Paragraphs))
	cancel()
	if err != nil {
		res.degrade(log, CapabilityImage, err)
	} else {
		res.Images = images
	}

	log.Info("generation pipeline finished",
		zap.Int("paragraph_chars", len(res.Paragraphs)),
		zap.Int("copies", len(res.Copies)),
		zap.Int("images", len(res.Images)),
		zap.Int("degraded", len(res.Degraded)),
	)
	return res
}

func (r *Result) degrade(log *zap.Logger, capability string, err error) {
	log.Warn("capability failed, continuing with empty content",
		zap.String("capability", capability),
		zap.Error(err),
	)
	r.Degraded = append(r.Degraded, &apperr.CapabilityError{Capability: capability, Err: err})
}
