package generation

import (
	"context"

	"github.com/adpilot/backend/internal/config"
	"go.uber.org/zap"
)

// NewPipelineFromConfig wires the scraper, copywriter and image client the
// API and the worker share. Missing credentials yield disabled capabilities.
func NewPipelineFromConfig(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Pipeline, error) {
	copywriter, err := NewCopyGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	scraper := NewScraper(cfg.ScraperEngine, cfg.ScrapeTimeout, cfg.ScrapeRetries, log.Named("scraper"))
	images := NewImageClient(cfg.ImageAPIURL, cfg.ImageAPIKey, cfg.ImageStyle, cfg.ImageResolution, log.Named("images"))
	p := NewPipeline(scraper, copywriter, images, log.Named("generation")).
		WithCallTimeout(cfg.GenerationCallTimeout)
	return p, nil
}
