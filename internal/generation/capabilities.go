// Package generation turns a landing page URL into ad creative: scraped copy,
// generated text variants and generated images.
package generation

import "context"

type ScrapeResult struct {
	Paragraphs string   `json:"paragraphs"`
	Images     []string `json:"images"`
}

type Scraper interface {
	Scrape(ctx context.Context, url string) (*ScrapeResult, error)
}

type CopyGenerator interface {
	GenerateCopy(ctx context.Context, prompt string) (string, error)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]string, error)
}
