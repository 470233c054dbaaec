package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ImageClient calls a text-to-image HTTP API that answers with image URLs.
type ImageClient struct {
	baseURL    string
	apiKey     string
	style      string
	resolution string
	httpClient *http.Client
	log        *zap.Logger
}

func NewImageClient(baseURL, apiKey, style, resolution string, log *zap.Logger) *ImageClient {
	return &ImageClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		style:      style,
		resolution: resolution,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
}

type imageRequest struct {
	Text       string `json:"text"`
	Style      string `json:"style,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

type imageResponse struct {
	ImageURLs []string `json:"image_urls"`
}

func (c *ImageClient) GenerateImage(ctx context.Context, prompt string) ([]string, error) {
	if c.apiKey == "" {
		return nil, ErrCapabilityDisabled
	}

	body, err := json.Marshal(imageRequest{Text: prompt, Style: c.style, Resolution: c.resolution})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-image", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("image service returned %d: %s", resp.StatusCode, string(b))
	}

	var out imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.ImageURLs, nil
}
