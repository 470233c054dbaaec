// Package adplatform talks to the Meta Marketing (Graph) API.
package adplatform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

var ErrNotConfigured = errors.New("ad platform credentials are not configured")

// APIError carries the vendor response body verbatim.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ad platform returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ad platform returned %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Options struct {
	BaseURL     string
	AccessToken string
	AdAccountID string
	PageID      string
	MaxRetries  int
	HTTPClient  *http.Client
}

type Client struct {
	baseURL     string
	accessToken string
	accountID   string
	pageID      string
	maxRetries  int
	httpClient  *http.Client
	log         *zap.Logger
}

func NewClient(opts Options, log *zap.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	accountID := opts.AdAccountID
	if accountID != "" && !strings.HasPrefix(accountID, "act_") {
		accountID = "act_" + accountID
	}
	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		accessToken: opts.AccessToken,
		accountID:   accountID,
		pageID:      opts.PageID,
		maxRetries:  maxRetries,
		httpClient:  httpClient,
		log:         log,
	}
}

func (c *Client) configured() bool {
	return c.accessToken != "" && c.accountID != ""
}

type idResponse struct {
	ID string `json:"id"`
}

// create POSTs form values to an ad account edge and returns the new object id.
func (c *Client) create(ctx context.Context, edge string, form url.Values) (string, error) {
	if !c.configured() {
		return "", ErrNotConfigured
	}
	var out idResponse
	if err := c.do(ctx, http.MethodPost, c.accountID+"/"+edge, form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("ad platform returned no id for %s", edge)
	}
	return out.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	if form == nil {
		form = url.Values{}
	}
	form.Set("access_token", c.accessToken)

	endpoint := c.baseURL + "/" + path
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		var (
			req *http.Request
			err error
		)
		if method == http.MethodGet || method == http.MethodDelete {
			req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+form.Encode(), nil)
		} else {
			req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(form.Encode()))
			if err == nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
		}
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("ad platform unavailable: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("ad platform unavailable: %w", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body), Message: vendorMessage(body)}
			if !apiErr.retryable() {
				return apiErr
			}
			c.log.Warn("ad platform call failed, retrying",
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			lastErr = apiErr
			continue
		}

		if out == nil {
			return nil
		}
		return json.Unmarshal(body, out)
	}
	return lastErr
}

func vendorMessage(body []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Error.Message
}

func mustJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
