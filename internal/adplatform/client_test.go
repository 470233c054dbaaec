package adplatform

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adpilot/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:     srv.URL,
		AccessToken: "token",
		AdAccountID: "123",
		PageID:      "page-1",
		MaxRetries:  2,
	}, zap.NewNop())
}

func TestCreateCampaign(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/act_123/campaigns", r.URL.Path)
		assert.Equal(t, "OUTCOME_SALES", r.PostForm.Get("objective"))
		assert.Equal(t, "PAUSED", r.PostForm.Get("status"))
		assert.Equal(t, "token", r.PostForm.Get("access_token"))
		_, _ = w.Write([]byte(`{"id":"cmp-1"}`))
	})

	id, err := c.CreateCampaign(context.Background(), CampaignParams{Name: "Spring", Objective: models.ObjectiveSales})
	require.NoError(t, err)
	assert.Equal(t, "cmp-1", id)
}

func TestCreateAdSetSendsMinorUnitsAndTargeting(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "2550", r.PostForm.Get("daily_budget"))
		assert.Equal(t, "cmp-1", r.PostForm.Get("campaign_id"))

		var targeting map[string]any
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("targeting")), &targeting))
		assert.EqualValues(t, 20, targeting["age_min"])
		assert.EqualValues(t, 30, targeting["age_max"])
		assert.Contains(t, r.PostForm.Get("targeting"), `"name":"fitness"`)
		_, _ = w.Write([]byte(`{"id":"as-1"}`))
	})

	id, err := c.CreateAdSet(context.Background(), AdSetParams{
		Name:               "Set",
		CampaignExternalID: "cmp-1",
		DailyBudgetMinor:   2550,
		Targeting:          models.Targeting{AgeMin: 20, AgeMax: 30, Interests: []string{"fitness"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "as-1", id)
}

func TestVendorErrorBodyPassedThrough(t *testing.T) {
	body := `{"error":{"message":"Invalid parameter","type":"OAuthException","code":100}}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	})

	_, err := c.CreateAd(context.Background(), AdParams{Name: "ad", AdSetExternalID: "as", CreativeExternalID: "cr"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, body, apiErr.Body)
	assert.Equal(t, "Invalid parameter", apiErr.Message)
}

func TestNegativeRetriesStillCallOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := NewClient(Options{BaseURL: srv.URL, AccessToken: "token", AdAccountID: "123", MaxRetries: -1}, zap.NewNop())

	_, err := c.CreateCampaign(context.Background(), CampaignParams{Name: "c", Objective: models.ObjectiveSales})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.EqualValues(t, 1, calls.Load())
}

func TestRetriesRateLimited(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"cr-1"}`))
	})

	id, err := c.CreateAdCreative(context.Background(), CreativeParams{ImageURL: "https://img", LinkURL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "cr-1", id)
	assert.EqualValues(t, 2, calls.Load())
}

func TestTimeoutIsAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"id":"late"}`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.CreateCampaign(ctx, CampaignParams{Name: "x", Objective: models.ObjectiveSales})
	require.Error(t, err)
}

func TestNotConfigured(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://unused"}, zap.NewNop())
	_, err := c.CreateCampaign(context.Background(), CampaignParams{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.DeleteCampaign(context.Background(), "x"), ErrNotConfigured)
}

func TestGetInsightsPaginates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cmp-1/insights", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("time_increment"))
		if r.URL.Query().Get("after") == "" {
			_, _ = w.Write([]byte(`{"data":[{"date_start":"2024-05-01","impressions":"100","clicks":"7","spend":"1.50","ctr":"7.0"}],
				"paging":{"cursors":{"after":"c1"},"next":"https://next"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"date_start":"2024-05-02","impressions":"50","clicks":"1","spend":"0.25","ctr":"2"}],"paging":{}}`))
	})

	dr := DateRange{Since: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Until: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)}
	got, err := c.GetInsights(context.Background(), "cmp-1", models.LevelCampaign, dr)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-05-01", got[0].Date)
	assert.EqualValues(t, 100, got[0].Impressions)
	assert.InDelta(t, 1.5, got[0].Spend, 0.0001)
	assert.EqualValues(t, 1, got[1].Clicks)
}
