package adplatform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/adpilot/backend/internal/models"
)

const insightFields = "impressions,clicks,spend,reach,cpm,cpp,ctr"

type DateRange struct {
	Since time.Time
	Until time.Time
}

func (r DateRange) param() string {
	return mustJSON(map[string]string{
		"since": r.Since.Format("2006-01-02"),
		"until": r.Until.Format("2006-01-02"),
	})
}

type insightRow struct {
	DateStart   string `json:"date_start"`
	Impressions string `json:"impressions"`
	Clicks      string `json:"clicks"`
	Spend       string `json:"spend"`
	Reach       string `json:"reach"`
	CPM         string `json:"cpm"`
	CPP         string `json:"cpp"`
	CTR         string `json:"ctr"`
}

type insightsPage struct {
	Data   []insightRow `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

const maxInsightPages = 20

// GetInsights returns the daily series for one platform object.
func (c *Client) GetInsights(ctx context.Context, externalID, level string, dr DateRange) ([]models.Insight, error) {
	if !c.configured() {
		return nil, ErrNotConfigured
	}
	if !models.IsValidLevel(level) {
		return nil, fmt.Errorf("invalid insights level %q", level)
	}

	var out []models.Insight
	after := ""
	for page := 0; page < maxInsightPages; page++ {
		form := url.Values{}
		form.Set("fields", insightFields)
		form.Set("level", level)
		form.Set("time_increment", "1")
		form.Set("time_range", dr.param())
		if after != "" {
			form.Set("after", after)
		}

		var p insightsPage
		if err := c.do(ctx, http.MethodGet, externalID+"/insights", form, &p); err != nil {
			return nil, err
		}
		for _, row := range p.Data {
			out = append(out, row.toInsight())
		}
		if p.Paging.Next == "" || p.Paging.Cursors.After == "" {
			break
		}
		after = p.Paging.Cursors.After
	}
	return out, nil
}

func (r insightRow) toInsight() models.Insight {
	return models.Insight{
		Date:        r.DateStart,
		Impressions: parseInt(r.Impressions),
		Clicks:      parseInt(r.Clicks),
		Reach:       parseInt(r.Reach),
		Spend:       parseFloat(r.Spend),
		CTR:         parseFloat(r.CTR),
		CPM:         parseFloat(r.CPM),
		CPP:         parseFloat(r.CPP),
	}
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
