package assistant

import (
	"fmt"
	"strings"

	"github.com/adpilot/backend/internal/models"
	"github.com/adpilot/backend/internal/services"
)

// FormatPerformance renders a performance report as plain text for the model.
func FormatPerformance(p *services.Performance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Performance at %s level for campaign %s, %s to %s:\n", p.Level, p.CampaignID, p.Since, p.Until)

	if p.Level == models.LevelCampaign {
		if len(p.Insights) == 0 {
			b.WriteString("No data yet.\n")
		}
		writeSeries(&b, p.Insights, "  ")
		return b.String()
	}

	label := "Ad set"
	if p.Level == models.LevelAd {
		label = "Ad"
	}
	if len(p.Objects) == 0 {
		fmt.Fprintf(&b, "No published %ss yet.\n", strings.ToLower(label))
	}
	for _, o := range p.Objects {
		fmt.Fprintf(&b, "%s %s (platform id %s):\n", label, o.LocalID, o.ExternalID)
		if len(o.Insights) == 0 {
			b.WriteString("  No data yet.\n")
		}
		writeSeries(&b, o.Insights, "  ")
	}
	return b.String()
}

func writeSeries(b *strings.Builder, series []models.Insight, indent string) {
	for _, in := range series {
		fmt.Fprintf(b, "%s%s: %d impressions, %d clicks, %d reach, spend %.2f, CTR %.2f%%\n",
			indent, in.Date, in.Impressions, in.Clicks, in.Reach, in.Spend, in.CTR)
	}
}
