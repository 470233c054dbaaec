package services

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/generation"
	"github.com/adpilot/backend/internal/models"
	"github.com/shopspring/decimal"
)

type CreativeSpec struct {
	ImageURL    string `json:"image_url"`
	LinkURL     string `json:"link_url"`
	Headline    string `json:"headline"`
	PrimaryText string `json:"primary_text"`
}

// CampaignSpec is everything needed to provision the campaign, ad set,
// creative and ad in one go. DailyBudget is in major currency units.
type CampaignSpec struct {
	Name        string           `json:"name"`
	Objective   string           `json:"objective"`
	AdSetName   string           `json:"ad_set_name"`
	DailyBudget decimal.Decimal  `json:"daily_budget"`
	Targeting   models.Targeting `json:"targeting"`
	Creative    CreativeSpec     `json:"creative"`
	AdName      string           `json:"ad_name"`
}

// Validate checks the spec and fills the derived names. currencyOffset is the
// number of minor units per major unit.
func (s *CampaignSpec) Validate(currencyOffset int64) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return apperr.Validation("name", "is required")
	}
	if _, ok := models.LookupObjective(s.Objective); !ok {
		return apperr.Validation("objective", "unknown objective %q", s.Objective)
	}
	if s.AdSetName = strings.TrimSpace(s.AdSetName); s.AdSetName == "" {
		s.AdSetName = s.Name + " Ad Set"
	}
	if s.AdName = strings.TrimSpace(s.AdName); s.AdName == "" {
		s.AdName = s.Name + " Ad"
	}

	if !s.DailyBudget.IsPositive() {
		return apperr.Validation("daily_budget", "must be positive")
	}
	minor := s.DailyBudget.Mul(decimal.NewFromInt(currencyOffset))
	if !minor.IsInteger() {
		return apperr.Validation("daily_budget", "%s has more precision than the currency allows", s.DailyBudget)
	}

	if !s.Targeting.ValidAgeRange() {
		return apperr.Validation("targeting", "age range must satisfy %d <= min <= max <= %d", models.MinTargetAge, models.MaxTargetAge)
	}
	interests := make([]string, 0, len(s.Targeting.Interests))
	for _, i := range s.Targeting.Interests {
		if i = strings.TrimSpace(i); i != "" {
			interests = append(interests, i)
		}
	}
	s.Targeting.Interests = interests

	if s.Creative.LinkURL != "" {
		if _, err := ParseLandingURL(s.Creative.LinkURL); err != nil {
			return err
		}
	}
	return nil
}

// DailyBudgetMinor is the budget in minor currency units. Call after Validate.
func (s *CampaignSpec) DailyBudgetMinor(currencyOffset int64) int64 {
	return s.DailyBudget.Mul(decimal.NewFromInt(currencyOffset)).IntPart()
}

// ParseLandingURL accepts absolute http(s) URLs with a host. Hosts that are
// obviously internal (localhost, private or loopback IP literals) are
// rejected up front; names resolving to internal addresses are caught when
// the page is fetched.
func ParseLandingURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Validation("url", "%q is not a valid http(s) URL", raw)
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return nil, apperr.Validation("url", "%q is not a public website", raw)
	}
	if ip, err := netip.ParseAddr(host); err == nil && !generation.IsPublicAddr(ip) {
		return nil, apperr.Validation("url", "%q is not a public website", raw)
	}
	return u, nil
}
