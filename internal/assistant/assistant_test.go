package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/models"
	"github.com/adpilot/backend/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

type scriptedModel struct {
	responses []*genai.GenerateContentResponse
	err       error
	contents  [][]*genai.Content
	configs   []*genai.GenerateContentConfig
}

func (m *scriptedModel) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.contents = append(m.contents, append([]*genai.Content(nil), contents...))
	m.configs = append(m.configs, config)
	if m.err != nil {
		return nil, m.err
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: genai.NewContentFromText(text, genai.RoleModel),
	}}}
}

func callResponse(args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: genai.NewContentFromParts([]*genai.Part{{
			FunctionCall: &genai.FunctionCall{ID: "call-1", Name: ToolCampaignPerformance, Args: args},
		}}, genai.RoleModel),
	}}}
}

type fakePerformance struct {
	owners []uuid.UUID
	ids    []uuid.UUID
	levels []string
	perf   *services.Performance
	err    error
}

func (f *fakePerformance) Get(_ context.Context, ownerID, campaignID uuid.UUID, q services.PerformanceQuery) (*services.Performance, error) {
	f.owners = append(f.owners, ownerID)
	f.ids = append(f.ids, campaignID)
	f.levels = append(f.levels, q.Level)
	return f.perf, f.err
}

func functionResponse(t *testing.T, c *genai.Content) *genai.FunctionResponse {
	t.Helper()
	require.Equal(t, genai.RoleUser, c.Role)
	require.Len(t, c.Parts, 1)
	require.NotNil(t, c.Parts[0].FunctionResponse)
	return c.Parts[0].FunctionResponse
}

func TestReplyLooksUpPerformance(t *testing.T) {
	user, campaign := uuid.New(), uuid.New()
	perf := &fakePerformance{perf: &services.Performance{
		CampaignID: campaign,
		Level:      models.LevelCampaign,
		Since:      "2024-05-01",
		Until:      "2024-05-02",
		Insights:   []models.Insight{{Date: "2024-05-01", Impressions: 1200, Clicks: 30, Spend: 4.5, CTR: 2.5}},
	}}
	model := &scriptedModel{responses: []*genai.GenerateContentResponse{
		callResponse(map[string]any{"level": "campaign"}),
		textResponse("You got 1200 impressions and 30 clicks."),
	}}
	a := New(model, "gemini-test", perf, time.Second, zap.NewNop())

	reply, err := a.Reply(context.Background(), Request{
		UserID:     user,
		CampaignID: &campaign,
		History: []Line{
			{Role: RoleModel, Text: "Your campaign has been successfully launched!"},
			{Role: RoleUser, Text: "   "},
		},
		Message: "How is it doing?",
	})
	require.NoError(t, err)
	assert.Equal(t, "You got 1200 impressions and 30 clicks.", reply)

	assert.Equal(t, []uuid.UUID{user}, perf.owners)
	assert.Equal(t, []uuid.UUID{campaign}, perf.ids)
	assert.Equal(t, []string{models.LevelCampaign}, perf.levels)

	require.Len(t, model.contents, 2)
	first := model.contents[0]
	require.Len(t, first, 2, "blank history lines are dropped")
	assert.Equal(t, genai.RoleModel, first[0].Role)
	assert.Equal(t, "How is it doing?", first[1].Parts[0].Text)

	second := model.contents[1]
	require.Len(t, second, 4)
	assert.NotNil(t, second[2].Parts[0].FunctionCall)
	fr := functionResponse(t, second[3])
	assert.Equal(t, "call-1", fr.ID)
	assert.Equal(t, ToolCampaignPerformance, fr.Name)
	assert.Contains(t, fr.Response["summary"], "2024-05-01: 1200 impressions, 30 clicks, 0 reach, spend 4.50, CTR 2.50%")
	assert.Same(t, perf.perf, fr.Response["performance"])

	cfg := model.configs[0]
	require.Len(t, cfg.Tools, 1)
	assert.Equal(t, ToolCampaignPerformance, cfg.Tools[0].FunctionDeclarations[0].Name)
	assert.Contains(t, cfg.SystemInstruction.Parts[0].Text, campaign.String())
}

func TestReplyUsesSignedInUserForExplicitCampaign(t *testing.T) {
	user, other := uuid.New(), uuid.New()
	perf := &fakePerformance{err: apperr.ErrNotFound}
	model := &scriptedModel{responses: []*genai.GenerateContentResponse{
		callResponse(map[string]any{"campaign_id": other.String(), "level": "ad"}),
		textResponse("I couldn't find that campaign."),
	}}
	a := New(model, "gemini-test", perf, time.Second, zap.NewNop())

	reply, err := a.Reply(context.Background(), Request{UserID: user, Message: "stats for that one?"})
	require.NoError(t, err)
	assert.Equal(t, "I couldn't find that campaign.", reply)
	assert.Equal(t, []uuid.UUID{user}, perf.owners)
	assert.Equal(t, []uuid.UUID{other}, perf.ids)
	assert.Equal(t, []string{models.LevelAd}, perf.levels)

	fr := functionResponse(t, model.contents[1][2])
	assert.Contains(t, fr.Response["error"], "not found")
}

func TestReplyReportsBadArguments(t *testing.T) {
	perf := &fakePerformance{}
	model := &scriptedModel{responses: []*genai.GenerateContentResponse{
		callResponse(map[string]any{}),
		textResponse("Which campaign do you mean?"),
	}}
	a := New(model, "gemini-test", perf, time.Second, zap.NewNop())

	_, err := a.Reply(context.Background(), Request{UserID: uuid.New(), Message: "how are my ads?"})
	require.NoError(t, err)
	assert.Empty(t, perf.ids)
	fr := functionResponse(t, model.contents[1][2])
	assert.Contains(t, fr.Response["error"], "campaign_id is required")

	_, _, err = performanceArgs(map[string]any{"campaign_id": "nope"}, nil)
	assert.Error(t, err)
}

func TestReplyStopsRunawayToolCalls(t *testing.T) {
	campaign := uuid.New()
	perf := &fakePerformance{perf: &services.Performance{CampaignID: campaign, Level: models.LevelCampaign}}
	model := &scriptedModel{responses: []*genai.GenerateContentResponse{callResponse(nil)}}
	a := New(model, "gemini-test", perf, time.Second, zap.NewNop())

	_, err := a.Reply(context.Background(), Request{UserID: uuid.New(), CampaignID: &campaign, Message: "?"})
	assert.ErrorIs(t, err, ErrTooManyToolCalls)
	assert.Len(t, model.contents, maxToolRounds+1)
	assert.Len(t, perf.ids, maxToolRounds)
}

func TestReplyErrors(t *testing.T) {
	a := New(&scriptedModel{err: errors.New("quota")}, "m", &fakePerformance{}, time.Second, zap.NewNop())
	_, err := a.Reply(context.Background(), Request{UserID: uuid.New(), Message: "hi"})
	assert.ErrorContains(t, err, "quota")

	a = New(&scriptedModel{responses: []*genai.GenerateContentResponse{textResponse("  ")}}, "m", &fakePerformance{}, time.Second, zap.NewNop())
	_, err = a.Reply(context.Background(), Request{UserID: uuid.New(), Message: "hi"})
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestFormatPerformanceBreakdown(t *testing.T) {
	set := uuid.New()
	out := FormatPerformance(&services.Performance{
		CampaignID: uuid.New(),
		Level:      models.LevelAdSet,
		Since:      "2024-05-01",
		Until:      "2024-05-01",
		Objects: []models.ObjectInsights{
			{LocalID: set, ExternalID: "238", Insights: []models.Insight{{Date: "2024-05-01", Impressions: 10}}},
		},
	})
	assert.Contains(t, out, "Ad set "+set.String()+" (platform id 238):")
	assert.Contains(t, out, "  2024-05-01: 10 impressions")

	empty := FormatPerformance(&services.Performance{Level: models.LevelAd, Objects: []models.ObjectInsights{}})
	assert.Contains(t, empty, "No published ads yet.")
}
