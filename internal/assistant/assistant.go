// Package assistant answers free-form questions once a campaign is live. It
// sends the conversation to Gemini and lets the model look up campaign
// performance through function calling.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/models"
	"github.com/adpilot/backend/internal/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	ToolCampaignPerformance = "get_campaign_performance"

	RoleUser  = genai.RoleUser
	RoleModel = genai.RoleModel

	maxToolRounds = 3
)

var (
	ErrEmptyReply       = errors.New("model returned an empty reply")
	ErrTooManyToolCalls = errors.New("model kept calling tools without answering")
)

// Model is the part of the Gemini client the assistant needs.
type Model interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type PerformanceReader interface {
	Get(ctx context.Context, ownerID, campaignID uuid.UUID, q services.PerformanceQuery) (*services.Performance, error)
}

// Line is one earlier message of the conversation.
type Line struct {
	Role string
	Text string
}

type Request struct {
	UserID uuid.UUID
	// CampaignID is the campaign launched in this conversation, if any.
	CampaignID *uuid.UUID
	History    []Line
	Message    string
}

type Assistant struct {
	model     Model
	modelName string
	perf      PerformanceReader
	timeout   time.Duration
	log       *zap.Logger
}

func New(model Model, modelName string, perf PerformanceReader, timeout time.Duration, log *zap.Logger) *Assistant {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Assistant{model: model, modelName: modelName, perf: perf, timeout: timeout, log: log}
}

func NewGemini(ctx context.Context, apiKey, modelName string, perf PerformanceReader, timeout time.Duration, log *zap.Logger) (*Assistant, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return New(client.Models, modelName, perf, timeout, log), nil
}

var performanceTool = &genai.FunctionDeclaration{
	Name:        ToolCampaignPerformance,
	Description: "Retrieves performance metrics (impressions, clicks, spend, CTR) for one of the user's ad campaigns.",
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"campaign_id": {
				Type:        genai.TypeString,
				Description: "ID of the campaign. Defaults to the campaign launched in this conversation.",
			},
			"level": {
				Type:        genai.TypeString,
				Description: "Breakdown level of the metrics.",
				Enum:        []string{models.LevelCampaign, models.LevelAdSet, models.LevelAd},
			},
		},
	},
}

// Reply answers message in the context of the earlier conversation. The whole
// exchange, tool calls included, is bounded by the assistant timeout.
func (a *Assistant) Reply(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, l := range req.History {
		if strings.TrimSpace(l.Text) == "" {
			continue
		}
		contents = append(contents, genai.NewContentFromText(l.Text, genai.Role(l.Role)))
	}
	contents = append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction(req), genai.RoleUser),
		Tools:             []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{performanceTool}}},
	}

	for round := 0; ; round++ {
		resp, err := a.model.GenerateContent(ctx, a.modelName, contents, config)
		if err != nil {
			return "", fmt.Errorf("generate reply: %w", err)
		}
		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				return "", ErrEmptyReply
			}
			return text, nil
		}
		if round == maxToolRounds {
			return "", ErrTooManyToolCalls
		}

		contents = append(contents, resp.Candidates[0].Content)
		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, a.call(ctx, req, call))
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}
}

func (a *Assistant) call(ctx context.Context, req Request, call *genai.FunctionCall) *genai.Part {
	log := a.log.With(zap.String("user_id", req.UserID.String()), zap.String("function", call.Name))
	respond := func(body map[string]any) *genai.Part {
		part := genai.NewPartFromFunctionResponse(call.Name, body)
		part.FunctionResponse.ID = call.ID
		return part
	}
	if call.Name != ToolCampaignPerformance {
		log.Warn("model called an unknown function")
		return respond(map[string]any{"error": "unknown function " + call.Name})
	}

	campaignID, level, err := performanceArgs(call.Args, req.CampaignID)
	if err != nil {
		return respond(map[string]any{"error": err.Error()})
	}

	// ownership is always checked against the signed-in user, never a model argument
	perf, err := a.perf.Get(ctx, req.UserID, campaignID, services.PerformanceQuery{Level: level})
	if err != nil {
		log.Warn("performance lookup for assistant failed", zap.String("campaign_id", campaignID.String()), zap.Error(err))
		return respond(map[string]any{"error": lookupError(err)})
	}
	return respond(map[string]any{
		"summary":     FormatPerformance(perf),
		"performance": perf,
	})
}

func performanceArgs(args map[string]any, fallback *uuid.UUID) (uuid.UUID, string, error) {
	level := models.LevelCampaign
	if v, ok := args["level"].(string); ok && v != "" {
		level = v
	}

	raw, _ := args["campaign_id"].(string)
	if raw == "" {
		if fallback == nil {
			return uuid.Nil, "", errors.New("campaign_id is required: no campaign was launched in this conversation")
		}
		return *fallback, level, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("campaign_id %q is not a valid id", raw)
	}
	return id, level, nil
}

// lookupError is what the model is told; internal failures stay in the logs.
func lookupError(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "campaign not found, or it has not been published to the ad platform yet"
	case apperr.IsValidation(err):
		return err.Error()
	}
	var pme *apperr.PlatformMirrorError
	if errors.As(err, &pme) {
		return "the ad platform did not return performance data"
	}
	return "performance data is unavailable right now"
}

func instruction(req Request) string {
	var b strings.Builder
	b.WriteString("You are an assistant for an ad campaign tool. The user has finished setting up a campaign. ")
	b.WriteString("Answer questions about their campaigns briefly. ")
	b.WriteString("Use the " + ToolCampaignPerformance + " function for any question about results, spend or reach; never invent numbers.")
	if req.CampaignID != nil {
		fmt.Fprintf(&b, " The campaign launched in this conversation has ID %s.", req.CampaignID)
	}
	return b.String()
}
