package handlers

import (
	"context"
	"strings"

	"github.com/adpilot/backend/internal/dialogue"
	"github.com/adpilot/backend/internal/http/dto"
	"github.com/adpilot/backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatEngine interface {
	Start(ctx context.Context, userID uuid.UUID) (*dialogue.Session, error)
	Handle(ctx context.Context, userID uuid.UUID, input string) (*dialogue.Session, []dialogue.Message, error)
	Reset(ctx context.Context, userID uuid.UUID) error
}

type ChatHandler struct {
	engine ChatEngine
	log    *zap.Logger
}

func NewChatHandler(engine ChatEngine, log *zap.Logger) *ChatHandler {
	return &ChatHandler{engine: engine, log: log}
}

// GetChat returns the session, opening one if needed, with the latest replies.
func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	s, err := h.engine.Start(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: chatResponse(s, s.LastReplies())})
}

func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	var req dto.ChatMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	if strings.TrimSpace(req.Message) == "" {
		return badRequest(c, "message is required")
	}

	s, replies, err := h.engine.Handle(c.UserContext(), middleware.GetUserID(c), req.Message)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: chatResponse(s, replies)})
}

func (h *ChatHandler) ResetChat(c *fiber.Ctx) error {
	if err := h.engine.Reset(c.UserContext(), middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func chatResponse(s *dialogue.Session, replies []dialogue.Message) dto.ChatResponse {
	out := dto.ChatResponse{State: string(s.State), Draft: s.Draft, Messages: make([]dto.ChatMessage, 0, len(replies))}
	for _, m := range replies {
		out.Messages = append(out.Messages, renderMessage(m))
	}
	return out
}

func renderMessage(m dialogue.Message) dto.ChatMessage {
	out := dto.ChatMessage{Type: dialogue.TypeOf(m)}
	switch v := m.(type) {
	case dialogue.TextMessage:
		out.Text = v.Text
	case dialogue.QuickRepliesMessage:
		out.Text = v.Text
		for _, r := range v.Replies {
			out.QuickReplies = append(out.QuickReplies, dto.QuickReply{Label: r.Label, Value: r.Value})
		}
	case dialogue.ImagesMessage:
		out.Text = v.Text
		out.Images = v.Images
	case dialogue.AdCopyMessage:
		out.Text = v.Text
		out.AdCopies = v.Copies
	case dialogue.SummaryMessage:
		out.Text = v.Text
		out.Summary = v.Summary
	}
	return out
}
