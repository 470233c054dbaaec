package dialogue

import (
	"context"

	"github.com/adpilot/backend/internal/assistant"
	"go.uber.org/zap"
)

// Assistant answers free text once the campaign is launched.
type Assistant interface {
	Reply(ctx context.Context, req assistant.Request) (string, error)
}

const (
	// earlier lines sent along with an assistant question
	maxAssistantHistory = 40

	launchedText = "Your campaign has already been launched. Clear this conversation to start a new one."
)

// WithAssistant enables free-text answers in the completed state. Without one
// the engine replies with a fixed message.
func (e *Engine) WithAssistant(a Assistant) *Engine {
	e.assistant = a
	return e
}

func (e *Engine) completed(ctx context.Context, s *Session, input string) error {
	if e.assistant == nil || input == "" {
		return s.advance(StateCompleted, input, e.now(), TextMessage{Text: launchedText})
	}

	reply, err := e.assistant.Reply(ctx, assistant.Request{
		UserID:     s.UserID,
		CampaignID: s.Draft.CampaignID,
		History:    transcript(s.History, maxAssistantHistory),
		Message:    input,
	})
	if err != nil {
		e.log.Warn("assistant reply failed, sending fixed reply",
			zap.String("user_id", s.UserID.String()), zap.Error(err))
		return s.advance(StateCompleted, input, e.now(), TextMessage{Text: launchedText})
	}
	return s.advance(StateCompleted, input, e.now(), TextMessage{Text: reply})
}

// transcript flattens the history into user and model lines, keeping the
// most recent limit lines.
func transcript(history []Turn, limit int) []assistant.Line {
	var lines []assistant.Line
	for _, t := range history {
		if t.Input != "" {
			lines = append(lines, assistant.Line{Role: assistant.RoleUser, Text: t.Input})
		}
		for _, m := range t.Replies {
			if text := textOf(m); text != "" {
				lines = append(lines, assistant.Line{Role: assistant.RoleModel, Text: text})
			}
		}
	}
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines
}

func textOf(m Message) string {
	switch m := m.(type) {
	case TextMessage:
		return m.Text
	case QuickRepliesMessage:
		return m.Text
	case ImagesMessage:
		return m.Text
	case AdCopyMessage:
		return m.Text
	case SummaryMessage:
		return m.Text
	}
	return ""
}
