package dialogue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/adpilot/backend/internal/generation"
	"github.com/google/uuid"
)

// Draft is the campaign being assembled. It is a staging copy and is only
// written to the record store when the campaign is launched.
type Draft struct {
	Objective    string                   `json:"objective"`
	URL          string                   `json:"url"`
	AgeRange     [2]int                   `json:"age_range"`
	Interests    []string                 `json:"interests"`
	Images       []string                 `json:"images"`
	ImageURL     string                   `json:"image_url"`
	Copies       []generation.CopyVariant `json:"copies"`
	SelectedCopy int                      `json:"selected_copy"`
	CampaignID   *uuid.UUID               `json:"campaign_id,omitempty"`
}

func (d Draft) selectedCopy() generation.CopyVariant {
	if d.SelectedCopy >= 0 && d.SelectedCopy < len(d.Copies) {
		return d.Copies[d.SelectedCopy]
	}
	return generation.CopyVariant{}
}

// Turn is one state transition and the replies it produced.
type Turn struct {
	From    State
	To      State
	Input   string
	Replies []Message
	At      time.Time
}

type turnJSON struct {
	From    State      `json:"from"`
	To      State      `json:"to"`
	Input   string     `json:"input"`
	Replies []envelope `json:"replies"`
	At      time.Time  `json:"at"`
}

func (t Turn) MarshalJSON() ([]byte, error) {
	out := turnJSON{From: t.From, To: t.To, Input: t.Input, At: t.At}
	if t.Replies != nil {
		out.Replies = make([]envelope, 0, len(t.Replies))
		for _, m := range t.Replies {
			e, err := encodeMessage(m)
			if err != nil {
				return nil, err
			}
			out.Replies = append(out.Replies, e)
		}
	}
	return json.Marshal(out)
}

func (t *Turn) UnmarshalJSON(data []byte) error {
	var in turnJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*t = Turn{From: in.From, To: in.To, Input: in.Input, At: in.At}
	if in.Replies != nil {
		t.Replies = make([]Message, 0, len(in.Replies))
		for _, e := range in.Replies {
			m, err := decodeMessage(e)
			if err != nil {
				return err
			}
			t.Replies = append(t.Replies, m)
		}
	}
	return nil
}

type Session struct {
	UserID  uuid.UUID `json:"user_id"`
	State   State     `json:"state"`
	Draft   Draft     `json:"draft"`
	History []Turn    `json:"history"`
}

func newSession(userID uuid.UUID) *Session {
	return &Session{UserID: userID, State: StateAskObjective, History: []Turn{}}
}

// advance moves the session to the next state and records the turn.
func (s *Session) advance(to State, input string, at time.Time, replies ...Message) error {
	if !CanTransition(s.State, to) {
		return fmt.Errorf("illegal dialogue transition %s -> %s", s.State, to)
	}
	s.History = append(s.History, Turn{From: s.State, To: to, Input: input, Replies: replies, At: at})
	s.State = to
	return nil
}

// LastReplies returns the replies of the most recent turn.
func (s *Session) LastReplies() []Message {
	if len(s.History) == 0 {
		return nil
	}
	return s.History[len(s.History)-1].Replies
}
