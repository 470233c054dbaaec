package dialogue

import (
	"encoding/json"
	"fmt"

	"github.com/adpilot/backend/internal/generation"
)

// Message types
const (
	TypeText         = "text"
	TypeQuickReplies = "quick_replies"
	TypeImages       = "images"
	TypeAdCopy       = "ad_copy"
	TypeSummary      = "summary"
)

// Message is a bot reply. The set of variants is closed: TextMessage,
// QuickRepliesMessage, ImagesMessage, AdCopyMessage and SummaryMessage.
type Message interface {
	messageType() string
}

type TextMessage struct {
	Text string `json:"text"`
}

type QuickReply struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type QuickRepliesMessage struct {
	Text    string       `json:"text"`
	Replies []QuickReply `json:"quick_replies"`
}

type ImagesMessage struct {
	Text   string   `json:"text"`
	Images []string `json:"images"`
}

type AdCopyMessage struct {
	Text   string                   `json:"text"`
	Copies []generation.CopyVariant `json:"copies"`
}

type SummaryMessage struct {
	Text    string  `json:"text"`
	Summary Summary `json:"summary"`
}

// Summary is the review card shown before launch.
type Summary struct {
	Objective      string   `json:"objective"`
	ObjectiveTitle string   `json:"objective_title"`
	URL            string   `json:"url"`
	AgeMin         int      `json:"age_min"`
	AgeMax         int      `json:"age_max"`
	Interests      []string `json:"interests"`
	ImageURL       string   `json:"image_url"`
	Headline       string   `json:"headline"`
	PrimaryText    string   `json:"primary_text"`
	DailyBudget    string   `json:"daily_budget"`
}

func (TextMessage) messageType() string         { return TypeText }
func (QuickRepliesMessage) messageType() string { return TypeQuickReplies }
func (ImagesMessage) messageType() string       { return TypeImages }
func (AdCopyMessage) messageType() string       { return TypeAdCopy }
func (SummaryMessage) messageType() string      { return TypeSummary }

// TypeOf returns the wire tag of a message.
func TypeOf(m Message) string {
	return m.messageType()
}

type envelope struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

func encodeMessage(m Message) (envelope, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return envelope{}, err
	}
	return envelope{Type: m.messageType(), Body: body}, nil
}

func decodeMessage(e envelope) (Message, error) {
	switch e.Type {
	case TypeText:
		var m TextMessage
		err := json.Unmarshal(e.Body, &m)
		return m, err
	case TypeQuickReplies:
		var m QuickRepliesMessage
		err := json.Unmarshal(e.Body, &m)
		return m, err
	case TypeImages:
		var m ImagesMessage
		err := json.Unmarshal(e.Body, &m)
		return m, err
	case TypeAdCopy:
		var m AdCopyMessage
		err := json.Unmarshal(e.Body, &m)
		return m, err
	case TypeSummary:
		var m SummaryMessage
		err := json.Unmarshal(e.Body, &m)
		return m, err
	}
	return nil, fmt.Errorf("unknown message type %q", e.Type)
}
