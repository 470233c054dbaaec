package events

import "context"

// ChannelCampaign carries campaign lifecycle notifications to the API nodes
// that hold user websockets.
const ChannelCampaign = "events:campaign"

// Event types
const (
	EventCampaignProvisioned = "campaign_provisioned"
	EventGenerationCompleted = "generation_completed"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// UserID is the recipient carried in the payload, if any.
func (e Event) UserID() string {
	s, _ := e.Payload["user_id"].(string)
	return s
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func(Event)) error
}
