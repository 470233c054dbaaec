package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

// CampaignMutationResponse carries the local result and what happened on the
// ad platform.
type CampaignMutationResponse struct {
	Campaign any `json:"campaign,omitempty"`
	Mirror   any `json:"mirror"`
}

type GenerateResponse struct {
	JobID      string `json:"job_id"`
	CampaignID string `json:"campaign_id"`
	Status     string `json:"status"`
}

type QuickReply struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ChatMessage is the wire form of every bot reply variant.
type ChatMessage struct {
	Type         string       `json:"type"`
	Text         string       `json:"text"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`
	Images       []string     `json:"images,omitempty"`
	AdCopies     any          `json:"ad_copies,omitempty"`
	Summary      any          `json:"summary,omitempty"`
}

type ChatResponse struct {
	State    string        `json:"state"`
	Draft    any           `json:"draft"`
	Messages []ChatMessage `json:"messages"`
}
