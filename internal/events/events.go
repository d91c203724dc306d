package events

import "context"

// CampaignStream is the pub/sub channel campaign changes are fanned out on.
const CampaignStream = "events:campaign"

const (
	EventCampaignCreated = "campaign_created"
	EventCampaignUpdated = "campaign_updated"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// CampaignEvent tells clients which campaign to re-fetch and why.
func CampaignEvent(eventType string, pid int64, id, reason string) Event {
	return Event{
		Type: eventType,
		Payload: map[string]any{
			"pId":    pid,
			"id":     id,
			"reason": reason,
		},
	}
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
