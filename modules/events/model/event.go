package model

import (
	"time"

	"github.com/andreypavlenko/jobber/internal/store"
)

// EventDTO is the wire shape for one audit-log entry.
type EventDTO struct {
	ID        int64          `json:"id"`
	AppID     *int64         `json:"app_id,omitempty"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func ToDTO(e *store.Event) *EventDTO {
	return &EventDTO{
		ID:        e.ID,
		AppID:     e.AppID,
		EventType: e.EventType,
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
}
