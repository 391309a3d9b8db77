package store

import (
	"context"
	"time"
)

// Event is an append-only audit-log entry, optionally scoped to an Application.
type Event struct {
	ID        int64
	AppID     *int64
	EventType string
	Payload   map[string]any
	CreatedAt time.Time
}

// EventRepository persists Event rows. Append-only: no Update or Delete.
type EventRepository struct{}

func (r *EventRepository) Append(ctx context.Context, q Queryer, appID *int64, eventType string, payload map[string]any) error {
	data, err := marshalJSON(payload)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		INSERT INTO events (app_id, event_type, payload, created_at)
		VALUES ($1,$2,$3, now())
	`, appID, eventType, data)
	return err
}

func (r *EventRepository) ListByApplication(ctx context.Context, q Queryer, appID int64) ([]*Event, error) {
	rows, err := q.Query(ctx, `
		SELECT id, app_id, event_type, payload, created_at FROM events
		WHERE app_id = $1 ORDER BY created_at ASC
	`, appID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		e := &Event{}
		var payload []byte
		if err := rows.Scan(&e.ID, &e.AppID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(payload, &e.Payload); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindByConversationID searches Event payloads for a matching conversation_id,
// mirroring the original's linear scan over events whose payload contains it.
func (r *EventRepository) FindByConversationID(ctx context.Context, q Queryer, conversationID string) (*int64, error) {
	var appID int64
	err := q.QueryRow(ctx, `
		SELECT app_id FROM events
		WHERE payload ->> 'conversation_id' = $1 AND app_id IS NOT NULL
		ORDER BY created_at DESC LIMIT 1
	`, conversationID).Scan(&appID)
	if err != nil {
		return nil, err
	}
	return &appID, nil
}
