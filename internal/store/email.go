package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

var ErrEmailNotFound = errors.New("email not found")

// Email.processed levels; monotone non-decreasing per spec.
const (
	EmailNew         = 0
	EmailClassified  = 1
	EmailMaterialized = 2
)

// Attachment describes one email attachment.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	ContentB64  string `json:"content_b64,omitempty"`
}

// Classification is the normalized Email Classifier oracle output, persisted
// as jsonb on the Email row.
type Classification struct {
	Category        string  `json:"category"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
	SuggestedAction string  `json:"suggested_action"`
	DetectedName    string  `json:"detected_name"`
	DetectedRole    string  `json:"detected_role"`
}

// Email is one inbound mailbox message.
type Email struct {
	ID             int64
	MessageID      string
	FromAddress    string
	FromName       string
	Subject        string
	BodyFull       string
	BodySnippet    string
	Attachments    []Attachment
	Classification *Classification
	Processed      int
	ReceivedAt     time.Time
	CreatedAt      time.Time
}

// EmailRepository persists Email aggregates.
type EmailRepository struct{}

func (r *EmailRepository) Create(ctx context.Context, q Queryer, e *Email) error {
	attachments, err := marshalJSON(e.Attachments)
	if err != nil {
		return err
	}
	err = q.QueryRow(ctx, `
		INSERT INTO emails (message_id, from_address, from_name, subject, body_full, body_snippet, attachments, processed, received_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, now())
		ON CONFLICT (message_id) DO NOTHING
		RETURNING id, created_at
	`, nullIfEmpty(e.MessageID), e.FromAddress, e.FromName, e.Subject, e.BodyFull, e.BodySnippet, attachments, EmailNew, e.ReceivedAt,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDuplicateMessageID
		}
		return err
	}
	return nil
}

// ErrDuplicateMessageID is returned when the listener tries to re-insert an
// already-seen message-id; the caller treats this as "already processed."
var ErrDuplicateMessageID = errors.New("duplicate message id")

func (r *EmailRepository) GetByID(ctx context.Context, q Queryer, id int64) (*Email, error) {
	e := &Email{}
	var attachments []byte
	var classification []byte
	err := q.QueryRow(ctx, `
		SELECT id, COALESCE(message_id,''), from_address, from_name, subject, body_full, body_snippet, attachments, classification, processed, received_at, created_at
		FROM emails WHERE id = $1
	`, id).Scan(&e.ID, &e.MessageID, &e.FromAddress, &e.FromName, &e.Subject, &e.BodyFull, &e.BodySnippet, &attachments, &classification, &e.Processed, &e.ReceivedAt, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmailNotFound
		}
		return nil, err
	}
	if err := unmarshalJSON(attachments, &e.Attachments); err != nil {
		return nil, err
	}
	if len(classification) > 0 {
		e.Classification = &Classification{}
		if err := unmarshalJSON(classification, e.Classification); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ListUnprocessed returns every Email with processed = NEW, oldest watermark
// first — the driver for run_workflow_for_new_emails.
func (r *EmailRepository) ListUnprocessed(ctx context.Context, q Queryer) ([]*Email, error) {
	rows, err := q.Query(ctx, `SELECT id FROM emails WHERE processed = $1 ORDER BY received_at ASC`, EmailNew)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*Email, 0, len(ids))
	for _, id := range ids {
		e, err := r.GetByID(ctx, q, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// SetClassification persists the classifier result and advances processed to
// CLASSIFIED. Idempotent: a second call on an already-classified email is a
// no-op from the caller's perspective (Ingestion Pipeline checks Processed
// first).
func (r *EmailRepository) SetClassification(ctx context.Context, q Queryer, id int64, c *Classification) error {
	payload, err := marshalJSON(c)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		UPDATE emails SET classification = $2, processed = GREATEST(processed, $3)
		WHERE id = $1
	`, id, payload, EmailClassified)
	return err
}

// MarkMaterialized advances processed to MATERIALIZED.
func (r *EmailRepository) MarkMaterialized(ctx context.Context, q Queryer, id int64) error {
	_, err := q.Exec(ctx, `UPDATE emails SET processed = GREATEST(processed, $2) WHERE id = $1`, id, EmailMaterialized)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
