package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

var (
	ErrInterviewLinkNotFound = errors.New("interview link not found")
)

// InterviewLink states, in state-machine order.
const (
	LinkGenerated          = "generated"
	LinkSent               = "sent"
	LinkOpened             = "opened"
	LinkInterviewStarted   = "interview_started"
	LinkInterviewCompleted = "interview_completed"
	LinkExpired            = "expired"
)

// nonTerminalLinkStatuses are expired by the issuance of a new link for the
// same Application.
var nonTerminalLinkStatuses = []string{LinkGenerated, LinkSent, LinkOpened, LinkInterviewStarted}

// DefaultLinkExpiry is the default InterviewLink validity window.
const DefaultLinkExpiry = 72 * time.Hour

// TelemetrySnapshot is one face-tracking submission from the candidate browser.
type TelemetrySnapshot struct {
	FacePresent    bool      `json:"face_present"`
	AttentionScore float64   `json:"attention_score"`
	FaceCount      int       `json:"face_count"`
	Timestamp      time.Time `json:"timestamp"`
}

// TelemetryAggregate is the running summary mirrored onto the Application.
type TelemetryAggregate struct {
	SnapshotCount      int     `json:"snapshot_count"`
	MeanAttentionScore float64 `json:"mean_attention_score"`
	FacePresentPct     float64 `json:"face_present_pct"`
}

// InterviewLink is an opaque, time-boxed bearer token granting a candidate
// access to their voice-interview session.
type InterviewLink struct {
	Token               string
	AppID               int64
	Round               int
	Status              string
	ExpiresAt           time.Time
	OpenedAt            *time.Time
	StartedAt           *time.Time
	CompletedAt         *time.Time
	ExternalConversationID string
	Telemetry           TelemetryAggregate
	CreatedAt           time.Time
}

// NewToken mints a 128-bit opaque bearer token. Deliberately crypto/rand
// rather than uuid (122 bits of randomness) or jwt (reserved for dashboard
// auth).
func NewToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// InterviewLinkRepository persists InterviewLink aggregates.
type InterviewLinkRepository struct{}

// Issue expires every prior non-terminal link for appID and inserts a new
// one, all inside the caller's transaction — enforcing the
// exactly-one-active-link invariant.
func (r *InterviewLinkRepository) Issue(ctx context.Context, q Queryer, appID int64, round int, expiry time.Duration) (*InterviewLink, error) {
	if expiry <= 0 {
		expiry = DefaultLinkExpiry
	}
	if _, err := q.Exec(ctx, `
		UPDATE interview_links SET status = $2 WHERE app_id = $1 AND status = ANY($3)
	`, appID, LinkExpired, nonTerminalLinkStatuses); err != nil {
		return nil, err
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	link := &InterviewLink{
		Token:     token,
		AppID:     appID,
		Round:     round,
		Status:    LinkGenerated,
		ExpiresAt: time.Now().UTC().Add(expiry),
	}
	telemetry, err := marshalJSON(link.Telemetry)
	if err != nil {
		return nil, err
	}
	err = q.QueryRow(ctx, `
		INSERT INTO interview_links (token, app_id, round, status, expires_at, telemetry, created_at)
		VALUES ($1,$2,$3,$4,$5,$6, now())
		RETURNING created_at
	`, link.Token, link.AppID, link.Round, link.Status, link.ExpiresAt, telemetry).Scan(&link.CreatedAt)
	if err != nil {
		return nil, err
	}
	return link, nil
}

const linkColumns = `
	token, app_id, round, status, expires_at, opened_at, started_at, completed_at,
	COALESCE(external_conversation_id,''), telemetry, created_at
`

func (r *InterviewLinkRepository) scan(row pgx.Row) (*InterviewLink, error) {
	l := &InterviewLink{}
	var telemetry []byte
	err := row.Scan(&l.Token, &l.AppID, &l.Round, &l.Status, &l.ExpiresAt, &l.OpenedAt, &l.StartedAt, &l.CompletedAt,
		&l.ExternalConversationID, &telemetry, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInterviewLinkNotFound
		}
		return nil, err
	}
	if err := unmarshalJSON(telemetry, &l.Telemetry); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *InterviewLinkRepository) GetByToken(ctx context.Context, q Queryer, token string) (*InterviewLink, error) {
	return r.scan(q.QueryRow(ctx, `SELECT `+linkColumns+` FROM interview_links WHERE token = $1`, token))
}

// GetByConversationID supports _find_app_by_conversation's primary lookup path.
func (r *InterviewLinkRepository) GetByConversationID(ctx context.Context, q Queryer, conversationID string) (*InterviewLink, error) {
	return r.scan(q.QueryRow(ctx, `SELECT `+linkColumns+` FROM interview_links WHERE external_conversation_id = $1 ORDER BY created_at DESC LIMIT 1`, conversationID))
}

func (r *InterviewLinkRepository) Update(ctx context.Context, q Queryer, l *InterviewLink) error {
	telemetry, err := marshalJSON(l.Telemetry)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		UPDATE interview_links SET status=$2, opened_at=$3, started_at=$4, completed_at=$5,
			external_conversation_id=$6, telemetry=$7
		WHERE token=$1
	`, l.Token, l.Status, l.OpenedAt, l.StartedAt, l.CompletedAt, nullIfEmpty(l.ExternalConversationID), telemetry)
	return err
}

// ExpireIfPast flips a still-non-terminal, past-expiry link to expired and
// reports whether it did so.
func (l *InterviewLink) ExpireIfPast(now time.Time) bool {
	if l.Status == LinkExpired || l.Status == LinkInterviewCompleted {
		return false
	}
	if now.Before(l.ExpiresAt) {
		return false
	}
	l.Status = LinkExpired
	return true
}
