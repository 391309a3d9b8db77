package mailbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andreypavlenko/jobber/internal/config"
	"github.com/andreypavlenko/jobber/internal/platform/backoff"
	"github.com/andreypavlenko/jobber/internal/platform/logger"
	"github.com/andreypavlenko/jobber/internal/platform/queue"
	"github.com/andreypavlenko/jobber/internal/platform/storage"
	"github.com/andreypavlenko/jobber/internal/store"
)

// Settings keys the Listener owns.
const (
	settingWatermark   = "mailbox_watermark"
	settingCredentials = "mailbox_credentials"
	settingListenerOn  = "mailbox_listener_enabled"
)

// recentResultsCap bounds the status surface's ring buffer, matching
// GmailManager.get_status's recent_results[-50:] trim.
const recentResultsCap = 50

// DispatchItem is what the Listener pushes onto the ingestion queue: just
// enough to look the Email back up, since the row itself already carries
// everything the pipeline needs.
type DispatchItem struct {
	EmailID int64 `json:"email_id"`
}

// Result records one processed message for the status surface.
type Result struct {
	EmailID   int64     `json:"email_id,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	From      string    `json:"from,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Status is the listener's public snapshot, shape-compatible with
// GmailManager.get_status.
type Status struct {
	Connected      bool       `json:"connected"`
	Mode           string     `json:"mode"`
	EmailAddress   string     `json:"email_address"`
	LastSyncAt     *time.Time `json:"last_sync_at"`
	TotalProcessed int        `json:"total_processed"`
	RecentResults  []Result   `json:"recent_results"`
}

// Listener owns the mailbox connection lifecycle: reconnect with backoff,
// watermark persistence, and bounded dispatch into the ingestion queue.
// Grounded on GmailManager's start_polling/_poll_loop/get_status trio.
type Listener struct {
	store   *store.Store
	s3      *storage.S3Client
	queue   *queue.Queue
	cfg     config.MailboxConfig
	log     *logger.Logger
	backoff *backoff.Backoff

	mu             sync.Mutex
	connected      bool
	mode           string
	emailAddress   string
	lastSyncAt     *time.Time
	totalProcessed int
	recentResults  []Result
}

func NewListener(s *store.Store, s3c *storage.S3Client, q *queue.Queue, cfg config.MailboxConfig, log *logger.Logger) *Listener {
	return &Listener{
		store:   s,
		s3:      s3c,
		queue:   q,
		cfg:     cfg,
		log:     log,
		backoff: backoff.New(5*time.Second, 5*time.Minute),
	}
}

// Status returns a snapshot safe to serve from a handler.
func (l *Listener) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	results := make([]Result, len(l.recentResults))
	copy(results, l.recentResults)
	return Status{
		Connected:      l.connected,
		Mode:           l.mode,
		EmailAddress:   l.emailAddress,
		LastSyncAt:     l.lastSyncAt,
		TotalProcessed: l.totalProcessed,
		RecentResults:  results,
	}
}

// Run blocks, reconnecting with exponential backoff until ctx is canceled.
func (l *Listener) Run(ctx context.Context) error {
	_ = l.store.Settings.Set(ctx, l.store.Pool, settingListenerOn, "true")
	defer func() {
		_ = l.store.Settings.Set(context.Background(), l.store.Pool, settingListenerOn, "false")
	}()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sess, mode, emailAddr, connectErr := l.connect(ctx)
		if connectErr != nil {
			l.log.WithError("mailbox_connect_failed").Error(connectErr.Error())
			l.setDisconnected()
			if !sleepOrDone(ctx, l.backoff.Next()) {
				return ctx.Err()
			}
			continue
		}

		l.backoff.Reset()
		l.setConnected(mode, emailAddr)

		pollErr := l.pollLoop(ctx, sess, mode)
		sess.Close()
		l.setDisconnected()

		if pollErr != nil {
			l.log.WithError("mailbox_poll_failed").Error(pollErr.Error())
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !sleepOrDone(ctx, l.backoff.Next()) {
			return ctx.Err()
		}
	}
}

// connect uses the browser-poll session when the mode is "poll" (the
// configured default); any other mode tries the OAuth push session first,
// automatically falling back to the browser-poll session when the push
// session can't be built or connected (expired/revoked refresh token,
// misconfiguration).
func (l *Listener) connect(ctx context.Context) (Session, string, string, error) {
	if l.cfg.Mode == "poll" {
		sess := newBrowserPollSession(l.cfg)
		addr, err := sess.Connect(ctx)
		if err != nil {
			return nil, "", "", err
		}
		return sess, "poll", addr, nil
	}

	sealed := l.store.Settings.GetOr(ctx, l.store.Pool, settingCredentials, "")
	push, err := newOAuthPushSession(l.cfg, sealed)
	if err == nil {
		if addr, connErr := push.Connect(ctx); connErr == nil {
			if reseal, sealErr := push.sealedToken(); sealErr == nil {
				_ = l.store.Settings.Set(ctx, l.store.Pool, settingCredentials, reseal)
			}
			return push, "push", addr, nil
		}
	}

	l.log.Warn("mailbox push session unavailable, failing over to browser poll")
	sess := newBrowserPollSession(l.cfg)
	addr, err := sess.Connect(ctx)
	if err != nil {
		return nil, "", "", err
	}
	return sess, "poll", addr, nil
}

// pollLoop runs Session.Poll until it errors (signaling the caller should
// reconnect) or ctx is canceled. Push-mode Poll calls already block for the
// keepalive window; poll-mode sessions sleep PollInterval between calls.
func (l *Listener) pollLoop(ctx context.Context, sess Session, mode string) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		watermark := l.store.Settings.GetOr(ctx, l.store.Pool, settingWatermark, "")
		messages, next, err := sess.Poll(ctx, watermark)
		if err != nil {
			return err
		}

		for _, msg := range messages {
			l.process(ctx, msg)
		}

		if next != watermark {
			if err := l.store.Settings.Set(ctx, l.store.Pool, settingWatermark, next); err != nil {
				l.log.WithError("mailbox_watermark_save_failed").Error(err.Error())
			}
		}

		now := time.Now().UTC()
		l.mu.Lock()
		l.lastSyncAt = &now
		l.mu.Unlock()

		interval := l.cfg.PollInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		if mode == "poll" {
			if !sleepOrDone(ctx, interval) {
				return nil
			}
		}
	}
}

// process archives attachments, materializes the Email row, and dispatches
// its id onto the ingestion queue — one message's worth of
// fetch_new_emails + enqueue.
func (l *Listener) process(ctx context.Context, msg FetchedMessage) {
	attachments := make([]store.Attachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		if len(a.Data) > 0 && l.s3 != nil {
			key := "mailbox-attachments/" + msg.MessageID + "/" + a.Filename
			if err := l.s3.PutObjectBytes(ctx, key, a.ContentType, a.Data); err != nil {
				l.log.WithError("mailbox_attachment_archive_failed").Error(err.Error())
			}
		}
		attachments = append(attachments, store.Attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}

	email := &store.Email{
		MessageID:   msg.MessageID,
		FromAddress: msg.FromAddress,
		FromName:    msg.FromName,
		Subject:     msg.Subject,
		BodyFull:    msg.BodyText,
		BodySnippet: snippet(msg.BodyText, 500),
		Attachments: attachments,
		ReceivedAt:  msg.ReceivedAt,
	}
	err := l.store.Emails.Create(ctx, l.store.Pool, email)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateMessageID) {
			return
		}
		l.recordResult(Result{Subject: msg.Subject, From: msg.FromAddress, Error: err.Error(), Timestamp: time.Now().UTC()})
		return
	}

	if l.queue != nil {
		if err := l.queue.Push(ctx, DispatchItem{EmailID: email.ID}); err != nil {
			l.log.WithEmailID(email.ID).WithError("mailbox_dispatch_failed").Error(err.Error())
		}
	}

	l.recordResult(Result{EmailID: email.ID, Subject: msg.Subject, From: msg.FromAddress, Timestamp: time.Now().UTC()})
}

func (l *Listener) recordResult(r Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.totalProcessed++
	l.recentResults = append(l.recentResults, r)
	if len(l.recentResults) > recentResultsCap {
		l.recentResults = l.recentResults[len(l.recentResults)-recentResultsCap:]
	}
}

func (l *Listener) setConnected(mode, emailAddr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = true
	l.mode = mode
	l.emailAddress = emailAddr
}

func (l *Listener) setDisconnected() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// sleepOrDone sleeps for d unless ctx is canceled first, returning false in
// that case so callers can propagate the cancellation.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
