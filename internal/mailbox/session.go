// Package mailbox is the inbound-mail listener: it watches a mailbox for
// new candidate-application emails and dispatches each new message-id into
// the ingestion queue. Grounded on
// original_source/backend/services/gmail_service.py's GmailManager — this
// package keeps its two collaborators (push session, browser-poll session)
// and its watermark/status bookkeeping, adapted to a vendor-neutral Session
// contract instead of a hardcoded Gmail API client.
package mailbox

import (
	"context"
	"strings"
	"time"
)

// FetchedMessage is one new message surfaced by a Session.Poll call, already
// parsed down to what the ingestion pipeline needs to materialize an Email
// row and archive its attachments.
type FetchedMessage struct {
	MessageID   string
	FromAddress string
	FromName    string
	Subject     string
	BodyText    string
	ReceivedAt  time.Time
	Attachments []FetchedAttachment
}

// FetchedAttachment carries both the attachment's metadata and — when the
// filename looks resume-shaped — its raw bytes, ready for the listener to
// archive to object storage.
type FetchedAttachment struct {
	Filename    string
	ContentType string
	Size        int
	Data        []byte
}

// Session is one connected mailbox backend. Both the OAuth2 push session and
// the headless-browser poll session implement it; the Listener doesn't care
// which is live.
type Session interface {
	// Connect establishes the session and returns the mailbox's own address,
	// used to cross-check against the configured address.
	Connect(ctx context.Context) (string, error)

	// Poll fetches messages received since watermark and returns them along
	// with the watermark to persist next. An empty watermark means "from the
	// beginning" — callers should pass a reasonable starting point instead.
	Poll(ctx context.Context, watermark string) ([]FetchedMessage, string, error)

	// Close releases any held connection/browser resources.
	Close() error
}

// resumeExtensions mirrors the set _extract_body_and_attachments fetches
// bytes for, skipping everything else (images, signatures, calendar invites).
var resumeExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
	".txt":  true,
	".tex":  true,
}

func isResumeShaped(filename string) bool {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return false
	}
	return resumeExtensions[strings.ToLower(filename[i:])]
}
