package mailbox

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/andreypavlenko/jobber/internal/config"
)

// browserPollSession drives a headless Chromium session against a webmail
// URL via go-rod: the automatic failover target when the OAuth push session
// can't be reconnected (expired/revoked refresh token), and the default
// mode for mailboxes with no API access at all. It scrapes the inbox list
// view for unread message rows, reading the fields original_source's
// GmailManager otherwise gets from the Gmail API response directly.
type browserPollSession struct {
	cfg     config.MailboxConfig
	browser *rod.Browser
	page    *rod.Page
}

func newBrowserPollSession(cfg config.MailboxConfig) *browserPollSession {
	return &browserPollSession{cfg: cfg}
}

func (s *browserPollSession) Connect(ctx context.Context) (string, error) {
	if s.cfg.WebmailURL == "" {
		return "", fmt.Errorf("MAILBOX_WEBMAIL_URL is not configured")
	}
	browser := rod.New().Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("launch headless browser: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: s.cfg.WebmailURL})
	if err != nil {
		browser.Close()
		return "", fmt.Errorf("open webmail page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		browser.Close()
		return "", fmt.Errorf("wait for webmail load: %w", err)
	}

	s.browser = browser
	s.page = page
	return s.cfg.EmailAddress, nil
}

// inboxRowSelector and its field selectors are deliberately generic —
// webmail DOM structure varies per provider and per deployment, so this is
// the part an operator customizes for their mailbox's markup.
const (
	inboxRowSelector   = "[data-testid='mailbox-row']"
	rowMessageIDAttr   = "data-message-id"
	rowFromSelector    = "[data-testid='row-from']"
	rowSubjectSelector = "[data-testid='row-subject']"
	rowSnippetSelector = "[data-testid='row-snippet']"
	rowReceivedAttr    = "data-received-at"
)

// Poll scrapes the current inbox DOM and returns every row except the one
// whose message-id equals watermark (the id the caller last saw); rows that
// were already stored are dropped later as duplicate message-ids. The
// browser-poll path never opens
// attachment bytes from the DOM; resumes attached to messages surfaced this
// way fall back to the email body as their text source, same as
// internal/ingest.materializeCandidate's fallback chain for a
// fetch-less message.
func (s *browserPollSession) Poll(ctx context.Context, watermark string) ([]FetchedMessage, string, error) {
	if s.page == nil {
		return nil, watermark, fmt.Errorf("browser session not connected")
	}
	if err := s.page.Reload(); err != nil {
		return nil, watermark, fmt.Errorf("reload inbox: %w", err)
	}
	if err := s.page.WaitLoad(); err != nil {
		return nil, watermark, fmt.Errorf("wait for inbox reload: %w", err)
	}

	elements, err := s.page.Elements(inboxRowSelector)
	if err != nil {
		return nil, watermark, fmt.Errorf("query inbox rows: %w", err)
	}

	var out []FetchedMessage
	next := watermark
	for _, el := range elements {
		msgID, err := el.Attribute(rowMessageIDAttr)
		if err != nil || msgID == nil || *msgID == "" || *msgID == watermark {
			continue
		}

		from := textOf(el, rowFromSelector)
		subject := textOf(el, rowSubjectSelector)
		snippet := textOf(el, rowSnippetSelector)
		receivedAt := time.Now().UTC()
		if raw, err := el.Attribute(rowReceivedAttr); err == nil && raw != nil {
			if ms, convErr := strconv.ParseInt(*raw, 10, 64); convErr == nil {
				receivedAt = time.UnixMilli(ms).UTC()
			}
		}

		fromName, fromAddress := splitFromHeader(from)
		out = append(out, FetchedMessage{
			MessageID:   *msgID,
			FromAddress: fromAddress,
			FromName:    fromName,
			Subject:     subject,
			BodyText:    snippet,
			ReceivedAt:  receivedAt,
		})
		next = *msgID
	}

	return out, next, nil
}

func (s *browserPollSession) Close() error {
	if s.browser == nil {
		return nil
	}
	return s.browser.Close()
}

func textOf(el *rod.Element, selector string) string {
	child, err := el.Element(selector)
	if err != nil || child == nil {
		return ""
	}
	text, err := child.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// splitFromHeader mirrors _parse_gmail_message's "Name <addr>" split.
func splitFromHeader(header string) (name, address string) {
	if i := strings.Index(header, "<"); i >= 0 {
		name = strings.Trim(strings.TrimSpace(header[:i]), `"`)
		address = strings.TrimSuffix(strings.TrimSpace(header[i+1:]), ">")
		return name, address
	}
	return "", header
}
