// Package mailer is the outbound mail transport. Formatting quality and ICS
// attachment generation are out of scope; this package's job is only to be a
// real collaborator the pipeline and decision engine can call instead of a
// stub.
package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// Mailer sends transactional recruiting emails.
type Mailer struct {
	client    *resend.Client
	fromAddr  string
	companyName string
}

// New wires a Mailer over the resend API key and a from-address.
func New(apiKey, fromAddr, companyName string) *Mailer {
	return &Mailer{client: resend.NewClient(apiKey), fromAddr: fromAddr, companyName: companyName}
}

// SendInterviewLink emails the candidate their interview link URL.
func (m *Mailer) SendInterviewLink(ctx context.Context, toEmail, candidateName, jobTitle, linkURL string) error {
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Thanks for applying to the %s role at %s. Please complete your screening interview using the link below:</p><p><a href=\"%s\">%s</a></p>",
		candidateName, jobTitle, m.companyName, linkURL, linkURL,
	)
	return m.send(ctx, toEmail, fmt.Sprintf("Next step: your %s screening interview", jobTitle), html)
}

// SendAdvanceEmail sends the evaluator's drafted advance email.
func (m *Mailer) SendAdvanceEmail(ctx context.Context, toEmail, subject, body string) error {
	return m.send(ctx, toEmail, subject, body)
}

// SendRejection sends a standard rejection notice.
func (m *Mailer) SendRejection(ctx context.Context, toEmail, candidateName, jobTitle string) error {
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Thank you for your interest in the %s role at %s. After careful review, we've decided to move forward with other candidates at this time.</p><p>We wish you the best in your search.</p>",
		candidateName, jobTitle, m.companyName,
	)
	return m.send(ctx, toEmail, fmt.Sprintf("Update on your %s application", jobTitle), html)
}

// SendCustom sends an operator-authored ad hoc email.
func (m *Mailer) SendCustom(ctx context.Context, toEmail, subject, body string) error {
	return m.send(ctx, toEmail, subject, body)
}

func (m *Mailer) send(ctx context.Context, toEmail, subject, html string) error {
	_, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.fromAddr,
		To:      []string{toEmail},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
