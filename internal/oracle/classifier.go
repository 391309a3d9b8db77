package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/andreypavlenko/jobber/internal/oracle/envelope"
)

// ClassifierInput is the Email Classifier's request shape.
type ClassifierInput struct {
	Subject         string
	FromName        string
	FromEmail       string
	AttachmentNames []string
	BodyText        string
}

// ClassifierOutput is the Email Classifier's canonical response shape.
type ClassifierOutput struct {
	Category        string // candidate_application | general | unknown
	Confidence      float64
	Reasoning       string
	SuggestedAction string
	DetectedName    string
	DetectedRole    string
}

var resumeExtensions = []string{".pdf", ".docx", ".doc"}

var applicationKeywords = []string{
	"apply", "application", "resume", "cv", "position", "role", "job", "opportunity", "hiring",
}

// Classifier wraps Client for the email-classification oracle.
type Classifier struct {
	*Client
	cfg Config
}

// NewClassifier builds a Classifier from a shared Client and its config.
func NewClassifier(c *Client, cfg Config) *Classifier { return &Classifier{Client: c, cfg: cfg} }

// Classify runs the live classifier, falling back to the deterministic
// keyword/attachment heuristic on any failure.
func (o *Classifier) Classify(ctx context.Context, in ClassifierInput) ClassifierOutput {
	if o.cfg.Mock {
		o.fallback(ctx, "email_classifier", "mock mode")
		return classifierFallback(in)
	}

	text, err := o.call(ctx, "email_classifier", o.cfg, func(ctx context.Context) (string, int, int, error) {
		prompt := classifierPrompt(in)
		msg, err := o.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(o.cfg.Model),
			MaxTokens: 1024,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return "", 0, 0, err
		}
		var out strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				out.WriteString(block.Text)
			}
		}
		return out.String(), int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens), nil
	})
	if err != nil {
		o.fallback(ctx, "email_classifier", err.Error())
		return classifierFallback(in)
	}

	raw, err := envelope.Parse(text)
	if err != nil {
		o.fallback(ctx, "email_classifier", "unparseable response: "+err.Error())
		return classifierFallback(in)
	}
	f := raw.ClassifierFields()
	return ClassifierOutput{
		Category:        f.Category,
		Confidence:      f.Confidence,
		Reasoning:       f.Reasoning,
		SuggestedAction: f.SuggestedAction,
		DetectedName:    f.DetectedName,
		DetectedRole:    f.DetectedRole,
	}
}

func classifierPrompt(in ClassifierInput) string {
	return fmt.Sprintf(`Classify this email. Respond with JSON: {"category": "candidate_application|general|unknown", "confidence": 0-1, "reasoning": "...", "suggested_action": "...", "detected_name": "...", "detected_role": "..."}.

Subject: %s
From: %s <%s>
Attachments: %s
Body: %s`, in.Subject, in.FromName, in.FromEmail, strings.Join(in.AttachmentNames, ", "), in.BodyText)
}

// classifierFallback is the deterministic heuristic used when the live call fails,
// grounded line-for-line on original_source's email_classifier.py mock path.
func classifierFallback(in ClassifierInput) ClassifierOutput {
	hasResume := false
	for _, name := range in.AttachmentNames {
		lower := strings.ToLower(name)
		for _, ext := range resumeExtensions {
			if strings.HasSuffix(lower, ext) {
				hasResume = true
				break
			}
		}
	}

	searchText := strings.ToLower(in.Subject + " " + in.BodyText)
	keywordHits := 0
	for _, kw := range applicationKeywords {
		if strings.Contains(searchText, kw) {
			keywordHits++
		}
	}

	if hasResume || keywordHits >= 2 {
		confidence := 0.78
		if hasResume {
			confidence = 0.92
		}
		return ClassifierOutput{
			Category:   "candidate_application",
			Confidence: confidence,
			Reasoning:  "fallback heuristic: attachment or keyword match",
		}
	}
	return ClassifierOutput{
		Category:   "general",
		Confidence: 0.85,
		Reasoning:  "fallback heuristic: no resume signal",
	}
}
