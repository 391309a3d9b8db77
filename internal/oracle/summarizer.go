package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/andreypavlenko/jobber/internal/oracle/envelope"
)

// SummarizerInput is the Final-Summary Generator's request shape: the
// combined resume + interview assessment for one application.
type SummarizerInput struct {
	CandidateName    string
	JobTitle         string
	ResumeScore      float64
	InterviewScore   float64
	HasInterview     bool
	FinalScore       float64
	Recommendation   string // advance | hold | reject
	ResumeSummary    string
	InterviewSummary string
	KeyStrengths     []string
	MainGaps         []string
}

// SummarizerOutput is the Final-Summary Generator's canonical response shape.
type SummarizerOutput struct {
	Summary string
}

// Summarizer wraps Client for the final-summary oracle.
type Summarizer struct {
	*Client
	cfg Config
}

func NewSummarizer(c *Client, cfg Config) *Summarizer { return &Summarizer{Client: c, cfg: cfg} }

func (o *Summarizer) Summarize(ctx context.Context, in SummarizerInput) SummarizerOutput {
	if o.cfg.Mock {
		o.fallback(ctx, "summarizer", "mock mode")
		return summarizerFallback(in)
	}

	text, err := o.call(ctx, "summarizer", o.cfg, func(ctx context.Context) (string, int, int, error) {
		prompt := summarizerPrompt(in)
		msg, err := o.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(o.cfg.Model),
			MaxTokens: 512,
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
		o.fallback(ctx, "summarizer", err.Error())
		return summarizerFallback(in)
	}

	raw, err := envelope.Parse(text)
	if err != nil {
		// Some backends return plain prose rather than JSON for this oracle;
		// treat the whole response as the summary when it isn't an object.
		return SummarizerOutput{Summary: strings.TrimSpace(text)}
	}
	summary := raw.str("summary", "executive_summary")
	if summary == "" {
		summary = strings.TrimSpace(text)
	}
	return SummarizerOutput{Summary: summary}
}

func summarizerPrompt(in SummarizerInput) string {
	interviewPart := "No voice interview was conducted."
	if in.HasInterview {
		interviewPart = fmt.Sprintf("Interview score: %.1f. Interview summary: %s", in.InterviewScore, in.InterviewSummary)
	}
	return fmt.Sprintf(`Write a 2-3 sentence hiring summary for %s applying to %s. Respond with JSON: {"summary": "..."}.

Resume score: %.1f. Resume summary: %s
%s
Final score: %.1f. Recommendation: %s`,
		in.CandidateName, in.JobTitle, in.ResumeScore, in.ResumeSummary, interviewPart, in.FinalScore, in.Recommendation)
}

// summarizerFallback builds a deterministic template from the scores and
// decision already on hand, grounded on
// original_source/backend/agents/hiring_report.py's _generate_mock_report
// executive-summary template.
func summarizerFallback(in SummarizerInput) SummarizerOutput {
	interviewPart := ""
	if in.HasInterview {
		interviewPart = fmt.Sprintf(" The voice interview scored %.1f/100.", in.InterviewScore)
	}

	verdict := "under review"
	switch in.Recommendation {
	case "advance":
		verdict = "recommended to advance"
	case "hold":
		verdict = "placed on hold"
	case "reject":
		verdict = "not recommended to advance"
	}

	strengthsPart := ""
	if len(in.KeyStrengths) > 0 {
		strengthsPart = fmt.Sprintf(" Key strengths: %s.", joinOrNone(in.KeyStrengths, 3))
	}
	gapsPart := ""
	if len(in.MainGaps) > 0 {
		gapsPart = fmt.Sprintf(" Main gaps: %s.", joinOrNone(in.MainGaps, 2))
	}

	summary := fmt.Sprintf(
		"%s applied for %s and scored %.1f/100 on resume screening.%s Final combined score: %.1f/100 — %s.%s%s",
		in.CandidateName, in.JobTitle, in.ResumeScore, interviewPart, in.FinalScore, verdict, strengthsPart, gapsPart,
	)
	return SummarizerOutput{Summary: summary}
}
