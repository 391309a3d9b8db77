package oracle

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/andreypavlenko/jobber/internal/oracle/envelope"
)

// InterviewEvaluatorInput is the Interview Evaluator's request shape.
type InterviewEvaluatorInput struct {
	Transcript     string
	JobTitle       string
	JobDescription string
	RequiredSkills []string
	ResumeScore    float64
	ResumeSummary  string
}

// InterviewEvaluatorOutput is the Interview Evaluator's canonical response shape.
type InterviewEvaluatorOutput struct {
	Score               float64
	Decision            string // advance | hold | reject
	Strengths           []string
	Concerns            []string
	CommunicationRating float64
	TechnicalDepth      float64
	CulturalFit         float64
	EmailDraft          string
	SchedulingSlots     []string
	Summary             string
}

// InterviewEvaluator wraps Client for the interview-evaluation oracle.
type InterviewEvaluator struct {
	*Client
	cfg Config
}

func NewInterviewEvaluator(c *Client, cfg Config) *InterviewEvaluator {
	return &InterviewEvaluator{Client: c, cfg: cfg}
}

func (o *InterviewEvaluator) Evaluate(ctx context.Context, in InterviewEvaluatorInput) InterviewEvaluatorOutput {
	if o.cfg.Mock {
		o.fallback(ctx, "interview_evaluator", "mock mode")
		return interviewEvaluatorFallback(in)
	}

	text, err := o.call(ctx, "interview_evaluator", o.cfg, func(ctx context.Context) (string, int, int, error) {
		prompt := fmt.Sprintf(`Evaluate this voice-interview transcript for the %s role. Respond with JSON matching the InterviewEvaluatorOutput schema.

Required skills: %s
Resume score: %.1f
Resume summary: %s
Transcript: %s`, in.JobTitle, strings.Join(in.RequiredSkills, ", "), in.ResumeScore, in.ResumeSummary, in.Transcript)

		msg, err := o.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(o.cfg.Model),
			MaxTokens: 1536,
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
		o.fallback(ctx, "interview_evaluator", err.Error())
		return interviewEvaluatorFallback(in)
	}

	raw, err := envelope.Parse(text)
	if err != nil {
		o.fallback(ctx, "interview_evaluator", "unparseable response: "+err.Error())
		return interviewEvaluatorFallback(in)
	}
	f := raw.InterviewEvaluatorFields()
	return InterviewEvaluatorOutput{
		Score:               f.Score,
		Decision:            f.Decision,
		Strengths:           f.Strengths,
		Concerns:            f.Concerns,
		CommunicationRating: f.CommunicationRating,
		TechnicalDepth:      f.TechnicalDepth,
		CulturalFit:         f.CulturalFit,
		EmailDraft:          f.EmailDraft,
		SchedulingSlots:     f.SchedulingSlots,
		Summary:             f.Summary,
	}
}

// interviewEvaluatorFallback: score = min(0.7*resume_score + 20, 95).
func interviewEvaluatorFallback(in InterviewEvaluatorInput) InterviewEvaluatorOutput {
	score := math.Min(0.7*in.ResumeScore+20, 95)
	decision := "reject"
	switch {
	case score >= 70:
		decision = "advance"
	case score >= 50:
		decision = "hold"
	}
	return InterviewEvaluatorOutput{
		Score:               math.Round(score*10) / 10,
		Decision:            decision,
		Strengths:           []string{"Completed the voice interview"},
		Concerns:            []string{"Evaluation generated without a live transcript review"},
		CommunicationRating: 3,
		TechnicalDepth:      3,
		CulturalFit:         3,
		Summary: fmt.Sprintf("Fallback evaluation for %s: estimated score %.1f from resume score %.1f.",
			in.JobTitle, score, in.ResumeScore),
	}
}
