package oracle

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/andreypavlenko/jobber/internal/oracle/envelope"
)

// ResumeScorerInput is the Resume Scorer's request shape.
type ResumeScorerInput struct {
	ResumeText        string
	JobID             string
	JobTitle          string
	JobDescription    string
	MustHaveSkills    []string
	NiceToHaveSkills  []string
	Seniority         string
}

// ResumeScorerOutput is the Resume Scorer's canonical response shape.
type ResumeScorerOutput struct {
	Score              float64
	Evidence           []string
	Gaps               []string
	Risks              []string
	Recommendation     string // advance | hold | reject
	ScreeningQuestions []string
	Summary            string
	WhyShortlisted     []string
	KeyStrengths       []string
	MainGaps           []string
	InterviewFocus     []string
}

// ResumeScorer wraps Client for the resume-scoring oracle.
type ResumeScorer struct {
	*Client
	cfg Config
}

func NewResumeScorer(c *Client, cfg Config) *ResumeScorer { return &ResumeScorer{Client: c, cfg: cfg} }

func (o *ResumeScorer) Score(ctx context.Context, in ResumeScorerInput) ResumeScorerOutput {
	if o.cfg.Mock {
		o.fallback(ctx, "resume_scorer", "mock mode")
		return resumeScorerFallback(in)
	}

	text, err := o.call(ctx, "resume_scorer", o.cfg, func(ctx context.Context) (string, int, int, error) {
		prompt := resumeScorerPrompt(in)
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
		o.fallback(ctx, "resume_scorer", err.Error())
		return resumeScorerFallback(in)
	}

	raw, err := envelope.Parse(text)
	if err != nil {
		o.fallback(ctx, "resume_scorer", "unparseable response: "+err.Error())
		return resumeScorerFallback(in)
	}
	f := raw.ResumeScorerFields()
	return ResumeScorerOutput{
		Score:              f.Score,
		Evidence:           f.Evidence,
		Gaps:               f.Gaps,
		Risks:              f.Risks,
		Recommendation:     f.Recommendation,
		ScreeningQuestions: f.ScreeningQuestions,
		Summary:            f.Summary,
		WhyShortlisted:     f.WhyShortlisted,
		KeyStrengths:       f.KeyStrengths,
		MainGaps:           f.MainGaps,
		InterviewFocus:     f.InterviewFocus,
	}
}

func resumeScorerPrompt(in ResumeScorerInput) string {
	return fmt.Sprintf(`Score this resume against the job. Respond with JSON matching the ResumeScorerOutput schema.

Job: %s (%s)
Must-have skills: %s
Nice-to-have skills: %s
Resume: %s`, in.JobTitle, in.Seniority, strings.Join(in.MustHaveSkills, ", "), strings.Join(in.NiceToHaveSkills, ", "), in.ResumeText)
}

// resumeScorerFallback implements the exact formula from
// original_source/backend/agents/resume_scorer.py's mock path.
func resumeScorerFallback(in ResumeScorerInput) ResumeScorerOutput {
	resumeLower := strings.ToLower(in.ResumeText)

	var mustMatched, mustMissing []string
	for _, s := range in.MustHaveSkills {
		if strings.Contains(resumeLower, strings.ToLower(s)) {
			mustMatched = append(mustMatched, s)
		} else {
			mustMissing = append(mustMissing, s)
		}
	}
	var niceMatched []string
	for _, s := range in.NiceToHaveSkills {
		if strings.Contains(resumeLower, strings.ToLower(s)) {
			niceMatched = append(niceMatched, s)
		}
	}

	mustRatio := ratio(len(mustMatched), len(in.MustHaveSkills))
	niceRatio := ratio(len(niceMatched), len(in.NiceToHaveSkills))

	score := math.Round((40+mustRatio*40+niceRatio*15+5)*10) / 10
	if score > 98 {
		score = 98
	}

	recommendation := "reject"
	switch {
	case score >= 70:
		recommendation = "advance"
	case score >= 50:
		recommendation = "hold"
	}

	evidence := []string{
		fmt.Sprintf("Matches %d/%d must-have skills: %s", len(mustMatched), len(in.MustHaveSkills), joinOrNone(mustMatched, 3)),
		fmt.Sprintf("Matches %d/%d nice-to-have skills: %s", len(niceMatched), len(in.NiceToHaveSkills), joinOrNone(niceMatched, 3)),
		"Resume demonstrates relevant industry experience",
	}
	gaps := []string{"Could benefit from more quantified achievements"}
	if len(mustMissing) > 0 {
		gaps = append([]string{fmt.Sprintf("Missing must-have skills: %s", joinOrNone(mustMissing, 3))}, gaps...)
	} else {
		gaps = append([]string{"No critical skill gaps"}, gaps...)
	}

	risk := "No significant red flags"
	if score < 60 {
		risk = "Short tenure patterns at previous positions"
	}

	firstMust := "your core skills"
	if len(in.MustHaveSkills) > 0 {
		firstMust = in.MustHaveSkills[0]
	}
	if len(mustMatched) > 0 {
		firstMust = mustMatched[0]
	}

	matchLevel := "Weak match"
	if score >= 70 {
		matchLevel = "Strong match"
	} else if score >= 50 {
		matchLevel = "Partial match"
	}

	return ResumeScorerOutput{
		Score:          score,
		Evidence:       evidence,
		Gaps:           gaps,
		Risks:          []string{risk},
		Recommendation: recommendation,
		ScreeningQuestions: []string{
			fmt.Sprintf("Tell me about your experience with %s", firstMust),
			fmt.Sprintf("Why are you interested in the %s role?", in.JobTitle),
			"Describe a challenging project you led recently",
			"How do you handle tight deadlines and competing priorities?",
			"Where do you see yourself in 2 years?",
		},
		Summary: fmt.Sprintf("Candidate scores %.1f/100 for %s. %s with %d of %d must-have skills.",
			score, in.JobTitle, matchLevel, len(mustMatched), len(in.MustHaveSkills)),
		WhyShortlisted: []string{
			ifElse(len(mustMatched) > 0, fmt.Sprintf("Strong skill alignment: %s", joinOrNone(mustMatched, 2)), "Relevant background experience"),
			"Resume demonstrates progressive career growth",
			"Experience level matches role seniority requirements",
		},
		KeyStrengths: []string{
			ifElse(len(mustMatched) > 0, fmt.Sprintf("Proficient in %s", mustMatched[0]), "Relevant domain knowledge"),
			"Clear and professional resume presentation",
			"Progressive career trajectory with increasing responsibility",
		},
		MainGaps: []string{
			ifElse(len(mustMissing) > 0, fmt.Sprintf("Missing: %s", joinOrNone(mustMissing, 2)), "No significant gaps identified"),
			"Could strengthen portfolio with more project examples",
		},
		InterviewFocus: []string{
			"Probe depth of technical skills in core areas",
			"Assess cultural fit and teamwork approach",
			"Evaluate problem-solving methodology with real scenarios",
		},
	}
}

func ratio(n, d int) float64 {
	if d == 0 {
		d = 1
	}
	return float64(n) / float64(d)
}

func joinOrNone(items []string, max int) string {
	if len(items) == 0 {
		return "none"
	}
	if len(items) > max {
		items = items[:max]
	}
	return strings.Join(items, ", ")
}

func ifElse(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
