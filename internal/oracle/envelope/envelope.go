// Package envelope tolerates the oracle backends' schema drift: a permissive
// map[string]any decode, synonym normalization, then field-by-field reads
// from the normalized map into the canonical output struct. Grounded on
// original_source/backend/agents/email_classifier.py's hand-written
// dict-key fallbacks and the nested candidate_summary/match schema called
// out for the Resume Scorer.
package envelope

import (
	"encoding/json"
	"strings"
)

// Raw is a permissively decoded oracle response.
type Raw map[string]any

// Parse strips a markdown code fence (some oracle backends wrap JSON in
// ```json ... ```) and decodes the remainder into a Raw envelope.
func Parse(text string) (Raw, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var raw Raw
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// str returns a string field, trying each candidate key (including dotted
// paths into nested objects) in order.
func (r Raw) str(paths ...string) string {
	for _, p := range paths {
		if v, ok := r.lookup(p); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func (r Raw) lookup(path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = map[string]any(r)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[p]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func (r Raw) float(paths ...string) (float64, bool) {
	for _, p := range paths {
		if v, ok := r.lookup(p); ok {
			switch n := v.(type) {
			case float64:
				return n, true
			case int:
				return float64(n), true
			}
		}
	}
	return 0, false
}

func (r Raw) strSlice(paths ...string) []string {
	for _, p := range paths {
		if v, ok := r.lookup(p); ok {
			if arr, ok := v.([]any); ok {
				out := make([]string, 0, len(arr))
				for _, item := range arr {
					if s, ok := item.(string); ok {
						out = append(out, s)
					}
				}
				return out
			}
		}
	}
	return nil
}

// NormalizeCategory maps known synonyms onto the canonical email-classifier
// category set.
func NormalizeCategory(raw Raw) string {
	cat := raw.str("category", "email_type")
	switch strings.ToLower(cat) {
	case "candidate_application", "application", "resume", "job_application":
		return "candidate_application"
	case "general", "other":
		return "general"
	case "":
		return "unknown"
	default:
		return "unknown"
	}
}

// NormalizeRecommendation collapses the oracles' various advance synonyms
// ("screen", "shortlist") onto the canonical "advance".
func NormalizeRecommendation(token string) string {
	switch strings.ToLower(token) {
	case "advance", "screen", "shortlist":
		return "advance"
	case "hold":
		return "hold"
	case "reject":
		return "reject"
	default:
		return "hold"
	}
}

// ClassifierFields extracts the classifier envelope's canonical fields,
// tolerating the nested candidate.name / job_hint.title alternative shapes.
type ClassifierFields struct {
	Category        string
	Confidence      float64
	Reasoning       string
	SuggestedAction string
	DetectedName    string
	DetectedRole    string
}

func (r Raw) ClassifierFields() ClassifierFields {
	conf, _ := r.float("confidence")
	return ClassifierFields{
		Category:        NormalizeCategory(r),
		Confidence:      conf,
		Reasoning:       r.str("reasoning"),
		SuggestedAction: r.str("suggested_action"),
		DetectedName:    r.str("detected_name", "candidate.name"),
		DetectedRole:    r.str("detected_role", "job_hint.title"),
	}
}

// ResumeScorerFields extracts the resume-scorer envelope's canonical fields,
// tolerating the nested candidate_summary/match schema.
type ResumeScorerFields struct {
	Score              float64
	Evidence           []string
	Gaps               []string
	Risks              []string
	Recommendation     string
	ScreeningQuestions []string
	Summary            string
	WhyShortlisted     []string
	KeyStrengths       []string
	MainGaps           []string
	InterviewFocus     []string
}

// InterviewEvaluatorFields extracts the interview-evaluator envelope's
// canonical fields.
type InterviewEvaluatorFields struct {
	Score               float64
	Decision            string
	Strengths           []string
	Concerns            []string
	CommunicationRating float64
	TechnicalDepth      float64
	CulturalFit         float64
	EmailDraft          string
	SchedulingSlots     []string
	Summary             string
}

func (r Raw) InterviewEvaluatorFields() InterviewEvaluatorFields {
	score, _ := r.float("score")
	commRating, _ := r.float("communication_rating")
	techDepth, _ := r.float("technical_depth")
	culturalFit, _ := r.float("cultural_fit")
	return InterviewEvaluatorFields{
		Score:               score,
		Decision:            NormalizeRecommendation(r.str("decision", "recommendation")),
		Strengths:           r.strSlice("strengths"),
		Concerns:            r.strSlice("concerns"),
		CommunicationRating: commRating,
		TechnicalDepth:      techDepth,
		CulturalFit:         culturalFit,
		EmailDraft:          r.str("email_draft"),
		SchedulingSlots:     r.strSlice("scheduling_slots"),
		Summary:             r.str("summary"),
	}
}

func (r Raw) ResumeScorerFields() ResumeScorerFields {
	score, _ := r.float("score", "match.score")
	rec := r.str("recommendation", "match.recommendation")
	return ResumeScorerFields{
		Score:              score,
		Evidence:           r.strSlice("evidence", "match.evidence"),
		Gaps:               r.strSlice("gaps", "match.gaps"),
		Risks:              r.strSlice("risks", "match.risks"),
		Recommendation:     NormalizeRecommendation(rec),
		ScreeningQuestions: r.strSlice("screening_questions", "candidate_summary.screening_questions"),
		Summary:            r.str("summary", "candidate_summary.summary"),
		WhyShortlisted:     r.strSlice("why_shortlisted"),
		KeyStrengths:       r.strSlice("key_strengths"),
		MainGaps:           r.strSlice("main_gaps"),
		InterviewFocus:     r.strSlice("interview_focus"),
	}
}
