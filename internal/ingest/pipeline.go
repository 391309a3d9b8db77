// Package ingest drives one inbound Email through classification, candidate
// materialization, job matching, resume scoring, and auto-advance. Grounded
// on original_source/backend/services/workflow_service.py's
// run_email_workflow.
package ingest

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/andreypavlenko/jobber/internal/mailer"
	"github.com/andreypavlenko/jobber/internal/oracle"
	"github.com/andreypavlenko/jobber/internal/resumetext"
	"github.com/andreypavlenko/jobber/internal/store"
)

var resumeExtensions = []string{".pdf", ".docx", ".doc"}

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`(\+?\d[\d\-. ()]{8,}\d)`)
)

// AttachmentFetcher resolves an Attachment's raw bytes, kept out of the
// Email row itself so large payloads don't round-trip through every read.
type AttachmentFetcher func(ctx context.Context, emailID int64, filename string) ([]byte, error)

// Pipeline wires the oracle clients, resumetext extraction, and mailer
// needed to process one Email end to end.
type Pipeline struct {
	store      *store.Store
	classifier *oracle.Classifier
	scorer     *oracle.ResumeScorer
	mailer     *mailer.Mailer
	fetch      AttachmentFetcher
	linkURLFor func(token string) string
}

func New(s *store.Store, classifier *oracle.Classifier, scorer *oracle.ResumeScorer, m *mailer.Mailer, fetch AttachmentFetcher, linkURLFor func(token string) string) *Pipeline {
	return &Pipeline{store: s, classifier: classifier, scorer: scorer, mailer: m, fetch: fetch, linkURLFor: linkURLFor}
}

// ProcessEmail runs the classify/materialize/match/score/persist/advance steps
// for one Email id. Each step is
// idempotent on the Email's processed level or the Application's existence.
func (p *Pipeline) ProcessEmail(ctx context.Context, emailID int64) error {
	email, err := p.store.Emails.GetByID(ctx, p.store.Pool, emailID)
	if err != nil {
		return err
	}

	// Step 1: classify (slow leg, outside any transaction).
	if email.Processed == store.EmailNew {
		out := p.classifier.Classify(ctx, oracle.ClassifierInput{
			Subject:         email.Subject,
			FromName:        email.FromName,
			FromEmail:       email.FromAddress,
			AttachmentNames: attachmentNames(email.Attachments),
			BodyText:        email.BodyFull,
		})
		class := &store.Classification{
			Category:        out.Category,
			Confidence:      out.Confidence,
			Reasoning:       out.Reasoning,
			SuggestedAction: out.SuggestedAction,
			DetectedName:    out.DetectedName,
			DetectedRole:    out.DetectedRole,
		}
		if err := p.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
			if err := p.store.Emails.SetClassification(ctx, q, emailID, class); err != nil {
				return err
			}
			return p.store.Events.Append(ctx, q, nil, "email_classified", map[string]any{"email_id": emailID, "category": class.Category})
		}); err != nil {
			return err
		}
		email.Classification = class
		email.Processed = store.EmailClassified
	}

	// Step 2: short-circuit.
	if email.Classification == nil || email.Classification.Category != "candidate_application" {
		return nil
	}

	// Step 3: materialize candidate.
	var candidate *store.Candidate
	if email.Processed < store.EmailMaterialized {
		c, err := p.materializeCandidate(ctx, email)
		if err != nil {
			return err
		}
		candidate = c
	} else {
		c, err := p.store.Candidates.GetBySourceEmail(ctx, p.store.Pool, emailID)
		if err != nil {
			return err
		}
		candidate = c
	}

	// Step 4: pick best job.
	jobs, err := p.store.Jobs.ListOpen(ctx, p.store.Pool)
	if err != nil {
		return err
	}
	job := pickBestJob(jobs, email.Classification.DetectedRole, candidate.ResumeText)
	if job == nil {
		return nil
	}

	// Skip scoring/staging if an Application already exists for this pair.
	if _, err := p.store.Applications.GetByCandidateAndJob(ctx, p.store.Pool, candidate.ID, job.ID); err == nil {
		return nil
	} else if err != store.ErrApplicationNotFound {
		return err
	}

	// Step 5: score resume (slow leg, outside any transaction).
	scoreOut := p.scorer.Score(ctx, oracle.ResumeScorerInput{
		ResumeText:     candidate.ResumeText,
		JobID:          jobIDStr(job.ID),
		JobTitle:       job.Title,
		JobDescription: job.Description,
		MustHaveSkills: job.Skills,
		Seniority:      job.Seniority,
	})

	// Step 6: persist application at stage matched.
	score := scoreOut.Score
	app := &store.Application{
		CandidateID: candidate.ID,
		JobID:       job.ID,
		Stage:       store.StageMatched,
		ResumeScore: &score,
		ResumeScoreJSON: &store.ResumeScorerResult{
			Score:              scoreOut.Score,
			Evidence:           scoreOut.Evidence,
			Gaps:               scoreOut.Gaps,
			Risks:              scoreOut.Risks,
			Recommendation:     scoreOut.Recommendation,
			ScreeningQuestions: scoreOut.ScreeningQuestions,
			Summary:            scoreOut.Summary,
			WhyShortlisted:     scoreOut.WhyShortlisted,
			KeyStrengths:       scoreOut.KeyStrengths,
			MainGaps:           scoreOut.MainGaps,
			InterviewFocus:     scoreOut.InterviewFocus,
		},
		Recommendation: &scoreOut.Recommendation,
		AINextAction:   nextActionFor(scoreOut.Recommendation),
	}
	if err := p.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		if err := p.store.Applications.Create(ctx, q, app); err != nil {
			return err
		}
		if err := p.store.Emails.MarkMaterialized(ctx, q, emailID); err != nil {
			return err
		}
		return p.store.Events.Append(ctx, q, &app.ID, "application_matched", map[string]any{
			"job_id":         job.ID,
			"resume_score":   scoreOut.Score,
			"recommendation": scoreOut.Recommendation,
		})
	}); err != nil {
		return err
	}

	// Step 7: auto-advance.
	if scoreOut.Recommendation != "advance" {
		return nil
	}
	return p.autoAdvance(ctx, app, candidate, job)
}

func (p *Pipeline) autoAdvance(ctx context.Context, app *store.Application, candidate *store.Candidate, job *store.Job) error {
	var link *store.InterviewLink
	if err := p.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		l, err := p.store.InterviewLinks.Issue(ctx, q, app.ID, 1, store.DefaultLinkExpiry)
		if err != nil {
			return err
		}
		a, err := p.store.Applications.GetByID(ctx, q, app.ID, true)
		if err != nil {
			return err
		}
		a.Stage = store.StageScreeningScheduled
		a.InterviewLinkStatus = store.LinkGenerated
		if err := p.store.Applications.Update(ctx, q, a); err != nil {
			return err
		}
		link = l
		return p.store.Events.Append(ctx, q, &app.ID, "interview_link_generated", map[string]any{"token": l.Token, "auto": true})
	}); err != nil {
		return err
	}

	if p.mailer == nil || candidate.Email == "" {
		return nil
	}
	linkURL := link.Token
	if p.linkURLFor != nil {
		linkURL = p.linkURLFor(link.Token)
	}
	sendErr := p.mailer.SendInterviewLink(ctx, candidate.Email, candidate.Name, job.Title, linkURL)

	return p.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		if sendErr != nil {
			return p.store.Events.Append(ctx, q, &app.ID, "auto_interview_link_email_failed", map[string]any{"error": sendErr.Error()})
		}
		l, err := p.store.InterviewLinks.GetByToken(ctx, q, link.Token)
		if err != nil {
			return err
		}
		l.Status = store.LinkSent
		if err := p.store.InterviewLinks.Update(ctx, q, l); err != nil {
			return err
		}
		a, err := p.store.Applications.GetByID(ctx, q, app.ID, true)
		if err != nil {
			return err
		}
		a.InterviewLinkStatus = store.LinkSent
		if err := p.store.Applications.Update(ctx, q, a); err != nil {
			return err
		}
		return p.store.Events.Append(ctx, q, &app.ID, "auto_interview_link_emailed", map[string]any{"token": link.Token})
	})
}

func (p *Pipeline) materializeCandidate(ctx context.Context, email *store.Email) (*store.Candidate, error) {
	name := email.Classification.DetectedName
	if name == "" {
		name = nameFromBody(email.BodyFull)
	}
	if name == "" {
		name = email.FromName
	}
	if name == "" {
		name = titlecaseLocalPart(email.FromAddress)
	}

	phone := firstMatch(phonePattern, email.BodyFull)
	parsedEmail := firstMatch(emailPattern, email.BodyFull)
	if parsedEmail == "" {
		parsedEmail = email.FromAddress
	}

	resumeText, filename := email.BodySnippet, ""
	for _, att := range email.Attachments {
		if hasResumeExtension(att.Filename) {
			filename = att.Filename
			if p.fetch != nil {
				if data, err := p.fetch(ctx, email.ID, att.Filename); err == nil {
					resumeText = resumetext.Extract(att.Filename, data, email.BodyFull)
				}
			}
			break
		}
	}
	if filename == "" {
		resumeText = email.BodyFull
	}

	candidate := &store.Candidate{
		Name:           name,
		Email:          parsedEmail,
		Phone:          phone,
		ResumeText:     resumeText,
		ResumeFilename: filename,
		SourceEmailID:  &email.ID,
	}
	if err := p.store.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		if err := p.store.Candidates.Create(ctx, q, candidate); err != nil {
			return err
		}
		return p.store.Emails.MarkMaterialized(ctx, q, email.ID)
	}); err != nil {
		return nil, err
	}
	email.Processed = store.EmailMaterialized
	return candidate, nil
}

// pickBestJob implements the job-matching scoring rule.
func pickBestJob(jobs []*store.Job, detectedRole, resumeText string) *store.Job {
	if len(jobs) == 0 {
		return nil
	}
	var best *store.Job
	bestScore := 0
	for _, j := range jobs {
		s := scoreJob(j, detectedRole, resumeText)
		if best == nil || s > bestScore {
			best, bestScore = j, s
		}
	}
	if bestScore > 0 {
		return best
	}
	return jobs[0]
}

// scoreJob is a pure function so it is unit-testable without the Store.
func scoreJob(job *store.Job, detectedRole, resumeText string) int {
	roleLower := strings.ToLower(detectedRole)
	titleLower := strings.ToLower(job.Title)
	combined := strings.ToLower(detectedRole + " " + resumeText)

	score := 0
	for _, word := range strings.Fields(roleLower) {
		if len(word) > 2 && strings.Contains(titleLower, word) {
			score += 10
		}
	}
	for _, skill := range job.Skills {
		if strings.Contains(combined, strings.ToLower(skill)) {
			score += 5
		}
	}
	if job.Department != "" && strings.Contains(combined, strings.ToLower(job.Department)) {
		score += 3
	}
	return score
}

func attachmentNames(attachments []store.Attachment) []string {
	names := make([]string, len(attachments))
	for i, a := range attachments {
		names[i] = a.Filename
	}
	return names
}

func hasResumeExtension(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range resumeExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func firstMatch(re *regexp.Regexp, text string) string {
	return re.FindString(text)
}

func nameFromBody(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "name:") {
			return strings.TrimSpace(line[len("name:"):])
		}
	}
	return ""
}

func titlecaseLocalPart(address string) string {
	local := address
	if i := strings.Index(address, "@"); i >= 0 {
		local = address[:i]
	}
	local = strings.ReplaceAll(local, ".", " ")
	local = strings.ReplaceAll(local, "_", " ")
	words := strings.Fields(local)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func nextActionFor(recommendation string) string {
	switch recommendation {
	case "advance":
		return "Issue interview link"
	case "reject":
		return "Send rejection email"
	default:
		return "Review manually"
	}
}

func jobIDStr(id int64) string {
	return itoa(id)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
