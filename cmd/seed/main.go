package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/andreypavlenko/jobber/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func daysAgo(d int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -d)
}

func pick[T any](items []T) T {
	return items[rand.Intn(len(items))]
}

// jobSeed is one posting seeded at startup, spanning engineering and
// go-to-market roles so the matcher has more than one department to score
// candidates against.
type jobSeed struct {
	code, title, department, seniority, description string
	skills                                           []string
}

var jobSeeds = []jobSeed{
	{"ENG-BACKEND-01", "Backend Engineer", "Engineering", store.SeniorityMid,
		"Own the recruiting pipeline's ingest and scoring services.",
		[]string{"go", "postgresql", "redis", "distributed systems"}},
	{"ENG-FRONTEND-01", "Frontend Engineer", "Engineering", store.SeniorityMid,
		"Build the recruiter dashboard and candidate screening UI.",
		[]string{"react", "typescript", "css"}},
	{"ENG-LEAD-01", "Staff Engineer", "Engineering", store.SeniorityLead,
		"Set technical direction across ingest, scoring, and screening.",
		[]string{"go", "system design", "mentoring"}},
	{"SALES-AE-01", "Account Executive", "Sales", store.SeniorityMid,
		"Own the full sales cycle for mid-market accounts.",
		[]string{"saas sales", "negotiation", "crm"}},
}

// candidateSeed is one applicant materialized directly, bypassing the mail
// listener, so a freshly migrated database has something to browse.
type candidateSeed struct {
	name, email, phone, resumeText string
}

var candidateSeeds = []candidateSeed{
	{"Alice Kowalski", "alice.kowalski@example.com", "+1-415-555-0101",
		"Senior backend engineer, 6 years Go, Postgres, Redis, distributed systems."},
	{"Ben Torres", "ben.torres@example.com", "+1-415-555-0102",
		"Frontend engineer, React and TypeScript, 3 years experience."},
	{"Chioma Eze", "chioma.eze@example.com", "+1-415-555-0103",
		"Staff-level engineer, system design, Go, mentoring junior engineers."},
	{"Dana Feld", "dana.feld@example.com", "+1-415-555-0104",
		"Account executive, 5 years SaaS sales, CRM, negotiation."},
	{"Emeka Obi", "emeka.obi@example.com", "+1-415-555-0105",
		"Junior backend developer, learning Go and Postgres."},
}

func main() {
	_ = godotenv.Load()

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("DB_HOST", "localhost"),
		envOr("DB_PORT", "5432"),
		envOr("DB_USER", "jobber"),
		envOr("DB_PASSWORD", "jobber"),
		envOr("DB_NAME", "jobber"),
		envOr("DB_SSL_MODE", "disable"),
	)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	fmt.Println("connected to database")

	s := store.New(pool)

	if err := s.WithTx(ctx, func(ctx context.Context, q store.Queryer) error {
		return seed(ctx, q, s)
	}); err != nil {
		log.Fatalf("seed: %v", err)
	}

	fmt.Println("seed complete")
}

// seed clears prior seed rows (matched by job code / candidate email) and
// inserts a fresh set of jobs, candidates and applications spanning the
// pipeline's stages.
func seed(ctx context.Context, q store.Queryer, s *store.Store) error {
	for _, js := range jobSeeds {
		if _, err := q.Exec(ctx, `DELETE FROM jobs WHERE code = $1`, js.code); err != nil {
			return err
		}
	}
	for _, cs := range candidateSeeds {
		if _, err := q.Exec(ctx, `DELETE FROM candidates WHERE email = $1`, cs.email); err != nil {
			return err
		}
	}
	fmt.Println("cleaned previous seed data")

	jobs := make([]*store.Job, 0, len(jobSeeds))
	for _, js := range jobSeeds {
		j := &store.Job{
			Code:         js.code,
			Title:        js.title,
			Department:   js.department,
			Seniority:    js.seniority,
			Skills:       js.skills,
			Description:  js.description,
			ResumeMin:    0.55,
			InterviewMin: 0.6,
			RejectBelow:  0.35,
			Status:       store.JobStatusOpen,
		}
		if err := s.Jobs.Create(ctx, q, j); err != nil {
			return err
		}
		jobs = append(jobs, j)
	}
	fmt.Printf("seeded %d jobs\n", len(jobs))

	stages := []string{store.StageMatched, store.StageInterviewLinkSent, store.StageScreeningScheduled, store.StageScreened, store.StageShortlisted}
	recommendations := []string{store.RecommendationAdvance, store.RecommendationHold, store.RecommendationReject}

	candidates := make([]*store.Candidate, 0, len(candidateSeeds))
	for _, cs := range candidateSeeds {
		c := &store.Candidate{
			Name:       cs.name,
			Email:      cs.email,
			Phone:      cs.phone,
			ResumeText: cs.resumeText,
		}
		if err := s.Candidates.Create(ctx, q, c); err != nil {
			return err
		}
		candidates = append(candidates, c)
	}
	fmt.Printf("seeded %d candidates\n", len(candidates))

	appsCreated := 0
	for i, c := range candidates {
		job := jobs[i%len(jobs)]
		score := 0.5 + rand.Float64()*0.45
		recommendation := pick(recommendations)
		app := &store.Application{
			CandidateID:    c.ID,
			JobID:          job.ID,
			Stage:          pick(stages),
			ResumeScore:    &score,
			Recommendation: &recommendation,
			AINextAction:   "Review application",
		}
		if err := s.Applications.Create(ctx, q, app); err != nil {
			if err == store.ErrApplicationExists {
				continue
			}
			return err
		}
		if err := s.Events.Append(ctx, q, &app.ID, "application_matched", map[string]any{
			"job_id":         job.ID,
			"resume_score":   score,
			"recommendation": recommendation,
			"seeded":         true,
		}); err != nil {
			return err
		}
		appsCreated++
	}
	fmt.Printf("seeded %d applications\n", appsCreated)

	return nil
}
