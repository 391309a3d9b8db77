package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andreypavlenko/jobber/internal/store"
)

func TestScoreJob(t *testing.T) {
	job := &store.Job{
		Title:      "Backend Engineer",
		Department: "Engineering",
		Skills:     []string{"Go", "PostgreSQL", "Redis"},
	}

	tests := []struct {
		name         string
		detectedRole string
		resumeText   string
		expected     int
	}{
		{"title word match", "backend engineer role", "", 20},
		{"skill match only", "", "experienced with go and redis", 10},
		{"department match", "", "worked in engineering for years", 3},
		{"all three combine", "backend role", "go postgresql engineering", 10 + 10 + 3},
		{"no overlap", "sales rep", "crm closing", 0},
		{"short words ignored in title match", "a an of", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scoreJob(job, tt.detectedRole, tt.resumeText))
		})
	}
}

func TestPickBestJob(t *testing.T) {
	backend := &store.Job{Title: "Backend Engineer", Department: "Engineering", Skills: []string{"go"}}
	sales := &store.Job{Title: "Account Executive", Department: "Sales", Skills: []string{"crm"}}

	t.Run("empty job list returns nil", func(t *testing.T) {
		assert.Nil(t, pickBestJob(nil, "backend", ""))
	})

	t.Run("picks the highest scoring job", func(t *testing.T) {
		best := pickBestJob([]*store.Job{sales, backend}, "backend engineer", "go developer")
		assert.Same(t, backend, best)
	})

	t.Run("falls back to the first job when nothing scores", func(t *testing.T) {
		best := pickBestJob([]*store.Job{sales, backend}, "unrelated role", "no overlap at all")
		assert.Same(t, sales, best)
	})
}

func TestHasResumeExtension(t *testing.T) {
	tests := []struct {
		filename string
		expected bool
	}{
		{"resume.pdf", true},
		{"CV.DOCX", true},
		{"cover_letter.doc", true},
		{"photo.png", false},
		{"resume", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, hasResumeExtension(tt.filename))
		})
	}
}

func TestFirstMatch(t *testing.T) {
	t.Run("extracts an email address", func(t *testing.T) {
		got := firstMatch(emailPattern, "Reach me at jane.doe+jobs@example.co.uk please")
		assert.Equal(t, "jane.doe+jobs@example.co.uk", got)
	})

	t.Run("extracts a phone number", func(t *testing.T) {
		got := firstMatch(phonePattern, "call me at +1 (415) 555-0101 anytime")
		assert.NotEmpty(t, got)
	})

	t.Run("returns empty string when nothing matches", func(t *testing.T) {
		assert.Empty(t, firstMatch(emailPattern, "no contact info here"))
	})
}

func TestNameFromBody(t *testing.T) {
	t.Run("finds a Name: line", func(t *testing.T) {
		body := "Hello,\nName: Jane Doe\nI am applying for the role."
		assert.Equal(t, "Jane Doe", nameFromBody(body))
	})

	t.Run("is case-insensitive on the prefix", func(t *testing.T) {
		body := "NAME:   Ben Torres  \nMore text"
		assert.Equal(t, "Ben Torres", nameFromBody(body))
	})

	t.Run("returns empty string when absent", func(t *testing.T) {
		assert.Empty(t, nameFromBody("no such line in this body"))
	})
}

func TestTitlecaseLocalPart(t *testing.T) {
	tests := []struct {
		address  string
		expected string
	}{
		{"jane.doe@example.com", "Jane Doe"},
		{"ben_torres@example.com", "Ben Torres"},
		{"alice@example.com", "Alice"},
		{"no-at-sign", "No-at-sign"},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.expected, titlecaseLocalPart(tt.address))
		})
	}
}

func TestNextActionFor(t *testing.T) {
	tests := []struct {
		recommendation string
		expected       string
	}{
		{"advance", "Issue interview link"},
		{"reject", "Send rejection email"},
		{"hold", "Review manually"},
		{"", "Review manually"},
	}
	for _, tt := range tests {
		t.Run(tt.recommendation, func(t *testing.T) {
			assert.Equal(t, tt.expected, nextActionFor(tt.recommendation))
		})
	}
}

func TestAttachmentNames(t *testing.T) {
	attachments := []store.Attachment{{Filename: "resume.pdf"}, {Filename: "cover.docx"}}
	assert.Equal(t, []string{"resume.pdf", "cover.docx"}, attachmentNames(attachments))
	assert.Empty(t, attachmentNames(nil))
}
