package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsResumeShaped(t *testing.T) {
	cases := map[string]bool{
		"resume.pdf":       true,
		"CV.DOCX":          true,
		"cover_letter.doc": true,
		"notes.txt":        true,
		"headshot.png":     false,
		"calendar.ics":     false,
		"noextension":      false,
		"trailing.":        false,
	}
	for name, want := range cases {
		assert.Equal(t, want, isResumeShaped(name), "filename %q", name)
	}
}
