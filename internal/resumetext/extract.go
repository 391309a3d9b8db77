// Package resumetext extracts plain text from a resume attachment's raw
// bytes. Extraction quality is explicitly out of scope; this package exists
// only so the ingestion pipeline has a real collaborator to call instead of
// a stub, matching original_source/backend/services/workflow_service.py's
// extract_resume_text fallback chain.
package resumetext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/ledongthuc/pdf"
)

// Extract returns the plain text of a resume attachment. filename picks the
// extraction strategy by extension; fallbackText (typically the email body)
// is returned unchanged when extraction is unsupported, errors, or yields
// nothing.
func Extract(filename string, data []byte, fallbackText string) string {
	ext := strings.ToLower(extOf(filename))

	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx", ".doc":
		text, err = extractDocx(data)
	case ".txt", ".tex":
		text = string(data)
	default:
		text = ""
	}

	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		return fallbackText
	}
	return text
}

func extOf(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return filename[i:]
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

func extractDocx(data []byte) (string, error) {
	doc, err := godocx.OpenBytes(data)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	var sb strings.Builder
	for _, p := range doc.Document.Body.Paragraphs {
		sb.WriteString(p.Text())
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
