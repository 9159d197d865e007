// Package ocr runs best-effort text recognition over slide images with
// tesseract and scores the result. OCR never aborts slide extraction: a
// failing slide just gets empty text and zero confidence.
package ocr

import (
	"context"
	"strings"
	"time"

	"github.com/bdougie/slidegrab/internal/execx"
)

const defaultTimeout = 2 * time.Minute

// Engine wraps a resolved tesseract binary.
type Engine struct {
	Tool    execx.Tool
	Timeout time.Duration
}

// Recognize returns the raw recognized text for one image.
func (e *Engine) Recognize(ctx context.Context, imagePath string) (string, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	args := []string{imagePath, "stdout", "--oem", "3", "--psm", "6"}
	return execx.RunCapture(ctx, e.Tool, args, timeout)
}

// CleanText strips recognition noise: lines under 2 characters, long
// no-space tokens over 20 characters, and lines with no alphanumeric
// content at all.
func CleanText(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if len(line) < 2 {
			continue
		}
		if len(line) > 20 && !strings.Contains(line, " ") {
			continue
		}
		if !strings.ContainsFunc(line, isAlnum) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// EstimateConfidence scores cleaned text as the fraction of alphanumeric
// characters, 0 for empty text.
func EstimateConfidence(text string) float64 {
	if text == "" {
		return 0
	}
	total := 0
	alnum := 0
	for _, r := range text {
		total++
		if isAlnum(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	confidence := float64(alnum) / float64(total)
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
