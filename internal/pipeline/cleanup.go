package pipeline

import (
	"regexp"
	"strings"

	"github.com/swasthya/healthassist/internal/models"
)

var (
	headingMarkers  = regexp.MustCompile(`(?m)^[#*]+\s?`)
	parenthesized   = regexp.MustCompile(`\([^)]+\)`)
	disallowedRunes = regexp.MustCompile(`[^\p{L}\p{N}\s.,?!-]`)
	newlineRuns     = regexp.MustCompile(`(\r\n|\r|\n)+`)
	spaceRuns       = regexp.MustCompile(`\s{2,}`)
)

// CleanReply normalizes model output for WhatsApp: heading markers become
// dash bullets, parenthesized asides are dropped, anything outside
// letters/digits/whitespace/basic punctuation is stripped, and whitespace
// runs are collapsed.
func CleanReply(reply string) string {
	reply = headingMarkers.ReplaceAllString(reply, "- ")
	reply = parenthesized.ReplaceAllString(reply, "")
	reply = disallowedRunes.ReplaceAllString(reply, "")
	reply = newlineRuns.ReplaceAllString(reply, "\n")
	reply = spaceRuns.ReplaceAllString(reply, " ")
	return strings.TrimSpace(reply)
}

// Truncate caps a reply at the gateway limit, marking the cut with "...".
func Truncate(reply string) string {
	runes := []rune(reply)
	if len(runes) <= models.MaxReplyLength {
		return reply
	}
	return string(runes[:models.TruncatedReplyLength]) + "..."
}
