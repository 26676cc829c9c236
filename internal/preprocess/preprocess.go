// Package preprocess normalizes inbound messages before they enter the
// conversation pipeline: address canonicalization, voice-request detection,
// and text sanitization for speech synthesis.
package preprocess

import (
	"regexp"
	"strings"
)

var (
	nonDigitRegex = regexp.MustCompile(`\D+`)

	// voiceKeywordRegex matches the fixed multilingual set of markers a user
	// sends to request a spoken reply.
	voiceKeywordRegex = regexp.MustCompile(`(?i)voice|audio|bol ke|bolo|awaaz|sunao|सुनाओ|🔊|🎤`)

	speechAllowRegex    = regexp.MustCompile(`[^\p{L}\p{N}\s.,?!]`)
	leadingBulletRegex  = regexp.MustCompile(`(?m)^- `)
	multiNewlineRegex   = regexp.MustCompile(`[\r\n]{2,}`)
	multiSpaceRegex     = regexp.MustCompile(`\s{2,}`)
	whatsAppPrefixRegex = regexp.MustCompile(`^whatsapp:`)
)

// NormalizeWhatsAppNumber canonicalizes a gateway address to the
// "whatsapp:+<digits>" form. All non-digit characters are stripped; digit
// order is preserved. Empty input yields the bare "whatsapp:+" prefix, an
// edge case rather than an error.
func NormalizeWhatsAppNumber(number string) string {
	num := whatsAppPrefixRegex.ReplaceAllString(number, "")
	num = nonDigitRegex.ReplaceAllString(num, "")
	return "whatsapp:+" + num
}

// VoiceRequest is the result of scanning a message for voice markers.
type VoiceRequest struct {
	CleanedText string
	WantsVoice  bool
}

// DetectVoiceRequest checks the message for a voice-intent keyword. The
// first match is removed from the text and WantsVoice is set; otherwise the
// text is returned unchanged.
func DetectVoiceRequest(msg string) VoiceRequest {
	loc := voiceKeywordRegex.FindStringIndex(msg)
	if loc == nil {
		return VoiceRequest{CleanedText: msg}
	}
	cleaned := strings.TrimSpace(msg[:loc[0]] + msg[loc[1]:])
	return VoiceRequest{CleanedText: cleaned, WantsVoice: true}
}

// SanitizeForSpeech strips characters a speech synthesizer cannot voice,
// converts leading dash bullets to line breaks, and collapses repeated
// whitespace.
func SanitizeForSpeech(text string) string {
	if text == "" {
		return ""
	}
	out := leadingBulletRegex.ReplaceAllString(text, "\n")
	out = speechAllowRegex.ReplaceAllString(out, "")
	out = multiNewlineRegex.ReplaceAllString(out, "\n")
	out = multiSpaceRegex.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
