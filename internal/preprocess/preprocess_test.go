package preprocess

import (
	"regexp"
	"strings"
	"testing"
)

func TestNormalizeWhatsAppNumber(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"whatsapp:+15551234567", "whatsapp:+15551234567"},
		{"+1 (555) 123-4567", "whatsapp:+15551234567"},
		{"whatsapp:911234567890", "whatsapp:+911234567890"},
		{"abc", "whatsapp:+"},
		{"", "whatsapp:+"},
	}
	for _, c := range cases {
		if got := NormalizeWhatsAppNumber(c.in); got != c.expected {
			t.Errorf("NormalizeWhatsAppNumber(%q) = %q, want %q", c.in, got, c.expected)
		}
	}
}

func TestNormalizeWhatsAppNumberPattern(t *testing.T) {
	// Non-empty input always matches whatsapp:+<digits>* with digits in order.
	pattern := regexp.MustCompile(`^whatsapp:\+\d*$`)
	inputs := []string{"whatsapp:+1", "weird input 42", "+44 7700 900123", "----"}
	for _, in := range inputs {
		got := NormalizeWhatsAppNumber(in)
		if !pattern.MatchString(got) {
			t.Errorf("NormalizeWhatsAppNumber(%q) = %q does not match prefix+digits pattern", in, got)
		}
	}
}

func TestDetectVoiceRequest(t *testing.T) {
	r := DetectVoiceRequest("sunao diabetes")
	if !r.WantsVoice {
		t.Error("expected WantsVoice=true for \"sunao diabetes\"")
	}
	if r.CleanedText != "diabetes" {
		t.Errorf("expected cleaned text \"diabetes\", got %q", r.CleanedText)
	}
}

func TestDetectVoiceRequestCaseInsensitive(t *testing.T) {
	r := DetectVoiceRequest("VOICE please tell me about flu")
	if !r.WantsVoice {
		t.Error("expected WantsVoice=true")
	}
	if strings.Contains(strings.ToLower(r.CleanedText), "voice") {
		t.Errorf("keyword not stripped: %q", r.CleanedText)
	}
}

func TestDetectVoiceRequestEmoji(t *testing.T) {
	r := DetectVoiceRequest("🔊 malaria symptoms")
	if !r.WantsVoice {
		t.Error("expected WantsVoice=true for speaker emoji")
	}
	if r.CleanedText != "malaria symptoms" {
		t.Errorf("expected \"malaria symptoms\", got %q", r.CleanedText)
	}
}

func TestDetectVoiceRequestNoMatch(t *testing.T) {
	msg := "what is asthma"
	r := DetectVoiceRequest(msg)
	if r.WantsVoice {
		t.Error("expected WantsVoice=false")
	}
	if r.CleanedText != msg {
		t.Errorf("text should be unchanged, got %q", r.CleanedText)
	}
}

func TestSanitizeForSpeech(t *testing.T) {
	in := "- Drink fluids *daily*\n- Rest #well\n\n\nSee a doctor, ok?"
	out := SanitizeForSpeech(in)
	if strings.ContainsAny(out, "*#") {
		t.Errorf("special characters not stripped: %q", out)
	}
	if strings.Contains(out, "\n\n") {
		t.Errorf("repeated newlines not collapsed: %q", out)
	}
	if !strings.Contains(out, "Drink fluids daily") {
		t.Errorf("content lost: %q", out)
	}
}

func TestSanitizeForSpeechEmpty(t *testing.T) {
	if got := SanitizeForSpeech(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
