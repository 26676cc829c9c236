package nlu

import "testing"

func TestIsHinglish(t *testing.T) {
	cases := []struct {
		text     string
		expected bool
	}{
		{"mujhe bukhar hai", true},
		{"kya ye dawa theek hai", true},
		{"what is diabetes", false},
		{"doctor appointment", false}, // single lexicon hit is not enough
		{"", false},
	}
	for _, c := range cases {
		if got := IsHinglish(c.text); got != c.expected {
			t.Errorf("IsHinglish(%q) = %v, want %v", c.text, got, c.expected)
		}
	}
}

func TestMapLanguageCodeToName(t *testing.T) {
	cases := []struct {
		code     string
		hinglish bool
		expected string
	}{
		{"hi", false, "Hindi"},
		{"bn", false, "Bengali"},
		{"ta", false, "Tamil"},
		{"te", false, "Telugu"},
		{"gu", false, "Gujarati"},
		{"mr", false, "Marathi"},
		{"en", false, "English"},
		{"fr", false, "English"},
		{"", false, "English"},
		// Hinglish override wins regardless of the reported code.
		{"hi", true, "Hinglish"},
		{"en", true, "Hinglish"},
	}
	for _, c := range cases {
		if got := MapLanguageCodeToName(c.code, c.hinglish); got != c.expected {
			t.Errorf("MapLanguageCodeToName(%q, %v) = %q, want %q", c.code, c.hinglish, got, c.expected)
		}
	}
}

func TestParseClassifierOutput(t *testing.T) {
	out, err := parseClassifierOutput(`{"intent":"Disease Info","fulfillmentText":"","languageCode":"hi"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Intent != "Disease Info" || out.LanguageCode != "hi" {
		t.Errorf("unexpected output: %+v", out)
	}
}

func TestParseClassifierOutputCodeFence(t *testing.T) {
	out, err := parseClassifierOutput("```json\n{\"intent\":\"Symptom Checker\",\"fulfillmentText\":\"\",\"languageCode\":\"en\"}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Intent != "Symptom Checker" {
		t.Errorf("unexpected intent: %q", out.Intent)
	}
}

func TestParseClassifierOutputInvalid(t *testing.T) {
	if _, err := parseClassifierOutput("not json at all"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestNewOpenAIClassifierMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewOpenAIClassifier(); err == nil {
		t.Error("expected error when API key is missing")
	}
}
