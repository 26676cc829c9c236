package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/swasthya/healthassist/internal/messaging"
	"github.com/swasthya/healthassist/internal/twilioclient"
)

func TestMapLanguageToTTSCode(t *testing.T) {
	cases := []struct {
		language string
		expected string
	}{
		{"Hindi", "hi"},
		{"hinglish", "hi"},
		{"Odia", "or"},
		{"English", "en"},
		{"Tamil", "en"},
		{"", "en"},
	}
	for _, c := range cases {
		if got := MapLanguageToTTSCode(c.language); got != c.expected {
			t.Errorf("MapLanguageToTTSCode(%q) = %q, want %q", c.language, got, c.expected)
		}
	}
}

func TestNewGitHubUploaderMissingConfig(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITHUB_USERNAME", "")
	t.Setenv("GITHUB_REPO", "")
	if _, err := NewGitHubUploader(); err == nil {
		t.Error("expected error when token/owner/repo are missing")
	}
}

func TestNewGitHubUploaderBranchDefault(t *testing.T) {
	t.Setenv("GITHUB_BRANCH", "")
	u, err := NewGitHubUploader(WithToken("ghp_test"), WithRepository("alice", "voicenotes", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.branch != "main" {
		t.Errorf("expected branch to default to main, got %q", u.branch)
	}

	t.Setenv("GITHUB_BRANCH", "audio")
	u, err = NewGitHubUploader(WithToken("ghp_test"), WithRepository("alice", "voicenotes", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.branch != "audio" {
		t.Errorf("expected branch from environment, got %q", u.branch)
	}
}

func TestGitHubUploaderUpload(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody uploadRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"content":{}}`))
	}))
	defer server.Close()

	u, err := NewGitHubUploader(
		WithToken("ghp_test"),
		WithRepository("alice", "voicenotes", "main"),
		WithUploadBaseURL(server.URL, "https://raw.example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	url, err := u.Upload(context.Background(), "voice-abc.ogg", []byte("opus-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/repos/alice/voicenotes/contents/voice-abc.ogg" {
		t.Errorf("unexpected API path %q", gotPath)
	}
	if gotAuth != "Bearer ghp_test" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	decoded, _ := base64.StdEncoding.DecodeString(gotBody.Content)
	if string(decoded) != "opus-bytes" {
		t.Errorf("uploaded content not base64 of audio bytes: %q", gotBody.Content)
	}
	if gotBody.Branch != "main" {
		t.Errorf("unexpected branch %q", gotBody.Branch)
	}
	if url != "https://raw.example.com/alice/voicenotes/main/voice-abc.ogg" {
		t.Errorf("unexpected raw URL %q", url)
	}
}

func TestGitHubUploaderUploadRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer server.Close()

	u, err := NewGitHubUploader(
		WithToken("bad"),
		WithRepository("alice", "voicenotes", "main"),
		WithUploadBaseURL(server.URL, "https://raw.example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := u.Upload(context.Background(), "voice-abc.ogg", []byte("x")); err == nil {
		t.Error("expected error on rejected upload")
	}
}

type fakeSynth struct {
	audio    []byte
	err      error
	lastLang string
	lastText string
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	f.lastText = text
	f.lastLang = lang
	return f.audio, f.err
}

type fakeUploader struct {
	url string
	err error
}

func (f *fakeUploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	return f.url, f.err
}

func newTestDispatcher(mock *twilioclient.MockClient) messaging.Dispatcher {
	return messaging.NewTwilioDispatcher(mock,
		messaging.WithWhatsAppFrom("whatsapp:+15550001111"),
		messaging.WithDryRun(false))
}

func TestVoiceSenderDeliversMedia(t *testing.T) {
	mock := twilioclient.NewMockClient()
	synth := &fakeSynth{audio: []byte("opus")}
	v := NewVoiceSender(synth, &fakeUploader{url: "https://raw.example.com/v.ogg"}, newTestDispatcher(mock), t.TempDir())

	err := v.Send(context.Background(), "whatsapp:+15559998888", "- Dengue spreads through mosquito bites.", "Hindi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.MediaMessages) != 1 || mock.MediaMessages[0].URL != "https://raw.example.com/v.ogg" {
		t.Fatal("expected one media dispatch")
	}
	if len(mock.SentMessages) != 0 {
		t.Error("no text fallback expected on success")
	}
	if synth.lastLang != "hi" {
		t.Errorf("expected hi voice for Hindi, got %q", synth.lastLang)
	}
	if strings.Contains(synth.lastText, "-") {
		t.Errorf("speech text not sanitized: %q", synth.lastText)
	}
}

func TestVoiceSenderFallsBackOnSynthesisFailure(t *testing.T) {
	mock := twilioclient.NewMockClient()
	synth := &fakeSynth{err: fmt.Errorf("tts unavailable")}
	v := NewVoiceSender(synth, &fakeUploader{url: "unused"}, newTestDispatcher(mock), t.TempDir())

	err := v.Send(context.Background(), "whatsapp:+15559998888", "Dengue causes fever.", "English")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.SentMessages) != 1 || mock.SentMessages[0].Body != "Dengue causes fever." {
		t.Error("expected text fallback carrying the original reply")
	}
	if len(mock.MediaMessages) != 0 {
		t.Error("no media expected when synthesis fails")
	}
}

func TestVoiceSenderFallsBackOnUploadFailure(t *testing.T) {
	mock := twilioclient.NewMockClient()
	v := NewVoiceSender(&fakeSynth{audio: []byte("opus")}, &fakeUploader{err: fmt.Errorf("upload down")}, newTestDispatcher(mock), t.TempDir())

	if err := v.Send(context.Background(), "whatsapp:+2", "Wash hands often.", "English"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.SentMessages) != 1 {
		t.Error("expected text fallback when upload fails")
	}
}

func TestVoiceSenderRejectsOverlongSpeech(t *testing.T) {
	mock := twilioclient.NewMockClient()
	synth := &fakeSynth{audio: []byte("opus")}
	v := NewVoiceSender(synth, &fakeUploader{url: "unused"}, newTestDispatcher(mock), t.TempDir())

	long := strings.Repeat("a", maxSpeechLength+1)
	if err := v.Send(context.Background(), "whatsapp:+2", long, "English"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if synth.lastText != "" {
		t.Error("synthesizer must not be called for overlong text")
	}
	if len(mock.SentMessages) != 1 {
		t.Error("expected text fallback for overlong text")
	}
}
