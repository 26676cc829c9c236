package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/swasthya/healthassist/internal/messaging"
	"github.com/swasthya/healthassist/internal/models"
	"github.com/swasthya/healthassist/internal/nlu"
	"github.com/swasthya/healthassist/internal/pipeline"
	"github.com/swasthya/healthassist/internal/store"
	"github.com/swasthya/healthassist/internal/twilioclient"
)

type stubGenerator struct {
	medical  string
	disease  string
	language string
	reply    string
	replyErr error
}

func (g *stubGenerator) Query(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.HasPrefix(prompt, "Is this query health-related"):
		return g.medical, nil
	case strings.HasPrefix(prompt, "Extract the main disease"):
		return g.disease, nil
	case strings.HasPrefix(prompt, "Detect the language"):
		return g.language, nil
	default:
		return g.reply, g.replyErr
	}
}

type stubClassifier struct{}

func (stubClassifier) Classify(ctx context.Context, text, sessionID string) nlu.Result {
	return nlu.Result{Intent: models.IntentDiseaseInfo, Language: "English"}
}

func newTestServer(gen *stubGenerator) (*Server, *store.InMemoryStore, *twilioclient.MockClient) {
	st := store.NewInMemoryStore()
	mock := twilioclient.NewMockClient()
	dispatcher := messaging.NewTwilioDispatcher(mock,
		messaging.WithWhatsAppFrom("whatsapp:+15550001111"),
		messaging.WithSMSFrom("+15550002222"),
		messaging.WithDryRun(false))
	p := pipeline.New(st, gen, stubClassifier{}, dispatcher, nil)
	return NewServer(":0", p, st), st, mock
}

func postForm(handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRootBanner(t *testing.T) {
	s, _, _ := newTestServer(&stubGenerator{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "HealthAssist") {
		t.Errorf("unexpected banner response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, _, _ := newTestServer(&stubGenerator{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["status"] != "ok" {
		t.Errorf("unexpected health body: %q", rec.Body.String())
	}
}

func TestWebhookEndpoint(t *testing.T) {
	s, st, _ := newTestServer(&stubGenerator{medical: "true", disease: "dengue", language: "English", reply: "- Dengue info."})
	payload := `{"queryResult":{"queryText":"dengue","intent":{"displayName":"Disease Info"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.WebhookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.FulfillmentText != "- Dengue info." {
		t.Errorf("unexpected fulfillment %q", resp.FulfillmentText)
	}
	convs, _ := st.GetConversations()
	if len(convs) != 1 || convs[0].Source != models.SourceWebhook {
		t.Error("webhook conversation not persisted")
	}
}

func TestWebhookInvalidJSON(t *testing.T) {
	s, _, _ := newTestServer(&stubGenerator{})
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp models.WebhookResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.FulfillmentText != pipeline.WebhookErrorText {
		t.Errorf("unexpected error fulfillment %q", resp.FulfillmentText)
	}
}

func TestWhatsAppEndpoint(t *testing.T) {
	s, st, mock := newTestServer(&stubGenerator{medical: "true", disease: "dengue", reply: "- Dengue spreads via mosquitoes."})
	rec := postForm(s.Handler(), "/whatsapp", url.Values{
		"From": {"whatsapp:+15551234567"},
		"To":   {"whatsapp:+15550001111"},
		"Body": {"what is dengue"},
	})
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected response: %d %q", rec.Code, rec.Body.String())
	}
	convs, _ := st.GetConversations()
	if len(convs) != 1 {
		t.Fatalf("expected one conversation, got %d", len(convs))
	}
	if len(mock.SentMessages) != 1 {
		t.Errorf("expected one outbound message, got %d", len(mock.SentMessages))
	}
}

func TestWhatsAppEndpointErrorSendsApology(t *testing.T) {
	gen := &stubGenerator{medical: "true", disease: "dengue", replyErr: fmt.Errorf("gemini down")}
	s, st, mock := newTestServer(gen)
	rec := postForm(s.Handler(), "/whatsapp", url.Values{
		"From": {"whatsapp:+15551234567"},
		"To":   {"whatsapp:+15550001111"},
		"Body": {"what is dengue"},
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Server error") {
		t.Errorf("unexpected error body %q", rec.Body.String())
	}
	if len(mock.SentMessages) != 1 || !strings.Contains(mock.SentMessages[0].Body, "having trouble") {
		t.Errorf("expected apology send, got %+v", mock.SentMessages)
	}
	convs, _ := st.GetConversations()
	if len(convs) != 0 {
		t.Error("failed turn must not be persisted")
	}
}

func TestSMSEndpointEmptyBody(t *testing.T) {
	s, st, mock := newTestServer(&stubGenerator{})
	rec := postForm(s.Handler(), "/sms", url.Values{
		"From": {"+15551234567"},
		"To":   {"+15550002222"},
		"Body": {""},
	})
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected response: %d %q", rec.Code, rec.Body.String())
	}
	convs, _ := st.GetConversations()
	if len(convs) != 0 || len(mock.SentMessages) != 0 {
		t.Error("empty SMS must be acknowledged without side effects")
	}
}

func TestStatsEndpoint(t *testing.T) {
	s, st, _ := newTestServer(&stubGenerator{})
	st.AddConversation(models.Conversation{
		Source:   models.SourceSMS,
		From:     "+1",
		Query:    "q",
		Intent:   models.IntentDiseaseInfo,
		Language: "English",
	})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/advanced", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var report models.StatsReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if report.TotalMessages != 1 || report.Users.SMS != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(&stubGenerator{})
	for _, path := range []string{"/webhook", "/whatsapp", "/sms"} {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: expected 405, got %d", path, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stats/advanced", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /stats/advanced: expected 405, got %d", rec.Code)
	}
}
