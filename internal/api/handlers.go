package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/swasthya/healthassist/internal/models"
	"github.com/swasthya/healthassist/internal/pipeline"
	"github.com/swasthya/healthassist/internal/stats"
)

const bannerText = "✅ HealthAssist server running with Gemini 2.5 API!"

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Write([]byte(bannerText))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// webhookHandler serves the Dialogflow-shaped webhook channel.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Server.webhookHandler: invalid JSON body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.WebhookResponse{FulfillmentText: pipeline.WebhookErrorText})
		return
	}

	resp, err := s.pipeline.HandleWebhook(r.Context(), req)
	if err != nil {
		slog.Error("Server.webhookHandler: pipeline failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.WebhookResponse{FulfillmentText: pipeline.WebhookErrorText})
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// whatsAppHandler serves Twilio's WhatsApp webhook (form-encoded).
func (s *Server) whatsAppHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Error("Server.whatsAppHandler: failed to parse form", "error", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	from := r.FormValue("From")
	to := r.FormValue("To")
	body := r.FormValue("Body")

	if err := s.pipeline.HandleWhatsApp(r.Context(), from, to, body); err != nil {
		slog.Error("Server.whatsAppHandler: pipeline failed", "error", err, "from", from)
		s.pipeline.SendApology(r.Context(), from)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	w.Write([]byte("OK"))
}

// smsHandler serves Twilio's SMS webhook (form-encoded).
func (s *Server) smsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Error("Server.smsHandler: failed to parse form", "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}

	if err := s.pipeline.HandleSMS(r.Context(), r.FormValue("From"), r.FormValue("To"), r.FormValue("Body")); err != nil {
		slog.Error("Server.smsHandler: pipeline failed", "error", err)
		http.Error(w, "Error", http.StatusInternalServerError)
		return
	}
	w.Write([]byte("OK"))
}

// statsHandler serves the aggregated statistics report.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	convs, err := s.store.GetConversations()
	if err != nil {
		slog.Error("Server.statsHandler: failed to load conversations", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to aggregate statistics"))
		return
	}
	logs, err := s.store.GetAILogs()
	if err != nil {
		slog.Error("Server.statsHandler: failed to load AI logs", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to aggregate statistics"))
		return
	}
	writeJSONResponse(w, http.StatusOK, stats.Aggregate(convs, logs, time.Now()))
}
