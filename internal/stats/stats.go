// Package stats aggregates conversation and latency logs into the
// advanced statistics report.
package stats

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/swasthya/healthassist/internal/models"
)

// ToPercentages formats raw counts as one-decimal percentage strings of
// total. A zero total yields an empty map.
func ToPercentages(counts map[string]int, total int) map[string]string {
	out := make(map[string]string, len(counts))
	if total <= 0 {
		return out
	}
	for key, count := range counts {
		out[key] = fmt.Sprintf("%.1f%%", float64(count)/float64(total)*100)
	}
	return out
}

// Aggregate builds the statistics report from the full conversation and AI
// latency logs. All percentages are taken against the grand message total.
func Aggregate(convs []models.Conversation, logs []models.AILogEntry, now time.Time) models.StatsReport {
	total := len(convs)

	languages := make(map[string]int)
	intents := make(map[string]int)
	whatsappUsers := make(map[string]struct{})
	smsUsers := make(map[string]struct{})
	var voice, text, last24h int

	cutoff := now.Add(-24 * time.Hour).UnixMilli()
	for _, c := range convs {
		lang := strings.TrimSpace(c.Language)
		if lang != "" && !strings.EqualFold(lang, "unknown") {
			languages[lang]++
		}
		if c.Intent != "" && c.Intent != models.IntentUnknown && c.Intent != models.IntentFallback {
			intents[c.Intent]++
		}

		switch normalizeSource(c.Source) {
		case models.SourceWhatsApp:
			whatsappUsers[c.From] = struct{}{}
			// Only replies explicitly requested as voice count as voice;
			// audio, empty and any other type default to text.
			if c.Reply.Type == models.ReplyTypeVoice {
				voice++
			} else {
				text++
			}
		case models.SourceSMS:
			smsUsers[c.From] = struct{}{}
		}

		if c.Timestamp >= cutoff {
			last24h++
		}
	}

	var avg float64
	if len(logs) > 0 {
		var sum float64
		for _, e := range logs {
			sum += e.ResponseTimeMs
		}
		avg = math.Round(sum/float64(len(logs))*100) / 100
	}

	report := models.StatsReport{
		TotalMessages:        total,
		LanguageDistribution: ToPercentages(languages, total),
		IntentDistribution:   ToPercentages(intents, total),
		Users: models.UserCounts{
			WhatsApp: len(whatsappUsers),
			SMS:      len(smsUsers),
		},
		WhatsAppVoiceText: models.VoiceTextSplit{Voice: voice, Text: text},
		Last24hMessages:   last24h,
		AvgResponseTimeMs: avg,
	}
	slog.Debug("stats.Aggregate: report built",
		"totalMessages", total,
		"last24h", last24h,
		"avgResponseTimeMs", avg)
	return report
}

// Source labels are matched case-insensitively.
func normalizeSource(s models.Source) models.Source {
	return models.Source(strings.ToLower(string(s)))
}
