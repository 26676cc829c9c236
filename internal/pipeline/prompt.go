package pipeline

import (
	"fmt"
	"strings"

	"github.com/swasthya/healthassist/internal/models"
)

const fallbackPromptTemplate = `You are a multilingual, concise health assistant.

Conversation context:
The recent topic is: %s

Rules:
- Words like "it", "its", "this", "isse", "iska" refer to the recent topic above.
- If the user message contains a disease name directly (for example: "adhd?", "diabetes", "asthma?"), ALWAYS give a brief definition of that disease.
- If the recent topic is unknown AND no disease name is mentioned, say information is unclear.

User message:
"%s"

Intent (context only):
%s

Your task:
1. Automatically detect the user's language and writing script.
2. Reply in the SAME language and SAME script.

STRICT language/script rules:
- English → English (Latin script)
- Hindi → Hindi (Devanagari script)
- Hinglish → Hinglish (Latin script only)
- Odia → Odia (Odia script only)

Response rules (must-follow):
- Do NOT translate the question
- Do NOT repeat or restate the question
- Do NOT add headings or titles
- Start directly with bullet points
- Always return at least one bullet point.
- Use dash (-) bullets ONLY
- Do NOT use #, *, _, parentheses, emojis, or markdown
- Keep under 80 words
- Be factual and concise
- If the information is unclear or unavailable, say so briefly in the SAME language`

const normalPromptTemplate = `You are a multilingual health assistant.

Conversation context:
The recent topic is: %s

Rules:
- Words like "it", "its", "this", "isse", "iska" refer to the recent topic above.
- If the user message contains a disease name directly (for example: "adhd?", "diabetes", "asthma?"), ALWAYS give a brief definition of that disease.
- If the recent topic is unknown AND no disease name is mentioned, say information is unclear.

User message:
"%s"

Task:
1. Automatically detect the user's language and writing script.
2. Reply in the SAME language and SAME script.
3. STRICT rules:
   - If English → reply in English (Latin script)
   - If Hindi → reply in Hindi (Devanagari)
   - If Hinglish → reply in Hinglish (Latin script only)
   - If Odia → reply in Odia (Odia script only)

Response rules:
- Do NOT translate the question
- Do NOT repeat or restate the question
- Do NOT add headings or titles
- Start directly with bullet points
- Always return at least one bullet point.
- Use dash (-) for bullets only
- No numbering, emojis, markdown, or symbols
- Max 80 words
- Be factual and concise
- If information is uncertain, say so briefly

Intent (for context only): %s`

// BuildPrompt renders the reply-generation prompt. The fallback variant is
// used for unmatched intents; both carry the topic context, the pronoun
// rule and the script-matching rules.
func BuildPrompt(msg, intent, topic string, fallback bool) string {
	if intent == "" {
		intent = models.IntentUnknown
	}
	if fallback {
		return fmt.Sprintf(fallbackPromptTemplate, topic, msg, intent)
	}
	return fmt.Sprintf(normalPromptTemplate, topic, msg, intent)
}

// webhookPrompt renders the per-intent prompt for the webhook channel, or
// "" when the intent has a canned answer instead.
func webhookPrompt(intent, queryText, language string) string {
	switch intent {
	case models.IntentDiseaseInfo:
		return fmt.Sprintf("Provide short, clear information about: %s. Respond in %s language.", queryText, language)
	case models.IntentPreventionTips:
		return fmt.Sprintf("Give prevention and lifestyle tips for: %s. Respond in %s language.", queryText, language)
	case models.IntentVaccineCheck:
		return fmt.Sprintf("Provide vaccination or awareness info for: %s. Respond in %s language.", queryText, language)
	case models.IntentSymptomChecker:
		return strings.TrimSpace(fmt.Sprintf(`User said: "%s". They might be describing symptoms.
Suggest general possible causes (not diagnosis) and mention when to see a doctor.
Respond in %s language.`, queryText, language))
	default:
		return ""
	}
}
