package ai

import (
	"fmt"
	"strings"

	"github.com/sahara-labs/sahara/backend/internal/analysis/crisis"
	"github.com/sahara-labs/sahara/backend/internal/analysis/emotion"
	"github.com/sahara-labs/sahara/backend/internal/model/language"
)

// basePrompt frames every model call. The wording keeps the assistant in a
// supportive-listener role and out of diagnosis territory.
const basePrompt = `You are a compassionate and empathetic mental health support assistant for users primarily in India. Your role is to:

1. Listen actively and validate the user's feelings
2. Provide emotional support and encouragement
3. Ask thoughtful questions to help users explore their feelings
4. Suggest healthy coping strategies when appropriate
5. Be non-judgmental and create a safe space for sharing
6. Use a warm, conversational tone
7. Be culturally sensitive to Indian context, family dynamics, and social norms

Important guidelines:
- You are NOT a replacement for professional therapy or medical advice
- If someone expresses thoughts of self-harm or suicide, encourage them to seek immediate professional help from Indian crisis helplines
- Respect cultural differences, family values, and be inclusive
- Keep responses concise but meaningful, typically two to four sentences
- Mirror the user's language and communication style
- Be supportive without being patronizing
- Understand the stigma around mental health in India and be extra supportive

Your goal is to provide emotional support and be a caring listener, not to diagnose or treat mental health conditions.`

// buildSystemPrompt extends the base framing with the reply language and the
// per-turn mood and severity guidance.
func buildSystemPrompt(lang string, guidance *Guidance) string {
	var builder strings.Builder
	builder.WriteString(basePrompt)

	code := language.Normalize(lang)
	if code != language.DefaultCode {
		if l, ok := language.ByCode(code); ok {
			fmt.Fprintf(&builder, "\n\nPlease respond in %s.", l.Name)
		}
	}

	if guidance == nil {
		return builder.String()
	}

	if desc := describeMood(guidance.Mood.Mood); desc != "" {
		builder.WriteString("\n\nEmotional read of the user's current state: ")
		builder.WriteString(desc)
		fmt.Fprintf(&builder, " Intensity is about %.1f on a 1 to 5 scale.", guidance.Mood.Scale)
	}

	if guidance.Level == crisis.LevelElevated {
		builder.WriteString("\n\nThe user is showing signs of heightened distress. " +
			"Acknowledge how hard this moment feels, offer one simple grounding step such as a slow breath, " +
			"and gently remind them that crisis helplines exist if things get heavier.")
	}

	return builder.String()
}

func describeMood(mood emotion.Mood) string {
	switch mood {
	case emotion.Anxious:
		return "The user sounds anxious or on edge; keep your pace slow and steady, and help them feel grounded."
	case emotion.Sad:
		return "The user sounds low or sad; respond with extra warmth and gentle understanding."
	case emotion.Angry:
		return "The user sounds frustrated or angry; stay calm, validate the frustration, and avoid arguing."
	case emotion.Hopeful:
		return "The user sounds a little more hopeful; encourage that momentum without overdoing the positivity."
	case emotion.Calm:
		return "The user sounds settled; keep the tone natural and curious."
	default:
		return ""
	}
}
