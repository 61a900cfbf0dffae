package therapy

import "github.com/sahara-labs/sahara/backend/internal/model/language"

// Fixed texts for the two degraded paths: the model being unreachable and an
// inaudible voice utterance. Kept out of the model on purpose so a user in a
// bad moment always gets an answer.
var fallbackReplies = map[string]string{
	"en": "I'm here with you. I can't reach my full reply service right now, but I'm still listening. Tell me more about what's on your mind.",
	"hi": "मैं आपके साथ हूं। अभी मेरी पूरी जवाब सेवा उपलब्ध नहीं है, लेकिन मैं सुन रहा हूं। मुझे बताइए, आपके मन में क्या चल रहा है।",
	"es": "Estoy aquí contigo. Ahora mismo no puedo dar una respuesta completa, pero te sigo escuchando. Cuéntame más sobre lo que sientes.",
}

var retryPrompts = map[string]string{
	"en": "I couldn't quite hear that. Could you try saying it again?",
	"hi": "मैं ठीक से सुन नहीं पाया। क्या आप फिर से कह सकते हैं?",
	"es": "No pude escucharte bien. ¿Podrías repetirlo, por favor?",
}

func fallbackReply(lang string) string {
	if reply, ok := fallbackReplies[language.Normalize(lang)]; ok {
		return reply
	}
	return fallbackReplies[language.DefaultCode]
}

func retryPrompt(lang string) string {
	if prompt, ok := retryPrompts[language.Normalize(lang)]; ok {
		return prompt
	}
	return retryPrompts[language.DefaultCode]
}
