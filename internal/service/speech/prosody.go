package speech

import (
	"github.com/sahara-labs/sahara/backend/internal/analysis/emotion"
	"github.com/sahara-labs/sahara/backend/internal/model/speech"
)

// ProsodyForMood maps a detected mood onto voice adjustments for synthesis.
// The shifts are deliberately small; anything stronger sounds theatrical in
// a support conversation.
func ProsodyForMood(mood emotion.Mood) speech.Prosody {
	switch mood {
	case emotion.Anxious, emotion.Angry:
		// Slower and lower reads as steady rather than alarmed.
		return speech.Prosody{Rate: "-5%", Pitch: "-5Hz"}
	case emotion.Sad:
		return speech.Prosody{Rate: "-3%", Pitch: "-5Hz"}
	case emotion.Hopeful:
		return speech.Prosody{Rate: "+3%", Pitch: "+5Hz"}
	default:
		return speech.Prosody{}
	}
}
