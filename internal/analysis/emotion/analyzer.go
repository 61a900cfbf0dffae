package emotion

import "strings"

// Mood labels the dominant feeling detected in an utterance.
type Mood string

const (
	Calm    Mood = "calm"
	Anxious Mood = "anxious"
	Sad     Mood = "sad"
	Angry   Mood = "angry"
	Hopeful Mood = "hopeful"
)

// Decision carries the detected mood, a 1-5 intensity scale and the raw
// keyword score behind it.
type Decision struct {
	Mood  Mood
	Scale float32
	Score int
}

// moodOrder fixes the tie-break so scoring stays deterministic.
var moodOrder = []Mood{Anxious, Sad, Angry, Hopeful}

// Buckets mix English with the Hindi and Spanish words users type most; the
// same utterance feeds the crisis classifier separately, so these lists only
// need to steer tone, not safety.
var keywordBuckets = map[Mood][]string{
	Anxious: {
		"anxious", "anxiety", "nervous", "worried", "worry", "panic", "scared",
		"afraid", "fear", "restless", "on edge", "overthinking", "stressed",
		"ghabrahat", "चिंता", "डर", "घबराहट", "nervioso", "nerviosa", "ansiedad", "miedo",
	},
	Sad: {
		"sad", "unhappy", "depressed", "feeling down", "lonely", "alone",
		"crying", "cried", "want to cry", "miserable", "empty", "feel numb",
		"heartbroken", "hopeless", "worthless", "udaas", "akela", "उदास",
		"अकेला", "रोना", "triste", "deprimido", "deprimida",
	},
	Angry: {
		"angry", "furious", "frustrated", "annoyed", "irritated", "fed up",
		"hate", "rage", "gussa", "गुस्सा", "नाराज़", "enojado", "enojada",
		"furioso", "furiosa", "harto", "harta",
	},
	Hopeful: {
		"hopeful", "feeling better", "getting better", "much better", "glad",
		"grateful", "thankful", "relieved", "calmer", "proud of myself",
		"accha lag raha", "बेहतर", "खुश", "mejor", "agradecido", "agradecida", "feliz",
	},
}

// Analyze infers the mood of one utterance. Calm is the resting default; the
// result depends only on the text so repeated calls always agree.
func Analyze(text string) Decision {
	scored := scoreText(text)
	if scored.Score == 0 {
		return Decision{Mood: Calm, Scale: 2}
	}

	scale := 2 + float32(scored.Score)/4
	if scale > 5 {
		scale = 5
	}
	if scale < 1 {
		scale = 1
	}

	return Decision{Mood: scored.Mood, Scale: scale, Score: scored.Score}
}

func scoreText(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Mood: Calm}
	}

	scores := make(map[Mood]int)
	for mood, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[mood] += 3
			}
		}
	}

	// Repeated exclamation marks read as agitation in this setting.
	if bangs := strings.Count(text, "!"); bangs >= 2 {
		scores[Anxious] += 2
	}

	best := Calm
	bestScore := 0
	for _, mood := range moodOrder {
		if s := scores[mood]; s > bestScore {
			bestScore = s
			best = mood
		}
	}

	return Decision{Mood: best, Score: bestScore}
}
