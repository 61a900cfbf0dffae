package crisis

// patternSet holds the phrase lists for one language. Crisis phrases signal
// self-harm intent, suicidal ideation or explicit finality; elevated phrases
// signal acute distress that deserves a softer flag. Entries must be
// lowercase, matching happens against the lowercased utterance.
type patternSet struct {
	crisis   []string
	elevated []string
}

// patternsByLanguage maps normalized language codes to their phrase sets.
// Languages without an entry fall back to the default set at classify time.
var patternsByLanguage = map[string]patternSet{
	"en": {
		crisis: []string{
			"suicide", "suicidal", "kill myself", "end my life", "take my own life",
			"want to die", "wanna die", "hurt myself", "harm myself", "self harm",
			"self-harm", "cut myself", "better off dead", "no reason to live",
			"nothing to live for", "end it all", "don't want to live",
			"dont want to live", "can't take it anymore", "cant take it anymore",
			"give up on life",
		},
		elevated: []string{
			"panic attack", "panicking", "can't breathe", "cant breathe",
			"overwhelmed", "hopeless", "worthless", "falling apart", "can't cope",
			"cant cope", "so scared", "terrified", "breaking down", "can't sleep at all",
		},
	},
	// Hindi keeps both Devanagari and the romanized spellings users commonly
	// type on phone keyboards.
	"hi": {
		crisis: []string{
			"khudkushi", "aatmahatya", "marna chahta", "marna chahti",
			"mar jaana chahta", "mar jaana chahti", "jaan dena", "jaan de dunga",
			"jaan de dungi", "zindagi khatam", "jeena nahi chahta", "jeena nahi chahti",
			"khud ko nuksan",
			"आत्महत्या", "खुदकुशी", "मरना चाहता", "मरना चाहती", "जान देना",
			"ज़िंदगी खत्म", "जीना नहीं चाहता", "जीना नहीं चाहती",
		},
		elevated: []string{
			"ghabrahat", "dar lag raha", "bahut pareshan", "himmat nahi",
			"toot gaya", "toot gayi",
			"घबराहट", "डर लग रहा", "बहुत परेशान", "टूट गया", "टूट गयी",
		},
	},
	"es": {
		crisis: []string{
			"suicid", "matarme", "quitarme la vida", "quiero morir",
			"hacerme daño", "no quiero vivir", "acabar con todo", "cortarme",
		},
		elevated: []string{
			"ataque de pánico", "ataque de panico", "no puedo respirar",
			"no puedo más", "no puedo mas", "desesperado", "desesperada",
			"sin esperanza", "me siento inútil", "me siento inutil",
		},
	},
}
