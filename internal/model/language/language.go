package language

// Language describes one supported conversation language and the neural
// voice used to synthesize replies in it.
type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	NativeName string `json:"nativeName"`
	Voice      string `json:"voice"`
}

// DefaultCode is the fallback for unknown or region-qualified codes.
const DefaultCode = "en"

// Supported lists the languages the assistant converses in.
func Supported() []Language {
	return []Language{
		{Code: "en", Name: "English", NativeName: "English", Voice: "en-US-AriaNeural"},
		{Code: "hi", Name: "Hindi", NativeName: "हिन्दी", Voice: "hi-IN-SwaraNeural"},
		{Code: "es", Name: "Spanish", NativeName: "Español", Voice: "es-ES-ElviraNeural"},
		{Code: "fr", Name: "French", NativeName: "Français", Voice: "fr-FR-DeniseNeural"},
		{Code: "de", Name: "German", NativeName: "Deutsch", Voice: "de-DE-KatjaNeural"},
		{Code: "it", Name: "Italian", NativeName: "Italiano", Voice: "it-IT-ElsaNeural"},
		{Code: "pt", Name: "Portuguese", NativeName: "Português", Voice: "pt-BR-FranciscaNeural"},
		{Code: "ja", Name: "Japanese", NativeName: "日本語", Voice: "ja-JP-NanamiNeural"},
		{Code: "ko", Name: "Korean", NativeName: "한국어", Voice: "ko-KR-SunHiNeural"},
		{Code: "zh", Name: "Chinese", NativeName: "中文", Voice: "zh-CN-XiaoxiaoNeural"},
	}
}
