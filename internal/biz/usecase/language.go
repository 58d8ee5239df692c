package usecase

import "strings"

// Language is the detected reply language.
type Language string

const (
	LangEnglish  Language = "english"
	LangHindi    Language = "hindi"
	LangHinglish Language = "hinglish"
)

// Intent is the detected message intent, used to pick a fallback pool.
type Intent string

const (
	IntentPricing      Intent = "pricing"
	IntentLocation     Intent = "location"
	IntentThanks       Intent = "thanks"
	IntentAppreciation Intent = "appreciation"
	IntentQuestion     Intent = "question"
	IntentGeneric      Intent = "generic"
)

// hinglishWords are common Latin transliterations of Hindi. A message
// without Devanagari that contains any of these words is hinglish.
var hinglishWords = map[string]struct{}{
	"hai": {}, "hain": {}, "kya": {}, "kaise": {}, "kaisa": {}, "kaha": {},
	"kahan": {}, "nahi": {}, "nahin": {}, "acha": {}, "accha": {}, "theek": {},
	"thik": {}, "bhai": {}, "yaar": {}, "kitna": {}, "kitne": {}, "karo": {},
	"kar": {}, "hoga": {}, "mujhe": {}, "aap": {}, "tum": {}, "ho": {},
	"mast": {}, "bahut": {}, "bohot": {}, "chahiye": {}, "batao": {},
	"shukriya": {}, "dhanyavad": {}, "namaste": {},
}

// DetectLanguage classifies content as english, hindi or hinglish. Hindi is
// recognized by the Devanagari Unicode block; hinglish by a curated
// transliteration word list.
func DetectLanguage(content string) Language {
	for _, r := range content {
		if r >= 0x0900 && r <= 0x097F {
			return LangHindi
		}
	}
	for _, word := range strings.Fields(strings.ToLower(content)) {
		word = strings.Trim(word, ".,!?\"'")
		if _, ok := hinglishWords[word]; ok {
			return LangHinglish
		}
	}
	return LangEnglish
}

var (
	pricingWords      = []string{"price", "cost", "rate", "charge", "how much", "kitna", "kitne", "paisa", "paise"}
	locationWords     = []string{"where", "location", "address", "kahan", "kaha", "shop", "store"}
	thanksWords       = []string{"thank", "thanks", "thx", "shukriya", "dhanyavad"}
	appreciationWords = []string{"nice", "great", "awesome", "amazing", "love", "beautiful", "mast", "superb", "wow"}
	questionWords     = []string{"how", "what", "why", "when", "which", "kya", "kaise", "kab"}
)

// DetectIntent classifies content into a fallback-pool intent.
func DetectIntent(content string) Intent {
	lower := strings.ToLower(content)

	switch {
	case containsAny(lower, pricingWords):
		return IntentPricing
	case containsAny(lower, locationWords):
		return IntentLocation
	case containsAny(lower, thanksWords):
		return IntentThanks
	case containsAny(lower, appreciationWords):
		return IntentAppreciation
	case strings.Contains(lower, "?") || containsAny(lower, questionWords):
		return IntentQuestion
	default:
		return IntentGeneric
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
