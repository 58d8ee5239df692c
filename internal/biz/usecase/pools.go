package usecase

// ReplyPools holds the deterministic fallback replies, keyed by intent then
// language. Loaded defaults can be overridden per deployment via the YAML
// replies config.
type ReplyPools map[Intent]map[Language][]string

// Pick returns the pool for an intent/language pair, falling back to the
// generic intent and then to english so a reply always exists.
func (p ReplyPools) Pick(intent Intent, lang Language) []string {
	if byLang, ok := p[intent]; ok {
		if pool := byLang[lang]; len(pool) > 0 {
			return pool
		}
		if pool := byLang[LangEnglish]; len(pool) > 0 {
			return pool
		}
	}
	if byLang, ok := p[IntentGeneric]; ok {
		if pool := byLang[lang]; len(pool) > 0 {
			return pool
		}
		return byLang[LangEnglish]
	}
	return nil
}

// DefaultReplyPools are the built-in fallback replies.
var DefaultReplyPools = ReplyPools{
	IntentPricing: {
		LangEnglish:  {"DM me for prices 😊", "Just sent you the price list, check DM!", "Pricing depends on the piece, DM me!"},
		LangHindi:    {"कीमत के लिए DM करें 😊", "DM में price बता देंगे!"},
		LangHinglish: {"Price ke liye DM karo 😊", "DM me price bhej diya hai, check karo!", "Bhai DM karo, price bata denge!"},
	},
	IntentLocation: {
		LangEnglish:  {"We ship everywhere! DM for details 📦", "Based in Mumbai, shipping pan-India!"},
		LangHindi:    {"हम हर जगह भेजते हैं! DM करें 📦"},
		LangHinglish: {"Hum sab jagah bhejte hain! DM karo 📦", "Mumbai se hain, pure India me shipping!"},
	},
	IntentThanks: {
		LangEnglish:  {"You're welcome! 🙌", "Anytime! 💛", "Happy to help!"},
		LangHindi:    {"आपका स्वागत है! 🙌", "कभी भी! 💛"},
		LangHinglish: {"Arre koi baat nahi! 🙌", "Anytime yaar! 💛"},
	},
	IntentAppreciation: {
		LangEnglish:  {"Thank you so much! 💛", "That means a lot! 🙏", "Glad you liked it!"},
		LangHindi:    {"बहुत धन्यवाद! 💛", "शुक्रिया! 🙏"},
		LangHinglish: {"Shukriya yaar! 💛", "Thank you bhai! 🙏", "Khushi hui aapko pasand aaya!"},
	},
	IntentQuestion: {
		LangEnglish:  {"Good question! DM me and I'll explain 😊", "Let me get back to you in DM!"},
		LangHindi:    {"अच्छा सवाल! DM करें 😊"},
		LangHinglish: {"Acha sawaal! DM karo, batata hoon 😊", "DM me puchho, detail me bataunga!"},
	},
	IntentGeneric: {
		LangEnglish:  {"Thanks for reaching out! 😊", "Appreciate the message! 💛", "Noted! 🙌"},
		LangHindi:    {"संदेश के लिए धन्यवाद! 😊"},
		LangHinglish: {"Message ke liye thanks! 😊", "Sab badhiya! 🙌", "Theek hai bhai! 💛"},
	},
}
