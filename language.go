package voicelive

import "unicode"

// DetectLanguage tags a transcript by Unicode script membership. First
// matching character wins; Latin text falls through to English. This is a
// display hint, not a classifier.
func DetectLanguage(text string) string {
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			return "ZH"
		case unicode.Is(unicode.Tamil, r):
			return "TA"
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			return "JA"
		case unicode.Is(unicode.Hangul, r):
			return "KO"
		}
	}
	return "EN"
}
