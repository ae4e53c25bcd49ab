// Package detect classifies text into one of the supported languages by
// Unicode script membership.
package detect

import (
	"strings"
	"unicode"

	"github.com/MeKo-Tech/lotra/internal/lang"
	"golang.org/x/text/unicode/norm"
)

// Profile holds per-script character counts for a piece of text.
type Profile struct {
	Hangul  int `json:"hangul"`
	Kana    int `json:"kana"`
	Han     int `json:"han"`
	Latin   int `json:"latin"`
	Other   int `json:"other"`
	Letters int `json:"letters"`
}

// Scan counts script membership of every rune in s after NFC normalization.
func Scan(s string) Profile {
	var p Profile
	for _, r := range norm.NFC.String(s) {
		if unicode.IsLetter(r) {
			p.Letters++
		}
		switch {
		case isHangul(r):
			p.Hangul++
		case isKana(r):
			p.Kana++
		case unicode.Is(unicode.Han, r):
			p.Han++
		case unicode.Is(unicode.Latin, r):
			p.Latin++
		case unicode.IsLetter(r):
			p.Other++
		}
	}
	return p
}

// Language returns the language implied by the profile. Scripts are checked
// in a fixed priority order and the first match wins.
func (p Profile) Language() lang.Code {
	switch {
	case p.Hangul > 0:
		return lang.Korean
	case p.Kana > 0:
		return lang.Japanese
	case p.Han > 0:
		return lang.Chinese
	default:
		return lang.English
	}
}

// Detect returns the language of s, or lang.Unknown for empty or
// whitespace-only input.
//
// Hangul wins over kana, kana over bare ideographs, and anything else is
// treated as English. Mixed-script text is classified by that order, not by
// majority.
func Detect(s string) lang.Code {
	if strings.TrimSpace(s) == "" {
		return lang.Unknown
	}
	return Scan(s).Language()
}

func isHangul(r rune) bool {
	return unicode.Is(unicode.Hangul, r)
}

// isKana covers Hiragana, Katakana, the phonetic extensions and halfwidth
// forms. The prolonged sound mark U+30FC is Common script but only appears in
// Japanese text.
func isKana(r rune) bool {
	return unicode.In(r, unicode.Hiragana, unicode.Katakana) || r == 'ー' || r == 'ｰ'
}
