package detect

import (
	"testing"

	"github.com/MeKo-Tech/lotra/internal/lang"
	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"
)

func TestDetect_Basic(t *testing.T) {
	assert.Equal(t, lang.Korean, Detect("안녕하세요"))
	assert.Equal(t, lang.English, Detect("Hello"))
	assert.Equal(t, lang.Japanese, Detect("こんにちは"))
	assert.Equal(t, lang.Chinese, Detect("你好世界"))
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want lang.Code
	}{
		{"empty", "", lang.Unknown},
		{"spaces", "   ", lang.Unknown},
		{"tabs and newlines", "\t\n \r\n", lang.Unknown},
		{"hangul jamo", "ㅋㅋㅋ", lang.Korean},
		{"katakana only", "カタカナ", lang.Japanese},
		{"halfwidth katakana", "ｶﾀｶﾅ", lang.Japanese},
		{"prolonged sound mark", "ー", lang.Japanese},
		{"kanji with kana", "日本語を話します", lang.Japanese},
		{"traditional chinese", "謝謝你", lang.Chinese},
		{"digits only", "12345", lang.English},
		{"punctuation only", "?!...", lang.English},
		{"cyrillic falls back to english", "Привет", lang.English},
		{"hangul beats kana", "こんにちは 안녕", lang.Korean},
		{"hangul beats latin majority", "This is mostly English 네", lang.Korean},
		{"kana beats han", "漢字漢字漢字の", lang.Japanese},
		{"han beats latin", "Hello 世界", lang.Chinese},
		{"surrounding whitespace", "  hello  ", lang.English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.in))
		})
	}
}

func TestDetect_DecomposedHangul(t *testing.T) {
	decomposed := norm.NFD.String("한국어")
	assert.Equal(t, lang.Korean, Detect(decomposed))
}

func TestScan(t *testing.T) {
	p := Scan("Hi 안녕 こん 字")
	assert.Equal(t, 2, p.Hangul)
	assert.Equal(t, 2, p.Kana)
	assert.Equal(t, 1, p.Han)
	assert.Equal(t, 2, p.Latin)
	assert.Equal(t, 0, p.Other)
	assert.Equal(t, 7, p.Letters)
	assert.Equal(t, lang.Korean, p.Language())

	assert.Equal(t, lang.English, Profile{}.Language())
	assert.Equal(t, 6, Scan("Привет").Other)
}
