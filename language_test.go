package voicelive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"hello there", "EN"},
		{"", "EN"},
		{"123 !?", "EN"},
		{"你好世界", "ZH"},
		{"வணக்கம்", "TA"},
		{"こんにちは", "JA"},
		{"カタカナ", "JA"},
		{"안녕하세요", "KO"},
		{"the price is 五十 dollars", "ZH"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.text), "text: %q", tt.text)
	}
}
