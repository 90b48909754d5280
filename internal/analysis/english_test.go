package analysis

import (
	"testing"

	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/stretchr/testify/assert"
)

func TestEnglishScoreClassWeights(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{name: "empty", text: "", want: 0},
		{name: "space", text: " ", want: 0.8},
		{name: "digit", text: "7", want: 0.5},
		{name: "punctuation", text: "!", want: 0.2},
		{name: "other whitespace", text: "\t\n", want: 0},
		{name: "non printable", text: "\x00", want: -10},
		{name: "mixed without letters", text: "1 ?\x7f", want: 0.5 + 0.8 + 0.2 - 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EnglishScore([]byte(tt.text)), 1e-9)
		})
	}
}

func TestEnglishScoreLetterBonus(t *testing.T) {
	score := EnglishScore([]byte("e"))
	assert.Greater(t, score, 1.0)
	assert.LessOrEqual(t, score, 2.0)

	assert.Equal(t, EnglishScore([]byte("Hello")), EnglishScore([]byte("hELLO")), "letters are case-folded")

	exact := []struct {
		text string
		want float64
	}{
		{text: "e", want: 1.145503281900},
		{text: "Hello, World! 42", want: 13.035241898270},
	}
	for _, tt := range exact {
		assert.InDelta(t, tt.want, EnglishScore([]byte(tt.text)), 1e-9, "score of %q", tt.text)
	}
}

func TestEnglishScoreDeterministic(t *testing.T) {
	assert.Equal(t, EnglishScore(sampleText), EnglishScore(sampleText))
}

func TestEnglishScorePrefersEnglish(t *testing.T) {
	scrambled := cipher.Encrypt(sampleText, []byte{0x80, 0x9a, 0xf3, 0x11}, nil)
	assert.Greater(t, EnglishScore(sampleText), EnglishScore(scrambled))

	assert.Greater(t,
		EnglishScore([]byte("the quick brown fox")),
		EnglishScore([]byte("zqx jvk wqz xjq zzv")))
}
