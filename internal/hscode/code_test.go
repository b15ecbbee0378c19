package hscode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want Code
	}{
		{"0207", "0207"},
		{"0207.11", "020711"},
		{" 02.07.11 ", "020711"},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []Code{"0207", "0208"}, Split("0207, 0208"))
	assert.Equal(t, []Code{"8517"}, Split("85.17,,"))
	assert.Empty(t, Split(" , "))
}

func TestCode_Prefixes(t *testing.T) {
	assert.Equal(t, []Code{"0", "02", "020", "0207"}, Code("0207").Prefixes())
	assert.Empty(t, Code("").Prefixes())
}

func TestCode_Valid(t *testing.T) {
	assert.True(t, Code("0207").Valid())
	assert.False(t, Code("").Valid())
	assert.False(t, Code("02a7").Valid())
}

func TestCode_Covers(t *testing.T) {
	assert.True(t, Wildcard.Covers("8517"))
	assert.True(t, Code("02").Covers("0207"))
	assert.True(t, Code("0207").Covers("0207"))
	assert.False(t, Code("0207").Covers("02"))
	assert.False(t, Code("03").Covers("0207"))
	assert.False(t, Code("").Covers("0207"))
}
