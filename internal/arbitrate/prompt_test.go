package arbitrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRequest(t *testing.T) {
	got := FormatRequest("Steel spectacle frames", threeCandidates(), LabelItem)
	assert.Equal(t, "Item: Steel spectacle frames\nRestricted:\n1. Poultry meat\n2. Meat of bovine animals\n3. Goods from embargoed origin\n", got)
}

func TestFormatRequest_FlattensNewlines(t *testing.T) {
	c := threeCandidates()[:1]
	c[0].Item = "Poultry\nmeat"
	got := FormatRequest("frozen\r\nchicken", c, LabelItem)
	assert.Equal(t, "Item: frozen chicken\nRestricted:\n1. Poultry meat\n", got)
}

func TestParseLabel(t *testing.T) {
	l, err := ParseLabel("")
	require.NoError(t, err)
	assert.Equal(t, LabelItem, l)

	l, err = ParseLabel(" Restriction ")
	require.NoError(t, err)
	assert.Equal(t, LabelRestriction, l)

	_, err = ParseLabel("hs_code")
	assert.Error(t, err)
}

func TestSystemPrompt_DescribesContract(t *testing.T) {
	assert.Contains(t, SystemPrompt, "reply with 0")
	assert.Contains(t, SystemPrompt, "only include integers and commas")
}
