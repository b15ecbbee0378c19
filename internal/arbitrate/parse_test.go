package arbitrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChoices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		n       int
		want    []int
		wantErr error
	}{
		{name: "single", raw: "2", n: 3, want: []int{2}},
		{name: "pair in order", raw: "1,3", n: 3, want: []int{1, 3}},
		{name: "reverse order kept", raw: "3,1", n: 3, want: []int{3, 1}},
		{name: "spaces and newline", raw: " 1 ,\n 2\n", n: 3, want: []int{1, 2}},
		{name: "newline separated", raw: "1\n2", n: 3, want: []int{1, 2}},
		{name: "blank line between choices", raw: "1\n\n3", n: 3, want: []int{1, 3}},
		{name: "crlf separated", raw: "3\r\n1", n: 3, want: []int{3, 1}},
		{name: "trailing periods", raw: "1., 2..", n: 3, want: []int{1, 2}},
		{name: "duplicates kept", raw: "2,2", n: 3, want: []int{2, 2}},
		{name: "empty tokens dropped", raw: "1,,3,", n: 3, want: []int{1, 3}},
		{name: "wildcard dropped", raw: "0,2", n: 3, want: []int{2}},
		{name: "only wildcard", raw: "0", n: 3, want: nil},
		{name: "empty response", raw: "   ", n: 3, want: nil},
		{name: "none phrase", raw: "No restrictions apply.", n: 3, want: nil},
		{name: "none phrase upper", raw: "NONE APPLY", n: 3, want: nil},
		{name: "none phrase wins over bad tokens", raw: "7, abc, does not apply", n: 3, want: nil},
		{name: "out of bounds high", raw: "4", n: 3, wantErr: ErrOutOfBounds},
		{name: "out of bounds negative", raw: "-1", n: 3, wantErr: ErrOutOfBounds},
		{name: "out of bounds zero padded", raw: "00", n: 3, wantErr: ErrOutOfBounds},
		{name: "overflow", raw: "99999999999999999999", n: 3, wantErr: ErrOutOfBounds},
		{name: "malformed word", raw: "abc", n: 3, wantErr: ErrMalformedResponse},
		{name: "malformed prose", raw: "1, maybe 2", n: 3, wantErr: ErrMalformedResponse},
		{name: "malformed decimal", raw: "1.5", n: 3, wantErr: ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseChoices(tt.raw, tt.n)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChoices_ErrorCarriesToken(t *testing.T) {
	_, err := ParseChoices("1, five", 3)
	var aerr *Error
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, KindMalformedResponse, aerr.Kind)
	assert.Equal(t, "five", aerr.Token)
	assert.Equal(t, "1, five", aerr.Raw)
	assert.Contains(t, err.Error(), "malformed response")
}

func TestIsNoneApplies(t *testing.T) {
	assert.True(t, IsNoneApplies("No  Restrictions   apply."))
	assert.True(t, IsNoneApplies("n/a"))
	assert.False(t, IsNoneApplies("restrictions apply"))
	assert.False(t, IsNoneApplies("0"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "malformed_response", KindMalformedResponse.String())
	assert.Equal(t, "out_of_bounds", KindOutOfBounds.String())
	assert.Equal(t, "incomplete_generation", KindIncompleteGeneration.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
