package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[0.5,-1,0.25]", vectorLiteral([]float32{0.5, -1, 0.25}))
	assert.Equal(t, "[]", vectorLiteral(nil))
}

func TestEncodeDecodeVector(t *testing.T) {
	in := []float32{0.1, -2.5, 3}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCosineDistance(t *testing.T) {
	d, err := cosineDistance([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0, d, 1e-9)

	d, err = cosineDistance([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1, d, 1e-9)

	d, err = cosineDistance([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 2, d, 1e-9)

	d, err = cosineDistance([]float32{0, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)

	_, err = cosineDistance([]float32{1}, []float32{1, 2})
	assert.Error(t, err)
}

func TestValidateTable(t *testing.T) {
	name, err := validateTable("")
	require.NoError(t, err)
	assert.Equal(t, "restrictions", name)

	name, err = validateTable("ca_restrictions")
	require.NoError(t, err)
	assert.Equal(t, "ca_restrictions", name)

	_, err = validateTable("x; DROP TABLE y")
	assert.Error(t, err)
}
