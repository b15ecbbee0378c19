package catalog

import (
	"encoding/binary"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// vectorLiteral renders v in pgvector's text input format, e.g. "[0.1,0.2]".
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// encodeVector packs v as little-endian float32s for SQLite BLOB storage.
func encodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, eris.Errorf("catalog: vector blob length %d not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

// cosineDistance returns 1 - cos(a, b). Zero vectors are maximally distant.
func cosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, eris.Errorf("catalog: dimension mismatch %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1, nil
	}
	return clampDistance(1 - dot/(math.Sqrt(na)*math.Sqrt(nb))), nil
}

// clampDistance absorbs float rounding that would push a distance below zero.
func clampDistance(d float64) float64 {
	if d < 0 {
		return 0
	}
	return d
}

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func validateTable(name string) (string, error) {
	if name == "" {
		return "restrictions", nil
	}
	if !tableNamePattern.MatchString(name) {
		return "", eris.Errorf("catalog: invalid table name %q", name)
	}
	return name, nil
}
