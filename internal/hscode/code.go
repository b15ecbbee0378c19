// Package hscode models hierarchical commodity codes and the candidate filter
// derived from them.
package hscode

import (
	"strings"
	"unicode"
)

// Wildcard is the catalog code for restrictions that apply to every item.
const Wildcard Code = "0"

// Code is a commodity code held as a digit string. Shorter codes are broader
// categories: "02" covers "0207", which covers "020711".
type Code string

// String implements fmt.Stringer.
func (c Code) String() string { return string(c) }

// IsWildcard reports whether c is the universal restriction code.
func (c Code) IsWildcard() bool { return c == Wildcard }

// Valid reports whether c is a non-empty run of ASCII digits.
func (c Code) Valid() bool {
	if c == "" {
		return false
	}
	for _, r := range c {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Prefixes returns every prefix of c from length 1 through len(c), shortest
// first. An empty code has no prefixes.
func (c Code) Prefixes() []Code {
	out := make([]Code, 0, len(c))
	for i := 1; i <= len(c); i++ {
		out = append(out, c[:i])
	}
	return out
}

// Covers reports whether a restriction registered under c applies to item
// code other by hierarchy alone, i.e. c is the wildcard or a prefix of other.
func (c Code) Covers(other Code) bool {
	return c.IsWildcard() || (c != "" && strings.HasPrefix(string(other), string(c)))
}

// Normalize converts a raw spreadsheet cell into a Code by dropping periods
// and whitespace ("0207.11" becomes "020711").
func Normalize(raw string) Code {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == '.' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return Code(b.String())
}

// Split explodes a cell that lists several comma-separated codes into
// normalized codes, skipping blanks. "0207, 0208" yields ["0207", "0208"].
func Split(raw string) []Code {
	parts := strings.Split(raw, ",")
	out := make([]Code, 0, len(parts))
	for _, p := range parts {
		if c := Normalize(p); c != "" {
			out = append(out, c)
		}
	}
	return out
}
