package hscode

import (
	"fmt"
	"strings"
)

// Filter is a predicate over catalog codes, built as a small expression tree
// so that each catalog backend can translate it to its own query language.
// The concrete variants are StartsWith, EqualTo and Or.
type Filter interface {
	// Matches evaluates the filter against a stored catalog code.
	Matches(code Code) bool
	String() string
	filter()
}

// StartsWith matches catalog codes equal to or beginning with Prefix.
type StartsWith struct {
	Prefix Code
}

// EqualTo matches catalog codes exactly equal to Value.
type EqualTo struct {
	Value Code
}

// Or matches when any of its terms match. An empty Or matches nothing.
type Or struct {
	Terms []Filter
}

func (StartsWith) filter() {}
func (EqualTo) filter()    {}
func (Or) filter()         {}

// Matches implements Filter.
func (f StartsWith) Matches(code Code) bool {
	return strings.HasPrefix(string(code), string(f.Prefix))
}

// Matches implements Filter.
func (f EqualTo) Matches(code Code) bool { return code == f.Value }

// Matches implements Filter.
func (f Or) Matches(code Code) bool {
	for _, t := range f.Terms {
		if t.Matches(code) {
			return true
		}
	}
	return false
}

func (f StartsWith) String() string { return fmt.Sprintf("starts_with(%q)", string(f.Prefix)) }
func (f EqualTo) String() string    { return fmt.Sprintf("eq(%q)", string(f.Value)) }

func (f Or) String() string {
	parts := make([]string, len(f.Terms))
	for i, t := range f.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " | ")
}

// BuildFilter returns the filter selecting every catalog record that could
// apply to an item coded code:
//
//   - records whose code equals or begins with code (at or below the item),
//   - records whose code equals a prefix of code (above the item),
//   - records coded with the Wildcard.
//
// For code "0207" that is 0, 02, 020, 0207 and anything starting with 0207,
// but not 03 or 021.
//
// An empty code produces StartsWith("") OR EqualTo(Wildcard). StartsWith("")
// matches every record, so a missing code falls back to an unfiltered search
// rather than an empty one.
func BuildFilter(code Code) Filter {
	terms := make([]Filter, 0, len(code)+2)
	terms = append(terms, StartsWith{Prefix: code}, EqualTo{Value: Wildcard})
	for _, p := range code.Prefixes() {
		if p == Wildcard {
			continue
		}
		terms = append(terms, EqualTo{Value: p})
	}
	return Or{Terms: terms}
}
