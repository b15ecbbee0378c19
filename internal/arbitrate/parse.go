package arbitrate

import (
	"errors"
	"strconv"
	"strings"

	"github.com/sells-group/tradecheck/internal/hscode"
)

// noneApplies is the fixed set of phrases meaning no candidate applies.
// Keys are lower case with single spaces and no trailing period.
var noneApplies = map[string]struct{}{
	"none":                   {},
	"none apply":             {},
	"none applies":           {},
	"none of the above":      {},
	"no":                     {},
	"no restriction":         {},
	"no restrictions":        {},
	"no restriction applies": {},
	"no restrictions apply":  {},
	"no category applies":    {},
	"no categories apply":    {},
	"does not apply":         {},
	"do not apply":           {},
	"not applicable":         {},
	"n/a":                    {},
}

// IsNoneApplies reports whether token is a recognised none-applies phrase.
func IsNoneApplies(token string) bool {
	_, ok := noneApplies[normalizeToken(token)]
	return ok
}

// normalizeToken lower-cases, collapses whitespace and strips trailing periods.
func normalizeToken(tok string) string {
	tok = strings.Join(strings.Fields(tok), " ")
	tok = strings.TrimRight(tok, ".")
	return strings.ToLower(strings.TrimSpace(tok))
}

var lineBreaks = strings.NewReplacer("\r\n", ",", "\n", ",", "\r", ",")

// ParseChoices parses a comma-separated arbitration response against a list
// of n candidates and returns the chosen 1-based positions in response order.
// An empty result means no restriction applies.
//
// Line breaks separate choices like commas do. Empty tokens and the wildcard
// "0" are dropped. Any none-applies phrase makes the whole response
// NoRestriction, whatever else it contains. Any other
// non-integer token is a malformed response and integers outside [1, n] are
// out of bounds. Duplicates are kept.
func ParseChoices(raw string, n int) ([]int, error) {
	parts := strings.Split(lineBreaks.Replace(strings.TrimSpace(raw)), ",")

	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		tok := normalizeToken(p)
		if tok == "" || tok == string(hscode.Wildcard) {
			continue
		}
		if _, ok := noneApplies[tok]; ok {
			return nil, nil
		}
		tokens = append(tokens, tok)
	}

	choices := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.Atoi(tok)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				return nil, &Error{Kind: KindOutOfBounds, Raw: raw, Token: tok, Candidates: n}
			}
			return nil, &Error{Kind: KindMalformedResponse, Raw: raw, Token: tok, Candidates: n}
		}
		if v < 1 || v > n {
			return nil, &Error{Kind: KindOutOfBounds, Raw: raw, Token: tok, Candidates: n}
		}
		choices = append(choices, v)
	}
	if len(choices) == 0 {
		return nil, nil
	}
	return choices, nil
}
