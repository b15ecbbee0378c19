package arbitrate

import (
	"errors"
	"fmt"
)

// Kind classifies a per-item arbitration failure.
type Kind int

const (
	// KindMalformedResponse: a response token is neither an integer nor a
	// recognised none-applies phrase.
	KindMalformedResponse Kind = iota + 1
	// KindOutOfBounds: an integer choice falls outside [1, candidates].
	KindOutOfBounds
	// KindIncompleteGeneration: the model stopped before finishing its answer.
	KindIncompleteGeneration
)

func (k Kind) String() string {
	switch k {
	case KindMalformedResponse:
		return "malformed_response"
	case KindOutOfBounds:
		return "out_of_bounds"
	case KindIncompleteGeneration:
		return "incomplete_generation"
	default:
		return "unknown"
	}
}

// Error is a fatal arbitration failure for one item. Match a kind with
// errors.Is against the Err* sentinels, or errors.As for the details.
type Error struct {
	Kind Kind
	// Raw is the full response text, empty for incomplete generations.
	Raw string
	// Token is the offending token for malformed and out-of-bounds errors.
	Token string
	// Candidates is the size of the list the model chose from.
	Candidates int
	// StopReason is the model's stop reason for incomplete generations.
	StopReason string
}

// Sentinels for errors.Is.
var (
	ErrMalformedResponse    = &Error{Kind: KindMalformedResponse}
	ErrOutOfBounds          = &Error{Kind: KindOutOfBounds}
	ErrIncompleteGeneration = &Error{Kind: KindIncompleteGeneration}
)

func (e *Error) Error() string {
	switch e.Kind {
	case KindMalformedResponse:
		return fmt.Sprintf("arbitrate: malformed response: token %q in %q", e.Token, e.Raw)
	case KindOutOfBounds:
		return fmt.Sprintf("arbitrate: choice %s out of bounds for %d candidates", e.Token, e.Candidates)
	case KindIncompleteGeneration:
		return fmt.Sprintf("arbitrate: generation did not complete (stop reason %q)", e.StopReason)
	default:
		return "arbitrate: unknown error"
	}
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the arbitration kind of err, or 0 when err is not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
