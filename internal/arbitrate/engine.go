// Package arbitrate decides which retrieved restriction candidates actually
// apply to an item by asking a language model to choose among them.
package arbitrate

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradecheck/internal/hscode"
	"github.com/sells-group/tradecheck/internal/model"
)

// CandidateSource fetches ranked candidates for an item.
// *retrieve.Retriever satisfies it.
type CandidateSource interface {
	Retrieve(ctx context.Context, description string, code hscode.Code) ([]model.Candidate, error)
}

// State is how far Classify got for an item.
type State int

const (
	StateCandidatesFetched State = iota + 1
	StateResolvedEmpty
	StateArbitrationRequested
	StateResponseParsed
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateCandidatesFetched:
		return "candidates_fetched"
	case StateResolvedEmpty:
		return "resolved_empty"
	case StateArbitrationRequested:
		return "arbitration_requested"
	case StateResponseParsed:
		return "response_parsed"
	case StateResolved:
		return "resolved"
	default:
		return "pending"
	}
}

// Result is the verdict and accounting for one item. On failure it holds
// whatever was measured before the error.
type Result struct {
	Item       model.Item
	Candidates []model.Candidate
	Outcome    model.Outcome
	Usage      model.Usage
	// Response is the raw model text, empty when arbitration was skipped.
	Response string
	State    State
}

// Rows flattens the result into report rows.
func (r *Result) Rows() []model.Row {
	return model.RowsFor(r.Item, r.Outcome, r.Usage)
}

// Engine classifies items. It holds no per-item state, so one Engine may
// serve concurrent Classify calls when its source and completer are safe for
// concurrent use, as the catalog backends and the Anthropic completer are.
type Engine struct {
	source    CandidateSource
	completer Completer
	system    string
	label     Label
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLabel selects the candidate field shown to the model.
func WithLabel(l Label) Option { return func(e *Engine) { e.label = l } }

// WithSystemPrompt overrides SystemPrompt.
func WithSystemPrompt(s string) Option { return func(e *Engine) { e.system = s } }

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine creates an Engine.
func NewEngine(source CandidateSource, completer Completer, opts ...Option) *Engine {
	e := &Engine{
		source:    source,
		completer: completer,
		system:    SystemPrompt,
		label:     LabelItem,
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Classify retrieves candidates for item and arbitrates among them. The
// returned Result is never nil, so usage is available on every path; the
// error is an *Error for arbitration failures and the wrapped collaborator
// error otherwise.
func (e *Engine) Classify(ctx context.Context, item model.Item) (*Result, error) {
	res := &Result{Item: item}
	start := e.now()
	defer func() { res.Usage.TotalElapsed = e.now().Sub(start) }()

	candidates, err := e.source.Retrieve(ctx, item.Description, item.Code)
	res.Usage.RetrievalElapsed = e.now().Sub(start)
	if err != nil {
		return res, eris.Wrapf(err, "arbitrate: retrieve candidates for %s", item.Code)
	}
	res.Candidates = candidates
	res.State = StateCandidatesFetched

	if len(candidates) == 0 {
		res.State = StateResolvedEmpty
		zap.L().Debug("arbitrate: no candidates", zap.String("hs_code", string(item.Code)))
		return res, nil
	}

	res.State = StateArbitrationRequested
	user := FormatRequest(item.Description, candidates, e.label)
	callStart := e.now()
	completion, err := e.completer.Complete(ctx, e.system, user)
	elapsed := e.now().Sub(callStart)
	res.Usage.ArbitrationElapsed = &elapsed
	if err != nil {
		return res, eris.Wrapf(err, "arbitrate: complete for %s", item.Code)
	}
	res.Usage.PromptTokens = completion.PromptTokens
	res.Usage.CompletionTokens = completion.CompletionTokens
	res.Usage.TotalTokens = completion.TotalTokens

	if !completion.Finished {
		return res, &Error{Kind: KindIncompleteGeneration, Candidates: len(candidates), StopReason: completion.StopReason}
	}
	res.Response = completion.Text

	choices, err := ParseChoices(completion.Text, len(candidates))
	if err != nil {
		zap.L().Warn("arbitrate: unusable response",
			zap.String("hs_code", string(item.Code)),
			zap.String("response", completion.Text),
			zap.Error(err),
		)
		return res, err
	}
	res.State = StateResponseParsed

	for _, choice := range choices {
		c := candidates[choice-1]
		res.Outcome.Confirmed = append(res.Outcome.Confirmed, model.ConfirmedRestriction{
			Restriction: c.Restriction,
			Distance:    c.Distance,
			Choice:      choice,
		})
	}
	res.State = StateResolved

	zap.L().Debug("arbitrate: resolved",
		zap.String("hs_code", string(item.Code)),
		zap.Int("candidates", len(candidates)),
		zap.Ints("choices", choices),
		zap.Duration("elapsed_arbitration", elapsed),
	)
	return res, nil
}
