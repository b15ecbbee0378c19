package arbitrate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tradecheck/internal/resilience"
	"github.com/sells-group/tradecheck/pkg/anthropic"
)

// Completion is one single-turn model response. Token counts are nil when
// the service does not report them.
type Completion struct {
	Text             string
	Finished         bool
	StopReason       string
	PromptTokens     *int64
	CompletionTokens *int64
	TotalTokens      *int64
}

// Completer is the language-model collaborator.
type Completer interface {
	Complete(ctx context.Context, system, user string) (*Completion, error)
}

// AnthropicConfig configures an AnthropicCompleter.
type AnthropicConfig struct {
	Model       string
	MaxTokens   int64
	Temperature *float64
	// CacheTTL caches the system prompt ("5m" or "1h"); empty disables caching.
	CacheTTL string
}

// AnthropicCompleter completes through the Anthropic Messages API.
type AnthropicCompleter struct {
	client anthropic.Client
	cfg    AnthropicConfig
}

// NewAnthropicCompleter creates a Completer over client.
func NewAnthropicCompleter(client anthropic.Client, cfg AnthropicConfig) *AnthropicCompleter {
	if cfg.Model == "" {
		cfg.Model = "claude-haiku-4-5-20251001"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	return &AnthropicCompleter{client: client, cfg: cfg}
}

// Complete implements Completer. A response counts as finished only when the
// model ended its turn or hit a stop sequence.
func (a *AnthropicCompleter) Complete(ctx context.Context, system, user string) (*Completion, error) {
	req := anthropic.MessageRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: a.cfg.Temperature,
	}
	if a.cfg.CacheTTL != "" {
		req.System = anthropic.BuildCachedSystemBlocks(system, a.cfg.CacheTTL)
	} else {
		req.System = []anthropic.SystemBlock{{Text: system}}
	}

	resp, err := a.client.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "arbitrate: complete")
	}

	prompt := resp.Usage.PromptTokens()
	completion := resp.Usage.OutputTokens
	total := prompt + completion
	return &Completion{
		Text:             resp.Text(),
		Finished:         resp.StopReason == "end_turn" || resp.StopReason == "stop_sequence",
		StopReason:       resp.StopReason,
		PromptTokens:     &prompt,
		CompletionTokens: &completion,
		TotalTokens:      &total,
	}, nil
}

// Model returns the configured model ID.
func (a *AnthropicCompleter) Model() string { return a.cfg.Model }

// WithPolicy wraps c so every call is rate limited and retried under p.
func WithPolicy(c Completer, p resilience.Policy) Completer {
	return &policyCompleter{next: c, policy: p}
}

type policyCompleter struct {
	next   Completer
	policy resilience.Policy
}

func (p *policyCompleter) Complete(ctx context.Context, system, user string) (*Completion, error) {
	return resilience.Call(ctx, p.policy, func(ctx context.Context) (*Completion, error) {
		return p.next.Complete(ctx, system, user)
	})
}
