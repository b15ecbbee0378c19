package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tradecheck/internal/arbitrate"
	"github.com/sells-group/tradecheck/internal/catalog"
	"github.com/sells-group/tradecheck/internal/cost"
	"github.com/sells-group/tradecheck/internal/embedding"
	"github.com/sells-group/tradecheck/internal/resilience"
	"github.com/sells-group/tradecheck/internal/retrieve"
	"github.com/sells-group/tradecheck/pkg/anthropic"
	"github.com/sells-group/tradecheck/pkg/jina"
)

// classifierEnv holds the clients shared by the search, classify and serve
// commands.
type classifierEnv struct {
	Catalog   catalog.Catalog
	Retriever *retrieve.Retriever
	Completer arbitrate.Completer // nil for search-only environments
	Model     string
	Label     arbitrate.Label
}

// Close releases resources held by the environment.
func (ce *classifierEnv) Close() {
	if ce.Catalog != nil {
		if err := ce.Catalog.Close(); err != nil {
			zap.L().Warn("close catalog", zap.Error(err))
		}
	}
}

// NewEngine builds an arbitration engine over the shared clients.
func (ce *classifierEnv) NewEngine() *arbitrate.Engine {
	return arbitrate.NewEngine(ce.Retriever, ce.Completer, arbitrate.WithLabel(ce.Label))
}

// initEnv validates config for mode and connects the catalog, embedder and,
// unless mode is "search", the Anthropic completer. Callers should defer
// env.Close().
func initEnv(ctx context.Context, mode string) (*classifierEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	label, err := arbitrate.ParseLabel(cfg.Arbitration.Label)
	if err != nil {
		return nil, err
	}

	emb, err := initEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	cat, err := initCatalog(ctx, emb)
	if err != nil {
		return nil, err
	}

	env := &classifierEnv{
		Catalog:   cat,
		Retriever: retrieve.New(cat),
		Model:     cfg.Anthropic.Model,
		Label:     label,
	}
	if mode != "search" {
		env.Completer = initCompleter()
	}
	return env, nil
}

// initCatalog opens the configured catalog backend. emb may be nil for
// commands that never search.
func initCatalog(ctx context.Context, emb embedding.Embedder) (catalog.Catalog, error) {
	opts := catalog.Options{
		Table:         cfg.Store.Table,
		MaxCandidates: cfg.Store.MaxCandidates,
		MaxConns:      cfg.Store.MaxConns,
		MinConns:      cfg.Store.MinConns,
	}
	switch cfg.Store.Driver {
	case "sqlite":
		cat, err := catalog.NewSQLite(cfg.Store.DatabaseURL, emb, opts)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite catalog")
		}
		return cat, nil
	case "postgres", "":
		cat, err := catalog.NewPostgres(ctx, cfg.Store.DatabaseURL, emb, opts)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres catalog")
		}
		return cat, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEmbedder builds the configured embedding provider behind the retry
// policy and its rate limiter.
func initEmbedder(ctx context.Context) (embedding.Embedder, error) {
	var emb embedding.Embedder
	switch cfg.Embedding.Provider {
	case "genai":
		g, err := embedding.NewGenAI(ctx, cfg.Embedding.Key, cfg.Embedding.Model, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, eris.Wrap(err, "init genai embedder")
		}
		emb = g
	case "jina", "":
		var opts []jina.Option
		if cfg.Embedding.BaseURL != "" {
			opts = append(opts, jina.WithBaseURL(cfg.Embedding.BaseURL))
		}
		emb = embedding.NewJina(jina.NewClient(cfg.Embedding.Key, opts...), cfg.Embedding.Model, cfg.Embedding.Dimensions)
	default:
		return nil, eris.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	return embedding.WithPolicy(emb, retryPolicy(cfg.Embedding.Provider, "embed", cfg.Embedding.RequestsPerSecond)), nil
}

// initCompleter builds the Anthropic completer behind the retry policy.
func initCompleter() arbitrate.Completer {
	var opts []anthropic.Option
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	temperature := cfg.Anthropic.Temperature
	c := arbitrate.NewAnthropicCompleter(anthropic.NewClient(cfg.Anthropic.Key, opts...), arbitrate.AnthropicConfig{
		Model:       cfg.Anthropic.Model,
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: &temperature,
		CacheTTL:    cfg.Anthropic.CacheTTL,
	})
	return arbitrate.WithPolicy(c, retryPolicy("anthropic", "create_message", cfg.Anthropic.RequestsPerSecond))
}

// retryPolicy applies the retry section of the config to the default policy.
func retryPolicy(service, operation string, rps float64) resilience.Policy {
	p := resilience.DefaultPolicy(service, operation)
	if cfg.Retry.MaxAttempts > 0 {
		p.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.InitialBackoffMS > 0 {
		p.InitialBackoff = time.Duration(cfg.Retry.InitialBackoffMS) * time.Millisecond
	}
	if cfg.Retry.MaxBackoffMS > 0 {
		p.MaxBackoff = time.Duration(cfg.Retry.MaxBackoffMS) * time.Millisecond
	}
	p.Limiter = resilience.NewLimiter(rps, 1)
	return p
}

// pricing returns the configured rates, or the built-in table when none are
// configured.
func pricing() *cost.Calculator {
	if len(cfg.Pricing.Anthropic) == 0 {
		return cost.NewCalculator(cost.DefaultRates())
	}
	rates := cost.Rates{Anthropic: make(map[string]cost.ModelRate, len(cfg.Pricing.Anthropic))}
	for name, p := range cfg.Pricing.Anthropic {
		rates.Anthropic[name] = cost.ModelRate{
			Input:         p.Input,
			Output:        p.Output,
			CacheWriteMul: p.CacheWriteMul,
			CacheReadMul:  p.CacheReadMul,
		}
	}
	return cost.NewCalculator(rates)
}
