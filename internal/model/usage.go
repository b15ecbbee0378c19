package model

import "time"

// Usage holds timing and token accounting for one classified item.
// Arbitration fields are nil when the item never reached the language model
// (no candidates, or retrieval failed); nil means "not applicable", not zero.
type Usage struct {
	RetrievalElapsed   time.Duration  `json:"elapsed_retrieval"`
	ArbitrationElapsed *time.Duration `json:"elapsed_arbitration,omitempty"`
	TotalElapsed       time.Duration  `json:"elapsed_total"`
	PromptTokens       *int64         `json:"prompt_tokens,omitempty"`
	CompletionTokens   *int64         `json:"completion_tokens,omitempty"`
	TotalTokens        *int64         `json:"total_tokens,omitempty"`
}

// Arbitrated reports whether the language model was invoked for the item.
func (u Usage) Arbitrated() bool { return u.ArbitrationElapsed != nil }

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.n++
}

func (m mean) value() (float64, bool) {
	if m.n == 0 {
		return 0, false
	}
	return m.sum / float64(m.n), true
}

// UsageStats accumulates Usage values across a batch. Each field averages
// only the items where it was populated. The zero value is ready to use; it
// is not safe for concurrent use, so concurrent workers keep their own and
// Merge at the end.
type UsageStats struct {
	items       int
	retrieval   mean
	arbitration mean
	total       mean
	prompt      mean
	completion  mean
	tokens      mean
}

// Add records one item.
func (s *UsageStats) Add(u Usage) {
	s.items++
	s.retrieval.add(float64(u.RetrievalElapsed))
	s.total.add(float64(u.TotalElapsed))
	if u.ArbitrationElapsed != nil {
		s.arbitration.add(float64(*u.ArbitrationElapsed))
	}
	if u.PromptTokens != nil {
		s.prompt.add(float64(*u.PromptTokens))
	}
	if u.CompletionTokens != nil {
		s.completion.add(float64(*u.CompletionTokens))
	}
	if u.TotalTokens != nil {
		s.tokens.add(float64(*u.TotalTokens))
	}
}

// Merge folds other into s.
func (s *UsageStats) Merge(other UsageStats) {
	s.items += other.items
	for _, p := range []struct{ dst, src *mean }{
		{&s.retrieval, &other.retrieval},
		{&s.arbitration, &other.arbitration},
		{&s.total, &other.total},
		{&s.prompt, &other.prompt},
		{&s.completion, &other.completion},
		{&s.tokens, &other.tokens},
	} {
		p.dst.sum += p.src.sum
		p.dst.n += p.src.n
	}
}

// Items returns the number of items recorded.
func (s UsageStats) Items() int { return s.items }

// UsageSummary is the batch-level mean of per-item usage. Pointer fields are
// nil when no item populated them.
type UsageSummary struct {
	Items                  int            `json:"items"`
	Arbitrated             int            `json:"arbitrated"`
	MeanRetrievalElapsed   time.Duration  `json:"mean_elapsed_retrieval"`
	MeanArbitrationElapsed *time.Duration `json:"mean_elapsed_arbitration,omitempty"`
	MeanTotalElapsed       time.Duration  `json:"mean_elapsed_total"`
	MeanPromptTokens       *float64       `json:"mean_prompt_tokens,omitempty"`
	MeanCompletionTokens   *float64       `json:"mean_completion_tokens,omitempty"`
	MeanTotalTokens        *float64       `json:"mean_total_tokens,omitempty"`
	SumPromptTokens        int64          `json:"sum_prompt_tokens"`
	SumCompletionTokens    int64          `json:"sum_completion_tokens"`
}

// Summary computes the per-field means.
func (s UsageStats) Summary() UsageSummary {
	out := UsageSummary{
		Items:               s.items,
		Arbitrated:          s.arbitration.n,
		SumPromptTokens:     int64(s.prompt.sum),
		SumCompletionTokens: int64(s.completion.sum),
	}
	if v, ok := s.retrieval.value(); ok {
		out.MeanRetrievalElapsed = time.Duration(v)
	}
	if v, ok := s.total.value(); ok {
		out.MeanTotalElapsed = time.Duration(v)
	}
	if v, ok := s.arbitration.value(); ok {
		d := time.Duration(v)
		out.MeanArbitrationElapsed = &d
	}
	out.MeanPromptTokens = optionalMean(s.prompt)
	out.MeanCompletionTokens = optionalMean(s.completion)
	out.MeanTotalTokens = optionalMean(s.tokens)
	return out
}

func optionalMean(m mean) *float64 {
	v, ok := m.value()
	if !ok {
		return nil
	}
	return &v
}
