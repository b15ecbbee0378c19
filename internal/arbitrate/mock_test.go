package arbitrate

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/tradecheck/internal/hscode"
	"github.com/sells-group/tradecheck/internal/model"
	"github.com/sells-group/tradecheck/pkg/anthropic"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Retrieve(ctx context.Context, description string, code hscode.Code) ([]model.Candidate, error) {
	args := m.Called(ctx, description, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Candidate), args.Error(1)
}

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, system, user string) (*Completion, error) {
	args := m.Called(ctx, system, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Completion), args.Error(1)
}

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// stepClock returns a clock that advances by step on every reading.
func stepClock(step time.Duration) func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

func i64(v int64) *int64 { return &v }

func finished(text string) *Completion {
	return &Completion{
		Text:             text,
		Finished:         true,
		StopReason:       "end_turn",
		PromptTokens:     i64(300),
		CompletionTokens: i64(4),
		TotalTokens:      i64(304),
	}
}

func threeCandidates() []model.Candidate {
	return []model.Candidate{
		{Restriction: model.Restriction{Code: "0207", Item: "Poultry meat", Text: "Permit required"}, Distance: 0.11},
		{Restriction: model.Restriction{Code: "02", Item: "Meat of bovine animals", Text: "Inspection"}, Distance: 0.25},
		{Restriction: model.Restriction{Code: "0", Item: "Goods from embargoed origin", Text: "Prohibited"}, Distance: 0.61},
	}
}
