// Package batch classifies a list of items with a pool of arbitration
// engines and assembles the report in input order.
package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tradecheck/internal/arbitrate"
	"github.com/sells-group/tradecheck/internal/cost"
	"github.com/sells-group/tradecheck/internal/model"
)

// OnError is the batch policy for a failed item.
type OnError string

const (
	// OnErrorSkip writes an error row for the item and continues.
	OnErrorSkip OnError = "skip"
	// OnErrorAbort stops the batch at the first failed item.
	OnErrorAbort OnError = "abort"
)

// Classifier is the per-worker engine. *arbitrate.Engine satisfies it.
type Classifier interface {
	Classify(ctx context.Context, item model.Item) (*arbitrate.Result, error)
}

// EngineFactory builds one Classifier per worker.
type EngineFactory func() (Classifier, error)

// Options configures Run.
type Options struct {
	Concurrency   int
	OnError       OnError
	ProgressEvery int
	RunID         string

	// Pricing and Model, when set, add an estimated cost to the report.
	Pricing *cost.Calculator
	Model   string
}

// Report is the outcome of a batch.
type Report struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Rows       []model.Row
	Items      int
	Classified int
	Restricted int
	Failed     int
	Aborted    bool

	// Usage covers successfully classified items only.
	Usage model.UsageStats
	// FailedUsage covers items that failed after spending tokens or time.
	FailedUsage model.UsageStats

	EstimatedCostUSD float64
}

// Summary is the JSON-friendly digest of a Report.
type Summary struct {
	RunID            string             `json:"run_id"`
	Items            int                `json:"items"`
	Classified       int                `json:"classified"`
	Restricted       int                `json:"restricted"`
	Failed           int                `json:"failed"`
	Rows             int                `json:"rows"`
	Aborted          bool               `json:"aborted"`
	ElapsedSeconds   float64            `json:"elapsed_seconds"`
	Usage            model.UsageSummary `json:"usage"`
	EstimatedCostUSD float64            `json:"estimated_cost_usd"`
}

// Summary digests the report.
func (r *Report) Summary() Summary {
	return Summary{
		RunID:            r.RunID,
		Items:            r.Items,
		Classified:       r.Classified,
		Restricted:       r.Restricted,
		Failed:           r.Failed,
		Rows:             len(r.Rows),
		Aborted:          r.Aborted,
		ElapsedSeconds:   r.Finished.Sub(r.Started).Seconds(),
		Usage:            r.Usage.Summary(),
		EstimatedCostUSD: r.EstimatedCostUSD,
	}
}

type itemResult struct {
	done   bool
	result *arbitrate.Result
	err    error
}

type workerStats struct {
	ok     model.UsageStats
	failed model.UsageStats
}

// Run classifies items on opts.Concurrency workers, each with its own engine
// from factory. Rows come back in input order. Under OnErrorAbort the first
// failure cancels the remaining work and Run returns the partial report with
// that error; metrics of items finished before it are kept.
func Run(ctx context.Context, items []model.Item, factory EngineFactory, opts Options) (*Report, error) {
	workers := max(opts.Concurrency, 1)
	workers = min(workers, max(len(items), 1))
	if opts.OnError == "" {
		opts.OnError = OnErrorSkip
	}
	progressEvery := opts.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = 10
	}

	rep := &Report{RunID: opts.RunID, Started: time.Now(), Items: len(items)}
	if rep.RunID == "" {
		rep.RunID = uuid.NewString()
	}
	log := zap.L().With(zap.String("run_id", rep.RunID))
	log.Info("batch: starting", zap.Int("items", len(items)), zap.Int("workers", workers), zap.String("on_error", string(opts.OnError)))

	results := make([]itemResult, len(items))
	stats := make([]workerStats, workers)
	var completed atomic.Int64

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range items {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			engine, err := factory()
			if err != nil {
				return eris.Wrap(err, "batch: build engine")
			}
			ws := &stats[w]
			for i := range jobs {
				res, err := engine.Classify(gctx, items[i])
				if err != nil && gctx.Err() != nil && errors.Is(err, context.Canceled) {
					// Stopped by an abort elsewhere or by the caller; not the item's fault.
					return nil
				}
				results[i] = itemResult{done: true, result: res, err: err}

				if err != nil {
					if res != nil {
						ws.failed.Add(res.Usage)
					}
					if opts.OnError == OnErrorAbort {
						return eris.Wrapf(err, "batch: item on line %d", items[i].Line)
					}
					log.Warn("batch: item failed, skipping",
						zap.Int("line", items[i].Line),
						zap.String("hs_code", string(items[i].Code)),
						zap.String("kind", arbitrate.KindOf(err).String()),
						zap.Error(err),
					)
				} else {
					ws.ok.Add(res.Usage)
				}

				if n := completed.Add(1); n%int64(progressEvery) == 0 {
					log.Info("batch: progress", zap.Int64("processed", n), zap.Int("total", len(items)))
				}
			}
			return nil
		})
	}

	runErr := g.Wait()
	if runErr == nil && ctx.Err() != nil {
		runErr = eris.Wrap(ctx.Err(), "batch: cancelled")
	}

	for _, ws := range stats {
		rep.Usage.Merge(ws.ok)
		rep.FailedUsage.Merge(ws.failed)
	}
	for i, r := range results {
		if !r.done {
			continue
		}
		if r.err != nil {
			rep.Failed++
			usage := model.Usage{}
			if r.result != nil {
				usage = r.result.Usage
			}
			row := model.ErrorRow(items[i], usage, r.err)
			row.RunID = rep.RunID
			rep.Rows = append(rep.Rows, row)
			continue
		}
		rep.Classified++
		if !r.result.Outcome.NoRestriction() {
			rep.Restricted++
		}
		for _, row := range r.result.Rows() {
			row.RunID = rep.RunID
			rep.Rows = append(rep.Rows, row)
		}
	}
	if opts.Pricing != nil {
		rep.EstimatedCostUSD = opts.Pricing.Arbitration(opts.Model, rep.Usage.Summary()) +
			opts.Pricing.Arbitration(opts.Model, rep.FailedUsage.Summary())
	}
	rep.Finished = time.Now()
	rep.Aborted = runErr != nil

	s := rep.Summary()
	log.Info("batch: finished",
		zap.Int("classified", s.Classified),
		zap.Int("restricted", s.Restricted),
		zap.Int("failed", s.Failed),
		zap.Int("rows", s.Rows),
		zap.Bool("aborted", s.Aborted),
		zap.Float64("estimated_cost_usd", s.EstimatedCostUSD),
	)
	if runErr != nil {
		return rep, runErr
	}
	return rep, nil
}
