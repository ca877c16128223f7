package calc

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dart-report/internal/model"
	"github.com/sells-group/dart-report/internal/store"
)

// RunBatch runs independent scopes in parallel, bounded by
// Options.Concurrency. Results come back in scope order; a scope that fails
// carries its error in Result.Err and does not stop the others. Only
// context cancellation is returned.
func (c *Context) RunBatch(ctx context.Context, scopes []model.CorpYear, req model.MetricsRequest) ([]*Result, error) {
	c.defaults()
	log := zap.L().With(zap.String("component", "calc"))

	limit := c.Options.Concurrency
	if limit < 1 {
		limit = 1
	}

	results := make([]*Result, len(scopes))
	var failed atomic.Int32

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, cy := range scopes {
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			res, err := c.Run(gCtx, cy, req)
			if err != nil {
				failed.Add(1)
				if res == nil {
					res = &Result{CorpYear: cy, Err: err.Error()}
				}
			}
			results[i] = res
			return gCtx.Err()
		})
	}
	err := g.Wait()

	log.Info("calc: batch complete",
		zap.Int("scopes", len(scopes)),
		zap.Int32("failed", failed.Load()),
		zap.Int("concurrency", limit),
	)
	return results, err
}

// Scopes lists the (entity, year) scopes that have a filing, narrowed by
// filter, one per scope.
func (c *Context) Scopes(ctx context.Context, filter store.Filter) ([]model.CorpYear, error) {
	reports, err := c.Store.ListReports(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "calc: list scopes")
	}
	seen := make(map[model.CorpYear]bool)
	var out []model.CorpYear
	for _, r := range reports {
		cy := r.CorpYear()
		if seen[cy] {
			continue
		}
		seen[cy] = true
		out = append(out, cy)
	}
	return out, nil
}
