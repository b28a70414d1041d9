package cron

import (
	"context"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Warmer is the part of the catalog cache the refresh job needs.
type Warmer interface {
	Warm(ctx context.Context, popular []int)
}

// CatalogRefresh re-warms the catalog on a schedule so callers rarely wait on
// an upstream catalog fetch.
type CatalogRefresh struct {
	c      *robfig.Cron
	logger *zap.Logger
}

// StartCatalogRefresh schedules Warm with a standard cron expression or a
// descriptor like "@every 15m". An empty schedule disables the job and returns nil.
func StartCatalogRefresh(schedule string, loc *time.Location, w Warmer, popular []int, timeout time.Duration, logger *zap.Logger) (*CatalogRefresh, error) {
	if schedule == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	c := robfig.New(robfig.WithLocation(loc), robfig.WithChain(robfig.SkipIfStillRunning(robfig.DiscardLogger)))
	if _, err := c.AddFunc(schedule, refreshJob(w, popular, timeout)); err != nil {
		return nil, fmt.Errorf("cron: invalid catalog refresh schedule %q: %w", schedule, err)
	}
	c.Start()
	logger.Info("catalog refresh scheduled", zap.String("schedule", schedule))
	return &CatalogRefresh{c: c, logger: logger}, nil
}

func refreshJob(w Warmer, popular []int, timeout time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		w.Warm(ctx, popular)
	}
}

// Stop waits for a running refresh to finish.
func (r *CatalogRefresh) Stop() {
	if r == nil {
		return
	}
	<-r.c.Stop().Done()
	r.logger.Info("catalog refresh stopped")
}
