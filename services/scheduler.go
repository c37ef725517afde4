// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const backfillBatchSize = 50

// ResultBackfill finalizes matches that reached finished without a stored result,
// e.g. when the database failed right after the finishing transition.
type ResultBackfill struct {
	Store      MatchStore
	Aggregator *ResultAggregator
	Interval   time.Duration
}

func NewResultBackfill(store MatchStore, aggregator *ResultAggregator, interval time.Duration) *ResultBackfill {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ResultBackfill{Store: store, Aggregator: aggregator, Interval: interval}
}

// RunOnce computes results for one batch and returns how many were written.
func (b *ResultBackfill) RunOnce(ctx context.Context) (int, error) {
	matches, err := b.Store.ListFinishedWithoutResult(ctx, backfillBatchSize)
	if err != nil {
		return 0, err
	}

	written := 0
	for i := range matches {
		m := &matches[i]
		if _, created, err := b.Aggregator.Compute(ctx, m); err != nil {
			log.Printf("[Scheduler] Failed to backfill result for match %s: %v", m.ID, err)
		} else if created {
			written++
			log.Printf("✅ Backfilled result for match: %s", m.ID)
		}
	}
	return written, nil
}

// Start runs RunOnce every Interval until the returned scheduler is shut down.
func (b *ResultBackfill) Start(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(b.Interval),
		gocron.NewTask(func() {
			if _, err := b.RunOnce(ctx); err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
