package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/news-sieve/app/database"
)

type SyncReviewTask struct {
	Task
	reviews database.ReviewStore
	Result  *database.SyncResult
}

func NewSyncReviewTask(reviews database.ReviewStore) *SyncReviewTask {
	return &SyncReviewTask{
		Task:    NewTask(TaskTypeSyncReview, AllSources),
		reviews: reviews,
	}
}

func (t *SyncReviewTask) Finish(err error) Record {
	rec := t.Task.Finish(err)
	if err == nil {
		rec.Review = t.Result
	}
	return rec
}

func (t *SyncReviewTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.reviews.Sync(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to sync review store: %w", err)
	}
	t.Result = &result

	slog.Info("Task completed",
		"type", "SyncReview",
		"duration", t.GetDuration(),
		"scanned", result.Scanned,
		"added", result.Added,
		"total", result.Total)

	return nil
}
