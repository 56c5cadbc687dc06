package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/news-sieve/app/database"
	"github.com/lysyi3m/news-sieve/app/feed"
)

// SyncSourcesTask records registry feeds in the feed_sources table. Feeds
// already stored keep their active flag.
type SyncSourcesTask struct {
	Task
	registry *feed.Registry
	feeds    database.FeedStore
}

func NewSyncSourcesTask(registry *feed.Registry, feeds database.FeedStore) *SyncSourcesTask {
	return &SyncSourcesTask{
		Task:     NewTask(TaskTypeSyncSources, AllSources),
		registry: registry,
		feeds:    feeds,
	}
}

func (t *SyncSourcesTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	added, err := t.feeds.SyncSources(ctx, FeedSources(t.registry), time.Now())
	if err != nil {
		return fmt.Errorf("failed to sync feed sources: %w", err)
	}

	slog.Info("Task completed",
		"type", "SyncSources",
		"duration", t.GetDuration(),
		"feeds", t.registry.Len(),
		"added", added)

	return nil
}

// FeedSources converts registry entries to feed_sources rows.
func FeedSources(registry *feed.Registry) []database.FeedSource {
	var sources []database.FeedSource
	for _, src := range registry.All() {
		sources = append(sources, database.FeedSource{
			Name:     src.Name,
			URL:      src.URL,
			Category: src.Category,
		})
	}
	return sources
}
