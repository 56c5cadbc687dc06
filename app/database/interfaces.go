package database

import (
	"context"
	"time"
)

type ArticleStore interface {
	InsertIfNew(ctx context.Context, article Article) (int64, bool, error)
	BulkInsert(ctx context.Context, articles []Article) (BulkResult, error)
	Query(ctx context.Context, filter Filter, limit, offset int) ([]Article, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Get(ctx context.Context, id int64) (*Article, error)
	DistinctSources(ctx context.Context) ([]string, error)
	CountBySource(ctx context.Context) ([]SourceCount, error)
	Stats(ctx context.Context, recentHours int, now time.Time) (*Stats, error)
}

type ReviewStore interface {
	Sync(ctx context.Context, now time.Time) (SyncResult, error)
	List(ctx context.Context, filter ReviewFilter, limit, offset int) ([]ReviewArticle, error)
	Count(ctx context.Context, filter ReviewFilter) (int, error)
	SetOutcome(ctx context.Context, ids []int64, outcome, modifiedBy string) (int64, error)
	SetStorygroup(ctx context.Context, ids []int64, storygroup, modifiedBy string) (int64, error)
	OutcomeCounts(ctx context.Context) (map[string]int, error)
}

type FeedStore interface {
	SyncSources(ctx context.Context, sources []FeedSource, now time.Time) (int, error)
	SetActive(ctx context.Context, url string, active bool) error
	InactiveURLs(ctx context.Context) (map[string]bool, error)
	MarkFetched(ctx context.Context, url string, at time.Time) error
	List(ctx context.Context) ([]FeedSource, error)
}
