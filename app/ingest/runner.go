package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/news-sieve/app/classify"
	"github.com/lysyi3m/news-sieve/app/database"
	"github.com/lysyi3m/news-sieve/app/feed"
)

const DefaultSampleSize = 3

var ErrUnknownSource = errors.New("unknown source")

type Options struct {
	DryRun     bool
	Source     string // display name or key; empty selects every active source
	SampleSize int    // classified articles kept in a dry-run summary
}

type Sample struct {
	Article        feed.Article            `json:"article"`
	Classification classify.Classification `json:"classification"`
}

// Summary reports one pipeline run. New, Duplicates, Total and PerSource stay
// zero on a dry run.
type Summary struct {
	DryRun     bool                   `json:"dry_run"`
	Feeds      int                    `json:"feeds"`
	Failed     int                    `json:"failed"`
	Parsed     int                    `json:"parsed"`
	Filtered   int                    `json:"filtered"`
	Classified int                    `json:"classified"`
	New        int                    `json:"new"`
	Duplicates int                    `json:"duplicates"`
	Total      int                    `json:"total"`
	PerSource  []database.SourceCount `json:"per_source,omitempty"`
	Sample     []Sample               `json:"sample,omitempty"`
	Duration   time.Duration          `json:"duration"`
}

// Runner executes fetch, classify and persist for the configured feeds.
type Runner struct {
	registry   *feed.Registry
	aggregator *feed.Aggregator
	classifier *classify.Classifier
	articles   database.ArticleStore
	feeds      database.FeedStore
	now        func() time.Time
}

// NewRunner wires a pipeline. feeds may be nil, in which case database-side
// feed toggles are ignored.
func NewRunner(registry *feed.Registry, aggregator *feed.Aggregator, classifier *classify.Classifier, articles database.ArticleStore, feeds database.FeedStore) *Runner {
	return &Runner{
		registry:   registry,
		aggregator: aggregator,
		classifier: classifier,
		articles:   articles,
		feeds:      feeds,
		now:        time.Now,
	}
}

// Run performs one pass. Feed-level failures are counted and logged; a
// persistence failure or cancellation aborts the run and nothing from it is
// stored.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := r.now()
	summary := &Summary{DryRun: opts.DryRun}

	sources, err := r.selectSources(ctx, opts.Source)
	if err != nil {
		return nil, err
	}
	summary.Feeds = len(sources)

	slog.Info("Starting ingestion", "feeds", len(sources), "source", opts.Source, "dry_run", opts.DryRun)

	results, err := r.aggregator.Collect(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("ingestion cancelled: %w", err)
	}

	sampleSize := opts.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	var records []database.Article
	for _, result := range results {
		if result.Err != nil {
			summary.Failed++
			continue
		}
		summary.Filtered += result.Filtered

		for _, article := range result.Articles {
			summary.Parsed++

			classification := r.classifier.ClassifyArticle(article)
			summary.Classified++

			if opts.DryRun && len(summary.Sample) < sampleSize {
				summary.Sample = append(summary.Sample, Sample{Article: article, Classification: classification})
			}

			records = append(records, toRecord(article, classification))
		}
	}

	if opts.DryRun {
		summary.Duration = r.now().Sub(start)
		slog.Info("Dry run completed", "feeds", summary.Feeds, "parsed", summary.Parsed, "failed", summary.Failed)
		return summary, nil
	}

	result, err := r.articles.BulkInsert(ctx, records)
	if err != nil {
		slog.Error("Failed to store articles", "error", err)
		return nil, fmt.Errorf("failed to store articles: %w", err)
	}
	summary.New = result.Inserted
	summary.Duplicates = result.Duplicates

	r.markFetched(ctx, results)

	if summary.Total, err = r.articles.Count(ctx, database.Filter{}); err != nil {
		return nil, err
	}
	if summary.PerSource, err = r.articles.CountBySource(ctx); err != nil {
		return nil, err
	}

	summary.Duration = r.now().Sub(start)

	slog.Info("Ingestion completed",
		"feeds", summary.Feeds,
		"failed", summary.Failed,
		"parsed", summary.Parsed,
		"new", summary.New,
		"duplicates", summary.Duplicates,
		"total", summary.Total,
		"duration", summary.Duration)

	return summary, nil
}

func (r *Runner) selectSources(ctx context.Context, name string) ([]feed.Source, error) {
	registry := r.registry

	if r.feeds != nil {
		inactive, err := r.feeds.InactiveURLs(ctx)
		if err != nil {
			return nil, err
		}
		registry = registry.Without(inactive)
	}

	if name == "" {
		return registry.Active(), nil
	}

	sources := registry.BySource(name)
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return sources, nil
}

func (r *Runner) markFetched(ctx context.Context, results []feed.FeedResult) {
	if r.feeds == nil {
		return
	}

	at := r.now()
	for _, result := range results {
		if result.Err != nil {
			continue
		}
		if err := r.feeds.MarkFetched(ctx, result.Source.URL, at); err != nil {
			slog.Warn("Failed to record fetch time", "feed", result.Source.URL, "error", err)
		}
	}
}

func toRecord(a feed.Article, c classify.Classification) database.Article {
	return database.Article{
		Title:          a.Title,
		Link:           a.Link,
		Description:    a.Description,
		Summary:        a.Summary,
		Content:        a.Content,
		Source:         a.Source,
		Category:       a.Category,
		FeedURL:        a.FeedURL,
		GUID:           a.GUID,
		Author:         a.Author,
		Tags:           a.Tags,
		Published:      a.Published,
		FetchedAt:      a.FetchedAt,
		Topics:         toTagScores(c.Topics),
		Geographies:    toTagScores(c.Geographies),
		SentimentLabel: c.Sentiment.Label,
		Polarity:       c.Sentiment.Polarity,
		Subjectivity:   c.Sentiment.Subjectivity,
		AdditionalTags: c.AdditionalTags,
	}
}

func toTagScores(scores []classify.Score) []database.TagScore {
	tags := make([]database.TagScore, len(scores))
	for i, s := range scores {
		tags[i] = database.TagScore(s)
	}
	return tags
}
