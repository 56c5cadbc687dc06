package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// FeedResult is the outcome of one feed. Err is set when the feed could not be
// fetched or parsed; Articles is then empty.
type FeedResult struct {
	Source   Source
	Articles []Article
	Filtered int
	Err      error
}

type Aggregator struct {
	fetcher          *Fetcher
	parser           *Parser
	filterer         *Filterer
	contentExtractor *ContentExtractor
	limiter          *rate.Limiter
	workerCount      int
	now              func() time.Time
}

// NewAggregator spaces every outbound request by at least delay. A zero delay
// disables throttling. workerCount <= 1 fetches feeds one at a time.
func NewAggregator(fetcher *Fetcher, parser *Parser, filterer *Filterer, contentExtractor *ContentExtractor, delay time.Duration, workerCount int) *Aggregator {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	if workerCount < 1 {
		workerCount = 1
	}

	return &Aggregator{
		fetcher:          fetcher,
		parser:           parser,
		filterer:         filterer,
		contentExtractor: contentExtractor,
		limiter:          rate.NewLimiter(limit, 1),
		workerCount:      workerCount,
		now:              time.Now,
	}
}

// ParseFeed never fails: transport and parse errors are logged and yield no articles.
func (a *Aggregator) ParseFeed(ctx context.Context, src Source) []Article {
	return a.collect(ctx, src).Articles
}

// ParseAll returns the articles of every source, concatenated in source order.
// The only error is cancellation of ctx, in which case nothing is returned.
func (a *Aggregator) ParseAll(ctx context.Context, sources []Source) ([]Article, error) {
	results, err := a.Collect(ctx, sources)
	if err != nil {
		return nil, err
	}

	var articles []Article
	for _, result := range results {
		articles = append(articles, result.Articles...)
	}
	return articles, nil
}

// Collect is ParseAll with per-feed detail.
func (a *Aggregator) Collect(ctx context.Context, sources []Source) ([]FeedResult, error) {
	results := make([]FeedResult, len(sources))

	if a.workerCount == 1 {
		for i, src := range sources {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = a.collect(ctx, src)
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, a.workerCount)

		for i, src := range sources {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}

			wg.Add(1)
			go func(i int, src Source) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i] = a.collect(ctx, src)
			}(i, src)
		}

		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

func (a *Aggregator) collect(ctx context.Context, src Source) FeedResult {
	result := FeedResult{Source: src}

	if err := a.limiter.Wait(ctx); err != nil {
		result.Err = err
		return result
	}

	data, err := a.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		slog.Warn("Failed to fetch feed", "source", src.Name, "feed", src.URL, "error", err)
		result.Err = err
		return result
	}

	articles, err := a.parser.Run(data, src, a.now())
	if err != nil {
		slog.Warn("Failed to parse feed", "source", src.Name, "feed", src.URL, "error", err)
		result.Err = err
		return result
	}

	if a.filterer != nil {
		articles, result.Filtered = a.filterer.Run(articles, src.Filters)
	}

	if src.ExtractContent && a.contentExtractor != nil {
		a.extractContent(ctx, articles)
	}

	slog.Debug("Feed parsed", "source", src.Name, "feed", src.URL, "articles", len(articles), "filtered", result.Filtered)

	result.Articles = articles
	return result
}

func (a *Aggregator) extractContent(ctx context.Context, articles []Article) {
	for i := range articles {
		link := articles[i].Link
		if link == "" {
			continue
		}

		if err := a.limiter.Wait(ctx); err != nil {
			return
		}

		data, err := a.fetcher.FetchHTML(ctx, link)
		if err != nil {
			slog.Debug("Content extraction skipped", "link", link, "error", err)
			continue
		}

		content, err := a.contentExtractor.Run(data)
		if err != nil {
			slog.Debug("Content extraction failed", "link", link, "error", err)
			continue
		}

		articles[i].Content = content
	}
}
