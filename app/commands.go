package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lysyi3m/news-sieve/app/cfg"
	"github.com/lysyi3m/news-sieve/app/classify"
	"github.com/lysyi3m/news-sieve/app/database"
	"github.com/lysyi3m/news-sieve/app/feed"
	"github.com/lysyi3m/news-sieve/app/ingest"
	"github.com/lysyi3m/news-sieve/app/report"
	"github.com/lysyi3m/news-sieve/app/tasks"
)

const (
	statsHours    = 24
	maxQueryLimit = 1000
)

// app holds the components shared by every command.
type app struct {
	cfg      *cfg.Cfg
	db       *database.DB
	registry *feed.Registry
	articles *database.ArticleRepository
	reviews  *database.ReviewRepository
	feeds    *database.FeedRepository
}

func openApp(c *cfg.Cfg) (*app, error) {
	registry, err := feed.LoadRegistry(c.FeedsConfig)
	if err != nil {
		return nil, err
	}
	slog.Debug("Loaded feed registry", "path", c.FeedsConfig, "feeds", registry.Len())

	db, err := database.OpenAndMigrate(c.DBPath)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      c,
		db:       db,
		registry: registry,
		articles: database.NewArticleRepository(db),
		reviews:  database.NewReviewRepository(db),
		feeds:    database.NewFeedRepository(db),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

func (a *app) runner() (*ingest.Runner, error) {
	classifier, err := a.classifier()
	if err != nil {
		return nil, err
	}

	fetcher := feed.NewFetcher(&http.Client{}, a.cfg.UserAgent, time.Duration(a.cfg.FetchTimeout)*time.Second)
	aggregator := feed.NewAggregator(fetcher, feed.NewParser(), feed.NewFilterer(), feed.NewContentExtractor(),
		time.Duration(a.cfg.FetchDelay)*time.Millisecond, a.cfg.WorkerCount)

	return ingest.NewRunner(a.registry, aggregator, classifier, a.articles, a.feeds), nil
}

func (a *app) classifier() (*classify.Classifier, error) {
	var (
		tables *classify.Tables
		scorer *classify.LexiconScorer
		err    error
	)

	if a.cfg.ClassifierTables != "" {
		tables, err = classify.LoadTables(a.cfg.ClassifierTables)
	} else {
		tables, err = classify.DefaultTables()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load classifier tables: %w", err)
	}

	if a.cfg.Lexicon != "" {
		scorer, err = classify.LoadLexicon(a.cfg.Lexicon)
	} else {
		scorer, err = classify.DefaultLexiconScorer()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sentiment lexicon: %w", err)
	}

	return classify.NewClassifier(tables, scorer), nil
}

func (a *app) syncSources(ctx context.Context) error {
	added, err := a.feeds.SyncSources(ctx, tasks.FeedSources(a.registry), time.Now())
	if err != nil {
		return err
	}
	if added > 0 {
		slog.Info("Registered new feed sources", "added", added)
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// setup loads shared state for a one-shot command.
func setup() (*app, context.Context, func(), error) {
	appCfg := cfg.Get()
	setupLogging(appCfg)

	a, err := openApp(appCfg)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, stop := signalContext()
	return a, ctx, func() {
		stop()
		a.Close()
	}, nil
}

type fetchCommand struct {
	DryRun bool   `long:"dry-run" description:"Fetch and classify without storing anything"`
	Source string `long:"source" short:"s" description:"Fetch only this source (display name or registry key)"`
}

func (f *fetchCommand) Execute(args []string) error {
	a, ctx, done, err := setup()
	if err != nil {
		return err
	}
	defer done()

	if !f.DryRun {
		if err := a.syncSources(ctx); err != nil {
			return err
		}
	}

	runner, err := a.runner()
	if err != nil {
		return err
	}

	summary, err := runner.Run(ctx, ingest.Options{DryRun: f.DryRun, Source: f.Source})
	if err != nil {
		if errors.Is(err, ingest.ErrUnknownSource) {
			return fmt.Errorf("%w (available: %s)", err, strings.Join(a.registry.SourceNames(), ", "))
		}
		return err
	}

	report.NewRenderer().Summary(os.Stdout, summary)
	return nil
}

type queryCommand struct {
	Source      string `long:"source" short:"s" description:"Filter by source"`
	Category    string `long:"category" short:"c" description:"Filter by category"`
	Topic       string `long:"topic" description:"Filter by classified topic"`
	ParentTopic string `long:"parent-topic" description:"Filter by a topic or any of its subtopics"`
	Hours       int    `long:"hours" default:"24" description:"Articles from the last N hours (0 for no limit)"`
	Limit       int    `long:"limit" short:"l" default:"10" description:"Number of articles per page"`
	Page        int    `long:"page" short:"p" default:"1" description:"Page number"`
	Full        bool   `long:"full" short:"f" description:"Show full article details"`
	Search      string `long:"search" description:"Search titles and descriptions; every term must match"`
	Stats       bool   `long:"stats" description:"Show database statistics"`
	Sources     bool   `long:"sources" description:"List all sources"`
	Browse      bool   `long:"browse" short:"b" description:"Interactive browse mode"`
}

func (q *queryCommand) Execute(args []string) error {
	a, ctx, done, err := setup()
	if err != nil {
		return err
	}
	defer done()

	renderer := report.NewRenderer()
	page, limit := q.pageWindow()

	switch {
	case q.Stats:
		stats, err := a.articles.Stats(ctx, statsHours, time.Now())
		if err != nil {
			return err
		}
		renderer.Stats(os.Stdout, stats)

		counts, err := a.reviews.OutcomeCounts(ctx)
		if err != nil {
			return err
		}
		fmt.Println()
		renderer.Outcomes(os.Stdout, counts)
		return nil

	case q.Sources:
		sources, err := a.articles.DistinctSources(ctx)
		if err != nil {
			return err
		}
		renderer.Sources(os.Stdout, sources)
		return nil

	case q.Browse:
		return report.NewBrowser(a.articles, renderer, os.Stdout, q.filter(), page, limit, q.Full).Run(ctx)
	}

	filter := q.filter()
	if q.Search != "" {
		// Search ignores the time window.
		filter.Since = time.Time{}
		fmt.Println(report.HeaderStyle.Render(fmt.Sprintf("Search results for: %q", q.Search)))
	} else {
		fmt.Println(report.HeaderStyle.Render("Recent articles"))
	}
	if q.Source != "" {
		fmt.Printf("Source: %s\n", q.Source)
	}
	if q.Category != "" {
		fmt.Printf("Category: %s\n", q.Category)
	}
	if q.ParentTopic != "" {
		fmt.Printf("Topic family: %s\n", q.ParentTopic)
	}
	if !filter.Since.IsZero() {
		fmt.Printf("Last %d hours\n", min(q.Hours, database.MaxHours))
	}

	offset := (page - 1) * limit
	articles, err := a.articles.Query(ctx, filter, limit, offset)
	if err != nil {
		return err
	}

	if page > 1 || len(articles) == limit {
		total, err := a.articles.Count(ctx, filter)
		if err != nil {
			return err
		}
		pages := max((total+limit-1)/limit, 1)
		fmt.Println()
		renderer.Page(os.Stdout, page, pages, total)
		if page < pages {
			fmt.Println(report.DimStyle.Render(fmt.Sprintf("Next page: --page %d", page+1)))
		}
	}

	renderer.Articles(os.Stdout, articles, offset+1, q.Full)
	return nil
}

// pageWindow clamps the paging flags so the offset cannot overflow.
func (q *queryCommand) pageWindow() (int, int) {
	return min(max(q.Page, 1), database.MaxPage), min(max(q.Limit, 1), maxQueryLimit)
}

func (q *queryCommand) filter() database.Filter {
	filter := database.Filter{
		Source:      q.Source,
		Category:    q.Category,
		Topic:       q.Topic,
		ParentTopic: q.ParentTopic,
		Search:      q.Search,
	}
	if q.Hours > 0 {
		hours := min(q.Hours, database.MaxHours)
		filter.Since = time.Now().Add(-time.Duration(hours) * time.Hour)
	}
	return filter
}

type syncCommand struct{}

func (s *syncCommand) Execute(args []string) error {
	a, ctx, done, err := setup()
	if err != nil {
		return err
	}
	defer done()

	result, err := a.reviews.Sync(ctx, time.Now())
	if err != nil {
		return err
	}

	counts, err := a.reviews.OutcomeCounts(ctx)
	if err != nil {
		return err
	}

	renderer := report.NewRenderer()
	renderer.ReviewSync(os.Stdout, result)
	fmt.Println()
	renderer.Outcomes(os.Stdout, counts)
	return nil
}

type feedsCommand struct {
	Args struct {
		Action string `positional-arg-name:"action" description:"list, enable or disable"`
		URL    string `positional-arg-name:"url" description:"Feed URL for enable and disable"`
	} `positional-args:"yes"`
}

func (f *feedsCommand) Execute(args []string) error {
	a, ctx, done, err := setup()
	if err != nil {
		return err
	}
	defer done()

	if err := a.syncSources(ctx); err != nil {
		return err
	}

	switch action := strings.ToLower(f.Args.Action); action {
	case "", "list":
	case "enable", "disable":
		if f.Args.URL == "" {
			return fmt.Errorf("%s requires a feed URL", action)
		}
		err := a.feeds.SetActive(ctx, f.Args.URL, action == "enable")
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("unknown feed URL: %s", f.Args.URL)
		}
		if err != nil {
			return err
		}
		fmt.Println(report.SuccessStyle.Render(fmt.Sprintf("Feed %sd: %s", action, f.Args.URL)))
		fmt.Println()
	default:
		return fmt.Errorf("unknown action %q (expected list, enable or disable)", f.Args.Action)
	}

	feeds, err := a.feeds.List(ctx)
	if err != nil {
		return err
	}
	report.NewRenderer().Feeds(os.Stdout, feeds)
	return nil
}
