package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/news-sieve/app/classify"
	"github.com/lysyi3m/news-sieve/app/database"
	"github.com/lysyi3m/news-sieve/app/feed"
)

const fedFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Wire</title>
    <link>https://wire.example</link>
    <description>Wire news</description>
    <item>
      <title>Fed raises interest rates amid inflation fears</title>
      <link>https://wire.example/fed</link>
      <description>The Federal Reserve moved again.</description>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

const emptyFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Empty</title><link>https://empty.example</link><description>-</description></channel></rss>`

type testEnv struct {
	server   *httptest.Server
	db       *database.DB
	articles *database.ArticleRepository
	feeds    *database.FeedRepository
	registry *feed.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/wire", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fedFeed))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(emptyFeed))
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	db, err := database.OpenAndMigrate(filepath.Join(t.TempDir(), "news.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	registry := feed.NewRegistry([]feed.Source{
		{Key: "wire", Name: "Wire", URL: server.URL + "/wire", Category: "economics", Active: true},
		{Key: "empty", Name: "Empty", URL: server.URL + "/empty", Category: "general", Active: true},
		{Key: "down", Name: "Down", URL: server.URL + "/down", Category: "general", Active: true},
	})

	return &testEnv{
		server:   server,
		db:       db,
		articles: database.NewArticleRepository(db),
		feeds:    database.NewFeedRepository(db),
		registry: registry,
	}
}

func (e *testEnv) runner(t *testing.T) *Runner {
	t.Helper()

	tables, err := classify.DefaultTables()
	if err != nil {
		t.Fatalf("Failed to load tables: %v", err)
	}
	scorer, err := classify.DefaultLexiconScorer()
	if err != nil {
		t.Fatalf("Failed to load lexicon: %v", err)
	}

	fetcher := feed.NewFetcher(e.server.Client(), "", time.Second)
	aggregator := feed.NewAggregator(fetcher, feed.NewParser(), feed.NewFilterer(), nil, 0, 1)

	return NewRunner(e.registry, aggregator, classify.NewClassifier(tables, scorer), e.articles, e.feeds)
}

func TestRunner_SecondRunCountsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	runner := env.runner(t)
	ctx := context.Background()

	first, err := runner.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if first.Feeds != 3 || first.Failed != 1 {
		t.Errorf("Expected 3 feeds with 1 failure, got %d and %d", first.Feeds, first.Failed)
	}
	if first.Parsed != 1 || first.Classified != 1 || first.New != 1 || first.Duplicates != 0 || first.Total != 1 {
		t.Errorf("Unexpected first run summary: %+v", first)
	}
	if len(first.PerSource) != 1 || first.PerSource[0].Source != "Wire" {
		t.Errorf("Unexpected per-source counts: %v", first.PerSource)
	}

	second, err := runner.Run(ctx, Options{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if second.New != 0 || second.Duplicates != 1 || second.Total != 1 {
		t.Errorf("Unexpected second run summary: %+v", second)
	}

	stored, err := env.articles.Query(ctx, database.Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("Expected 1 stored article, got %d", len(stored))
	}

	article := stored[0]
	if article.Category != "economics" {
		t.Errorf("Expected configured category, got %q", article.Category)
	}
	if len(article.Topics) == 0 || article.Topics[0].Name != "Central Banking" {
		t.Errorf("Expected Central Banking as top topic, got %v", article.Topics)
	}
}

func TestRunner_DryRunStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	summary, err := env.runner(t).Run(ctx, Options{DryRun: true, Source: "wire"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !summary.DryRun || summary.Feeds != 1 || summary.Parsed != 1 {
		t.Errorf("Unexpected dry run summary: %+v", summary)
	}
	if len(summary.Sample) != 1 || summary.Sample[0].Article.Source != "Wire" {
		t.Errorf("Expected one sample from Wire, got %+v", summary.Sample)
	}

	count, err := env.articles.Count(ctx, database.Filter{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected nothing stored on dry run, got %d", count)
	}
}

func TestRunner_UnknownSource(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.runner(t).Run(context.Background(), Options{Source: "Nowhere"})
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Expected ErrUnknownSource, got: %v", err)
	}
}

func TestRunner_SkipsFeedsDisabledInDatabase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var sources []database.FeedSource
	for _, src := range env.registry.All() {
		sources = append(sources, database.FeedSource{Name: src.Name, URL: src.URL, Category: src.Category})
	}
	if _, err := env.feeds.SyncSources(ctx, sources, time.Now()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := env.feeds.SetActive(ctx, env.server.URL+"/wire", false); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	summary, err := env.runner(t).Run(ctx, Options{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if summary.Feeds != 2 || summary.New != 0 {
		t.Errorf("Expected 2 feeds and nothing new, got %+v", summary)
	}

	list, err := env.feeds.List(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	for _, src := range list {
		fetched := src.LastFetched != nil
		switch src.Name {
		case "Empty":
			if !fetched {
				t.Error("Expected Empty to be marked fetched")
			}
		case "Wire", "Down":
			if fetched {
				t.Errorf("Expected %s not to be marked fetched", src.Name)
			}
		}
	}
}

func TestRunner_CancelledRunStoresNothing(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := env.runner(t).Run(ctx, Options{}); err == nil {
		t.Error("Expected cancellation error")
	}

	count, err := env.articles.Count(context.Background(), database.Filter{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected nothing stored, got %d", count)
	}
}

func TestRunner_UndatedEntriesAreStoredEveryRun(t *testing.T) {
	env := newTestEnv(t)

	undated := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Undated</title>
    <link>https://undated.example</link>
    <description>No dates</description>
    <item>
      <title>Markets open flat</title>
      <link>https://undated.example/flat</link>
    </item>
  </channel>
</rss>`))
	}))
	t.Cleanup(undated.Close)

	runner := env.runner(t)
	runner.registry = feed.NewRegistry([]feed.Source{
		{Key: "undated", Name: "Undated", URL: undated.URL, Category: "markets", Active: true},
	})
	ctx := context.Background()

	// The fetch time stands in for the publish time, so each run produces a
	// new identity key for the same entry.
	for run := 1; run <= 2; run++ {
		summary, err := runner.Run(ctx, Options{})
		if err != nil {
			t.Fatalf("Run %d: expected no error, got: %v", run, err)
		}
		if summary.New != 1 || summary.Duplicates != 0 || summary.Total != run {
			t.Errorf("Run %d: expected 1 new 0 duplicates %d total, got %+v", run, run, summary)
		}
	}

	stored, err := env.articles.Query(ctx, database.Filter{Source: "Undated"}, 0, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("Expected 2 stored copies, got %d", len(stored))
	}
	if stored[0].Title != stored[1].Title || stored[0].Published.Equal(stored[1].Published) {
		t.Errorf("Expected same title with distinct fetch-time publish dates, got %v and %v",
			stored[0].Published, stored[1].Published)
	}
	for _, a := range stored {
		if !a.Published.Equal(a.FetchedAt) {
			t.Errorf("Expected publish time to equal fetch time, got %v and %v", a.Published, a.FetchedAt)
		}
	}
}
