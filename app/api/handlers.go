package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/news-sieve/app/database"
	"github.com/lysyi3m/news-sieve/app/feed"
	"github.com/lysyi3m/news-sieve/app/tasks"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	feedLimit    = 50
)

// NewHandler wires the HTTP handlers. reviews, feeds and scheduler may be nil;
// the endpoints that need them then answer 503.
func NewHandler(articles database.ArticleStore, reviews database.ReviewStore, feeds database.FeedStore,
	scheduler tasks.TaskSchedulerInterface, baseURL, version string) *Handler {
	return &Handler{
		articles:  articles,
		reviews:   reviews,
		feeds:     feeds,
		generator: feed.NewGenerator(),
		scheduler: scheduler,
		baseURL:   baseURL,
		version:   version,
		now:       time.Now,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": h.now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
	}

	count, err := h.articles.Count(c.Request.Context(), database.Filter{})
	if err != nil {
		slog.Error("Database error", "operation", "count_articles", "error", err)
		health["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	health["articles"] = count

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	hours, err := intParam(c, "hours", 24)
	if err != nil || hours < 0 || hours > database.MaxHours {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid hours parameter"})
		return
	}

	stats, err := h.articles.Stats(c.Request.Context(), hours, h.now())
	if err != nil {
		slog.Error("Database error", "operation", "stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	perSource := make([]gin.H, 0, len(stats.PerSource))
	for _, sc := range stats.PerSource {
		perSource = append(perSource, gin.H{"source": sc.Source, "count": sc.Count})
	}

	c.JSON(http.StatusOK, gin.H{
		"total":        stats.Total,
		"sources":      stats.Sources,
		"recent":       stats.Recent,
		"recent_hours": stats.RecentHours,
		"per_source":   perSource,
	})
}

func (h *Handler) GetSources(c *gin.Context) {
	sources, err := h.articles.DistinctSources(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "distinct_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if sources == nil {
		sources = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"sources": sources, "total": len(sources)})
}

func (h *Handler) ListArticles(c *gin.Context) {
	filter, err := h.articleFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, page, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	total, err := h.articles.Count(ctx, filter)
	if err != nil {
		slog.Error("Database error", "operation", "count_articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	articles, err := h.articles.Query(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		slog.Error("Database error", "operation", "query_articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	full := c.Query("full") == "true"
	items := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		items = append(items, newArticleResponse(a, full))
	}

	c.JSON(http.StatusOK, PageResponse{Total: total, Page: page, Limit: limit, Items: items})
}

func (h *Handler) GetArticle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid article id"})
		return
	}

	article, err := h.articles.Get(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "get_article", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, newArticleResponse(*article, true))
}

// GetFeed exports matching articles as RSS 2.0.
func (h *Handler) GetFeed(c *gin.Context) {
	filter, err := h.articleFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit, err := intParam(c, "limit", feedLimit)
	if err != nil || limit < 1 || limit > maxLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}

	articles, err := h.articles.Query(c.Request.Context(), filter, limit, 0)
	if err != nil {
		slog.Error("Database error", "operation", "query_articles", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	channel := feed.Channel{
		Title:     "news-sieve",
		Link:      h.publicURL(c, "/"),
		SelfURL:   h.publicURL(c, c.Request.URL.RequestURI()),
		Generator: fmt.Sprintf("news-sieve/%s", h.version),
	}
	if filter.Topic != "" {
		channel.Title = "news-sieve: " + filter.Topic
	}

	rss, err := h.generator.Run(channel, articles)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(articles)))

	c.String(http.StatusOK, rss)
}

func (h *Handler) APIListReview(c *gin.Context) {
	if h.reviews == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Review store not available"})
		return
	}

	filter := database.ReviewFilter{
		Outcome:    c.Query("outcome"),
		Source:     c.Query("source"),
		Storygroup: c.Query("storygroup"),
		Search:     c.Query("q"),
	}

	limit, page, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	total, err := h.reviews.Count(ctx, filter)
	if err != nil {
		slog.Error("Database error", "operation", "count_review", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	rows, err := h.reviews.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_review", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	items := make([]ReviewResponse, 0, len(rows))
	for _, r := range rows {
		items = append(items, newReviewResponse(r))
	}

	outcomes, err := h.reviews.OutcomeCounts(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "outcome_counts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"page":     page,
		"limit":    limit,
		"items":    items,
		"outcomes": outcomes,
	})
}

func (h *Handler) APISetOutcome(c *gin.Context) {
	if h.reviews == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Review store not available"})
		return
	}

	var req OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	updated, err := h.reviews.SetOutcome(c.Request.Context(), req.IDs, req.Outcome, modifiedBy(req.ModifiedBy))
	if errors.Is(err, database.ErrInvalidOutcome) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "set_outcome", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated, "outcome": req.Outcome})
}

func (h *Handler) APISetStorygroup(c *gin.Context) {
	if h.reviews == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Review store not available"})
		return
	}

	var req StorygroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	updated, err := h.reviews.SetStorygroup(c.Request.Context(), req.IDs, req.Storygroup, modifiedBy(req.ModifiedBy))
	if err != nil {
		slog.Error("Database error", "operation", "set_storygroup", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated, "storygroup": req.Storygroup})
}

func (h *Handler) APISyncReview(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not available"})
		return
	}

	id, err := h.scheduler.EnqueueReviewSync()
	if err != nil {
		slog.Error("Error enqueueing review sync", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue review sync", "details": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task":    gin.H{"id": id, "type": tasks.TaskTypeSyncReview},
	})
}

func (h *Handler) APIStartRun(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not available"})
		return
	}

	var req RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
			return
		}
	}

	id, err := h.scheduler.EnqueueIngest(req.Source)
	if err != nil {
		slog.Error("Error enqueueing ingest task", "source", req.Source, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue run", "details": err.Error()})
		return
	}

	target := req.Source
	if target == "" {
		target = tasks.AllSources
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task":    gin.H{"id": id, "type": tasks.TaskTypeIngest, "target": target},
	})
}

func (h *Handler) APIListRuns(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not available"})
		return
	}

	runs := h.scheduler.History()
	c.JSON(http.StatusOK, gin.H{"runs": runs, "total": len(runs)})
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	if h.feeds == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feed store not available"})
		return
	}

	sources, err := h.feeds.List(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	feeds := make([]gin.H, 0, len(sources))
	for _, src := range sources {
		feeds = append(feeds, gin.H{
			"id":           src.ID,
			"name":         src.Name,
			"url":          src.URL,
			"category":     src.Category,
			"active":       src.Active,
			"last_fetched": src.LastFetched,
			"created_at":   src.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"feeds": feeds, "total": len(feeds)})
}

func (h *Handler) APISetFeedActive(c *gin.Context) {
	if h.feeds == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feed store not available"})
		return
	}

	var req FeedActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	err := h.feeds.SetActive(c.Request.Context(), req.URL, *req.Active)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "set_feed_active", "feed", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "url": req.URL, "active": *req.Active})
}

func (h *Handler) articleFilter(c *gin.Context) (database.Filter, error) {
	filter := database.Filter{
		Source:      c.Query("source"),
		Category:    c.Query("category"),
		Topic:       c.Query("topic"),
		ParentTopic: c.Query("parent_topic"),
		Search:      c.Query("q"),
	}

	hours, err := intParam(c, "hours", 0)
	if err != nil || hours < 0 || hours > database.MaxHours {
		return filter, fmt.Errorf("invalid hours parameter")
	}
	if hours > 0 {
		filter.Since = h.now().Add(-time.Duration(hours) * time.Hour)
	}

	return filter, nil
}

func (h *Handler) publicURL(c *gin.Context, path string) string {
	if h.baseURL != "" {
		return h.baseURL + path
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + path
}

func pagination(c *gin.Context) (int, int, error) {
	limit, err := intParam(c, "limit", defaultLimit)
	if err != nil || limit < 1 || limit > maxLimit {
		return 0, 0, fmt.Errorf("invalid limit parameter")
	}

	page, err := intParam(c, "page", 1)
	if err != nil || page < 1 || page > database.MaxPage {
		return 0, 0, fmt.Errorf("invalid page parameter")
	}

	return limit, page, nil
}

func intParam(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func modifiedBy(name string) string {
	if name == "" {
		return "api"
	}
	return name
}
