package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var _ ArticleStore = (*ArticleRepository)(nil)

var articleColumns = []string{
	"id", "title", "link", "description", "summary", "content", "source", "category",
	"feed_url", "guid", "author", "tags", "published", "fetched_at", "topics", "geographies",
	"sentiment_label", "polarity", "subjectivity", "additional_tags", "created_at",
}

// ArticleRepository handles database operations for classified articles
type ArticleRepository struct {
	db  *DB
	now func() time.Time
}

func NewArticleRepository(db *DB) *ArticleRepository {
	return &ArticleRepository{db: db, now: time.Now}
}

func (r *ArticleRepository) InsertIfNew(ctx context.Context, article Article) (int64, bool, error) {
	row, err := r.row(article)
	if err != nil {
		return 0, false, err
	}
	return insertIfNew(ctx, r.db, "articles", KeyOf(article.Title, article.Source, article.Published), row)
}

// BulkInsert stores articles in one transaction. Duplicates are skipped and
// counted; any other failure rolls back the whole batch.
func (r *ArticleRepository) BulkInsert(ctx context.Context, articles []Article) (BulkResult, error) {
	var result BulkResult

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, article := range articles {
		row, err := r.row(article)
		if err != nil {
			return BulkResult{}, err
		}

		_, inserted, err := insertIfNew(ctx, tx, "articles", KeyOf(article.Title, article.Source, article.Published), row)
		if err != nil {
			return BulkResult{}, err
		}

		if inserted {
			result.Inserted++
		} else {
			slog.Debug("Article already stored", "source", article.Source, "title", article.Title)
			result.Duplicates++
		}
	}

	if err := tx.Commit(); err != nil {
		return BulkResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

func (r *ArticleRepository) Query(ctx context.Context, filter Filter, limit, offset int) ([]Article, error) {
	b := filter.apply(sq.Select(articleColumns...).From("articles")).
		OrderBy("published DESC", "id DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	if offset > 0 {
		b = b.Offset(uint64(offset))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build articles query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func (r *ArticleRepository) Count(ctx context.Context, filter Filter) (int, error) {
	query, args, err := filter.apply(sq.Select("COUNT(*)").From("articles")).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

func (r *ArticleRepository) Get(ctx context.Context, id int64) (*Article, error) {
	query, args, err := sq.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build article query: %w", err)
	}

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return article, nil
}

func (r *ArticleRepository) DistinctSources(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT source FROM articles ORDER BY source")
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

// CountBySource returns article counts per source, largest first.
func (r *ArticleRepository) CountBySource(ctx context.Context) ([]SourceCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source, COUNT(*) AS n
		FROM articles
		GROUP BY source
		ORDER BY n DESC, source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by source: %w", err)
	}
	defer rows.Close()

	var counts []SourceCount
	for rows.Next() {
		var c SourceCount
		if err := rows.Scan(&c.Source, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source counts: %w", err)
	}

	return counts, nil
}

func (r *ArticleRepository) Stats(ctx context.Context, recentHours int, now time.Time) (*Stats, error) {
	total, err := r.Count(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	recent, err := r.Count(ctx, Filter{Since: now.Add(-time.Duration(recentHours) * time.Hour)})
	if err != nil {
		return nil, err
	}

	perSource, err := r.CountBySource(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Total:       total,
		Sources:     len(perSource),
		Recent:      recent,
		RecentHours: recentHours,
		PerSource:   perSource,
	}, nil
}

func (r *ArticleRepository) row(a Article) (map[string]any, error) {
	tags, err := marshalJSON(a.Tags)
	if err != nil {
		return nil, err
	}
	topics, err := marshalJSON(a.Topics)
	if err != nil {
		return nil, err
	}
	geographies, err := marshalJSON(a.Geographies)
	if err != nil {
		return nil, err
	}
	additional, err := marshalJSON(a.AdditionalTags)
	if err != nil {
		return nil, err
	}

	category := a.Category
	if category == "" {
		category = "general"
	}
	label := a.SentimentLabel
	if label == "" {
		label = "neutral"
	}

	return map[string]any{
		"title":           a.Title,
		"link":            a.Link,
		"description":     a.Description,
		"summary":         a.Summary,
		"content":         a.Content,
		"source":          a.Source,
		"category":        category,
		"feed_url":        a.FeedURL,
		"guid":            a.GUID,
		"author":          a.Author,
		"tags":            tags,
		"published":       formatTime(a.Published),
		"fetched_at":      formatTime(a.FetchedAt),
		"topics":          topics,
		"geographies":     geographies,
		"sentiment_label": label,
		"polarity":        a.Polarity,
		"subjectivity":    a.Subjectivity,
		"additional_tags": additional,
		"created_at":      formatTime(r.now()),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(s rowScanner) (*Article, error) {
	var (
		a                                     Article
		tags, topics, geographies, additional string
		published, fetchedAt, createdAt       string
	)

	err := s.Scan(
		&a.ID, &a.Title, &a.Link, &a.Description, &a.Summary, &a.Content, &a.Source, &a.Category,
		&a.FeedURL, &a.GUID, &a.Author, &tags, &published, &fetchedAt, &topics, &geographies,
		&a.SentimentLabel, &a.Polarity, &a.Subjectivity, &additional, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan article row: %w", err)
	}

	if a.Published, err = parseTime(published); err != nil {
		return nil, err
	}
	if a.FetchedAt, err = parseTime(fetchedAt); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	for _, field := range []struct {
		raw  string
		dest any
	}{
		{tags, &a.Tags},
		{topics, &a.Topics},
		{geographies, &a.Geographies},
		{additional, &a.AdditionalTags},
	} {
		if err := json.Unmarshal([]byte(field.raw), field.dest); err != nil {
			return nil, fmt.Errorf("failed to decode article %d: %w", a.ID, err)
		}
	}

	return &a, nil
}

// marshalJSON encodes nil slices as [] so stored columns are always arrays.
func marshalJSON[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode column: %w", err)
	}
	return string(data), nil
}
