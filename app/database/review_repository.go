package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var _ ReviewStore = (*ReviewRepository)(nil)

var ErrInvalidOutcome = errors.New("invalid outcome")

var reviewColumns = []string{
	"id", "title", "link", "description", "summary", "content", "source", "category",
	"feed_url", "guid", "author", "published", "fetched_at", "time_added", "added_by",
	"modified_by", "outcome", "storygroup", "source_article_id", "last_synced",
}

// ReviewRepository is the secondary store where synced articles wait for a
// human decision.
type ReviewRepository struct {
	db *DB
}

func NewReviewRepository(db *DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Sync copies every article not yet under review, using the same identity
// key as ingestion. All copies are committed together.
func (r *ReviewRepository) Sync(ctx context.Context, now time.Time) (SyncResult, error) {
	var result SyncResult

	// Read the primary rows before opening the transaction: the pool has a
	// single connection.
	articles, err := r.primaryArticles(ctx)
	if err != nil {
		return result, err
	}
	result.Scanned = len(articles)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stamp := formatTime(now)
	for _, a := range articles {
		row := map[string]any{
			"title":             a.Title,
			"link":              a.Link,
			"description":       a.Description,
			"summary":           a.Summary,
			"content":           a.Content,
			"source":            a.Source,
			"category":          a.Category,
			"feed_url":          a.FeedURL,
			"guid":              a.GUID,
			"author":            a.Author,
			"published":         formatTime(a.Published),
			"fetched_at":        formatTime(a.FetchedAt),
			"time_added":        stamp,
			"added_by":          SystemUser,
			"outcome":           OutcomeNew,
			"source_article_id": a.ID,
			"last_synced":       stamp,
		}

		_, inserted, err := insertIfNew(ctx, tx, "review_articles", KeyOf(a.Title, a.Source, a.Published), row)
		if err != nil {
			return SyncResult{}, err
		}
		if inserted {
			result.Added++
		}
	}

	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM review_articles").Scan(&result.Total); err != nil {
		return SyncResult{}, fmt.Errorf("failed to count review articles: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return SyncResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("Review store synced", "scanned", result.Scanned, "added", result.Added, "total", result.Total)

	return result, nil
}

func (r *ReviewRepository) primaryArticles(ctx context.Context) ([]Article, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, link, description, summary, content, source, category,
		       feed_url, guid, author, published, fetched_at
		FROM articles
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var (
			a                    Article
			published, fetchedAt string
		)
		err := rows.Scan(&a.ID, &a.Title, &a.Link, &a.Description, &a.Summary, &a.Content, &a.Source,
			&a.Category, &a.FeedURL, &a.GUID, &a.Author, &published, &fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		if a.Published, err = parseTime(published); err != nil {
			return nil, err
		}
		if a.FetchedAt, err = parseTime(fetchedAt); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

// List returns review rows, newest additions first.
func (r *ReviewRepository) List(ctx context.Context, filter ReviewFilter, limit, offset int) ([]ReviewArticle, error) {
	b := filter.apply(sq.Select(reviewColumns...).From("review_articles")).
		OrderBy("time_added DESC", "id DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	if offset > 0 {
		b = b.Offset(uint64(offset))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build review query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query review articles: %w", err)
	}
	defer rows.Close()

	var articles []ReviewArticle
	for rows.Next() {
		a, err := scanReviewArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating review rows: %w", err)
	}

	return articles, nil
}

func (r *ReviewRepository) Count(ctx context.Context, filter ReviewFilter) (int, error) {
	query, args, err := filter.apply(sq.Select("COUNT(*)").From("review_articles")).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count review articles: %w", err)
	}
	return count, nil
}

func (r *ReviewRepository) SetOutcome(ctx context.Context, ids []int64, outcome, modifiedBy string) (int64, error) {
	switch outcome {
	case OutcomeNew, OutcomeProcessed, OutcomeRejected:
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}
	return r.update(ctx, ids, "outcome", outcome, modifiedBy)
}

func (r *ReviewRepository) SetStorygroup(ctx context.Context, ids []int64, storygroup, modifiedBy string) (int64, error) {
	return r.update(ctx, ids, "storygroup", storygroup, modifiedBy)
}

func (r *ReviewRepository) update(ctx context.Context, ids []int64, column, value, modifiedBy string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sq.Update("review_articles").
		Set(column, value).
		Set("modified_by", modifiedBy).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", column, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

func (r *ReviewRepository) OutcomeCounts(ctx context.Context) (map[string]int, error) {
	counts := map[string]int{
		OutcomeNew:       0,
		OutcomeProcessed: 0,
		OutcomeRejected:  0,
	}

	rows, err := r.db.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM review_articles GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("failed to scan outcome count: %w", err)
		}
		counts[outcome] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcome counts: %w", err)
	}

	return counts, nil
}

func scanReviewArticle(s rowScanner) (*ReviewArticle, error) {
	var (
		a                                           ReviewArticle
		published, fetchedAt, timeAdded, lastSynced string
		sourceArticleID                             sql.NullInt64
	)

	err := s.Scan(
		&a.ID, &a.Title, &a.Link, &a.Description, &a.Summary, &a.Content, &a.Source, &a.Category,
		&a.FeedURL, &a.GUID, &a.Author, &published, &fetchedAt, &timeAdded, &a.AddedBy,
		&a.ModifiedBy, &a.Outcome, &a.Storygroup, &sourceArticleID, &lastSynced,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan review row: %w", err)
	}

	for _, field := range []struct {
		raw  string
		dest *time.Time
	}{
		{published, &a.Published},
		{fetchedAt, &a.FetchedAt},
		{timeAdded, &a.TimeAdded},
		{lastSynced, &a.LastSynced},
	} {
		if *field.dest, err = parseTime(field.raw); err != nil {
			return nil, err
		}
	}

	if sourceArticleID.Valid {
		id := sourceArticleID.Int64
		a.SourceArticleID = &id
	}

	return &a, nil
}
