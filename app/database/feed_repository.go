package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var _ FeedStore = (*FeedRepository)(nil)

// FeedRepository handles database operations for feed sources
type FeedRepository struct {
	db *DB
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// SyncSources records configured feeds that are not stored yet and refreshes
// the name and category of known ones. The active flag of a known feed is
// left alone. It returns the number of feeds added.
func (r *FeedRepository) SyncSources(ctx context.Context, sources []FeedSource, now time.Time) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, src := range sources {
		category := src.Category
		if category == "" {
			category = "general"
		}

		query, args, err := sq.Insert("feed_sources").
			Options("OR IGNORE").
			Columns("name", "feed_url", "category", "active", "created_at").
			Values(src.Name, src.URL, category, true, formatTime(now)).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("failed to build insert: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert feed source %s: %w", src.URL, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n > 0 {
			added++
			continue
		}

		query, args, err = sq.Update("feed_sources").
			Set("name", src.Name).
			Set("category", category).
			Where(sq.Eq{"feed_url": src.URL}).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("failed to build update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("failed to update feed source %s: %w", src.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return added, nil
}

// SetActive enables or disables a stored feed. It returns ErrNotFound for an
// unknown URL.
func (r *FeedRepository) SetActive(ctx context.Context, url string, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE feed_sources SET active = ? WHERE feed_url = ?", active, url)
	if err != nil {
		return fmt.Errorf("failed to update feed source: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// InactiveURLs returns the set of feed URLs disabled in the database.
func (r *FeedRepository) InactiveURLs(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT feed_url FROM feed_sources WHERE active = 0")
	if err != nil {
		return nil, fmt.Errorf("failed to query inactive feeds: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]bool)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan feed url: %w", err)
		}
		urls[url] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return urls, nil
}

// MarkFetched updates last_fetched. Unknown URLs are ignored.
func (r *FeedRepository) MarkFetched(ctx context.Context, url string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE feed_sources SET last_fetched = ? WHERE feed_url = ?", formatTime(at), url)
	if err != nil {
		return fmt.Errorf("failed to update last fetched time: %w", err)
	}
	return nil
}

func (r *FeedRepository) List(ctx context.Context) ([]FeedSource, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, feed_url, category, last_fetched, active, created_at
		FROM feed_sources
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed sources: %w", err)
	}
	defer rows.Close()

	var sources []FeedSource
	for rows.Next() {
		var (
			src         FeedSource
			lastFetched sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.Category, &lastFetched, &src.Active, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan feed source row: %w", err)
		}
		if src.LastFetched, err = parseNullTime(lastFetched); err != nil {
			return nil, err
		}
		if src.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed source rows: %w", err)
	}

	return sources, nil
}
