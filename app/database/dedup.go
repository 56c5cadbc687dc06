package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Key identifies an article across runs and stores: equal keys are the same
// article regardless of link or guid.
type Key struct {
	Title     string
	Source    string
	Published string
}

func KeyOf(title, source string, published time.Time) Key {
	return Key{
		Title:     title,
		Source:    source,
		Published: formatTime(published),
	}
}

type execQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertIfNew inserts row into table unless a row with the same key exists.
// It returns the new id and true, or 0 and false for a duplicate. A unique
// violation from a concurrent writer also counts as a duplicate; any other
// error is returned.
func insertIfNew(ctx context.Context, q execQueryer, table string, key Key, row map[string]any) (int64, bool, error) {
	query, args, err := sq.Select("1").
		From(table).
		Where(sq.Eq{"title": key.Title, "source": key.Source, "published": key.Published}).
		Limit(1).
		ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("failed to build exists query: %w", err)
	}

	var exists int
	err = q.QueryRowContext(ctx, query, args...).Scan(&exists)
	if err == nil {
		return 0, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("failed to check duplicate: %w", err)
	}

	query, args, err = sq.Insert(table).SetMap(row).ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("failed to build insert: %w", err)
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return id, true, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
