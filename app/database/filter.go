package database

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Upper bounds for caller supplied time windows and page numbers. Anything
// larger overflows the offset or the time.Duration arithmetic.
const (
	MaxHours = 24 * 365 * 100
	MaxPage  = 1_000_000
)

// Filter selects stored articles. Zero fields do not constrain. ParentTopic
// matches a topic by its own name or by its parent's. Search is split on
// whitespace and every term must appear in the title or description.
type Filter struct {
	Source      string
	Category    string
	Topic       string
	ParentTopic string
	Since       time.Time
	Search      string
}

func (f Filter) apply(b sq.SelectBuilder) sq.SelectBuilder {
	if f.Source != "" {
		b = b.Where(sq.Eq{"source": f.Source})
	}
	if f.Category != "" {
		b = b.Where(sq.Eq{"category": f.Category})
	}
	if f.Topic != "" {
		b = b.Where("EXISTS (SELECT 1 FROM json_each(articles.topics) WHERE json_extract(json_each.value, '$.name') = ?)", f.Topic)
	}
	if f.ParentTopic != "" {
		b = b.Where("EXISTS (SELECT 1 FROM json_each(articles.topics) WHERE json_extract(json_each.value, '$.name') = ? OR json_extract(json_each.value, '$.parent') = ?)",
			f.ParentTopic, f.ParentTopic)
	}
	if !f.Since.IsZero() {
		b = b.Where(sq.GtOrEq{"published": formatTime(f.Since)})
	}
	return applySearch(b, f.Search)
}

// ReviewFilter selects review rows.
type ReviewFilter struct {
	Outcome    string
	Source     string
	Storygroup string
	Search     string
}

func (f ReviewFilter) apply(b sq.SelectBuilder) sq.SelectBuilder {
	if f.Outcome != "" {
		b = b.Where(sq.Eq{"outcome": f.Outcome})
	}
	if f.Source != "" {
		b = b.Where(sq.Eq{"source": f.Source})
	}
	if f.Storygroup != "" {
		b = b.Where(sq.Eq{"storygroup": f.Storygroup})
	}
	return applySearch(b, f.Search)
}

func applySearch(b sq.SelectBuilder, search string) sq.SelectBuilder {
	for _, term := range strings.Fields(strings.ToLower(search)) {
		pattern := "%" + term + "%"
		b = b.Where(sq.Or{
			sq.Like{"LOWER(title)": pattern},
			sq.Like{"LOWER(description)": pattern},
		})
	}
	return b
}
