package feed

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// ErrSkipEntry marks an entry that cannot become an article.
var ErrSkipEntry = errors.New("entry skipped")

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses a feed document and extracts every usable entry. Entries that
// fail extraction are logged and dropped.
func (p *Parser) Run(data []byte, src Source, now time.Time) ([]Article, error) {
	entries, err := p.Entries(data)
	if err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(entries))
	for i, entry := range entries {
		article, err := p.Extract(entry, src, now)
		if err != nil {
			slog.Debug("Entry skipped", "feed", src.URL, "index", i, "reason", err)
			continue
		}
		articles = append(articles, article)
	}

	return articles, nil
}

func (p *Parser) Entries(data []byte) ([]RawEntry, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]RawEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.toRawEntry(item))
	}

	return entries, nil
}

func (p *Parser) toRawEntry(item *gofeed.Item) RawEntry {
	entry := RawEntry{
		ID:          strings.TrimSpace(item.GUID),
		Title:       optional(item.Title),
		Link:        optional(item.Link),
		Description: optional(item.Description),
		Content:     optional(item.Content),
		Published:   item.PublishedParsed,
	}

	for _, author := range item.Authors {
		if author != nil {
			entry.Authors = append(entry.Authors, author.Name)
		}
	}
	if item.Author != nil {
		entry.Author = optional(item.Author.Name)
	}

	for _, term := range item.Categories {
		if term = strings.TrimSpace(term); term != "" {
			entry.Terms = append(entry.Terms, term)
		}
	}

	return entry
}

// Extract applies defaults to a raw entry. now is the fetch time; it stamps
// FetchedAt and stands in for a missing publish time.
func (p *Parser) Extract(entry RawEntry, src Source, now time.Time) (Article, error) {
	title := deref(entry.Title)
	link := deref(entry.Link)
	if title == "" && link == "" {
		return Article{}, fmt.Errorf("%w: no title and no link", ErrSkipEntry)
	}

	now = now.UTC()
	published := now
	if entry.Published != nil && !entry.Published.IsZero() {
		published = entry.Published.UTC()
	}

	description := deref(entry.Description)
	summary := PlainText(cmp.Or(deref(entry.Content), description))

	return Article{
		Title:       title,
		Link:        link,
		Description: description,
		Summary:     summary,
		Source:      src.Name,
		Category:    cmp.Or(src.Category, DefaultCategory),
		FeedURL:     src.URL,
		GUID:        cmp.Or(entry.ID, link),
		Author:      p.resolveAuthor(entry),
		Tags:        slices.Clone(entry.Terms),
		Published:   published,
		FetchedAt:   now,
	}, nil
}

func (p *Parser) resolveAuthor(entry RawEntry) string {
	var names []string
	for _, name := range entry.Authors {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		return strings.Join(names, ", ")
	}
	return deref(entry.Author)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
