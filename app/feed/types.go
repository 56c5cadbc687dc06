package feed

import (
	"time"
)

const DefaultCategory = "general"

// Registry types

type Source struct {
	Key            string // YAML mapping key under "sources"
	Name           string // Display name, falls back to Key
	URL            string
	Category       string
	Active         bool
	ExtractContent bool
	Filters        []Filter
}

// Filter drops entries whose Field contains any Excludes term, or none of the
// Includes terms when Includes is set. Matching is case-insensitive.
type Filter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// Parse types

// RawEntry is one feed entry before normalization. Optional fields are nil or
// empty when the document does not carry them; defaults are applied by Extract.
type RawEntry struct {
	ID          string
	Title       *string
	Link        *string
	Description *string
	Content     *string
	Published   *time.Time
	Author      *string
	Authors     []string
	Terms       []string
}

type Article struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Summary     string    `json:"summary,omitempty"`
	Content     string    `json:"content,omitempty"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	FeedURL     string    `json:"feed_url"`
	GUID        string    `json:"guid,omitempty"`
	Author      string    `json:"author,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Published   time.Time `json:"published"`  // always UTC
	FetchedAt   time.Time `json:"fetched_at"` // always UTC
}
