package database

import (
	"time"
)

// TagScore is a classification label with its confidence in [0,1]. Parent
// and the location fields are empty unless the classifier tables set them.
type TagScore struct {
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	Parent      string  `json:"parent,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Region      string  `json:"region,omitempty"`
	Continent   string  `json:"continent,omitempty"`
}

// Article is a normalized article plus its classification summary. Rows are
// immutable once stored.
type Article struct {
	ID             int64
	Title          string
	Link           string
	Description    string
	Summary        string
	Content        string
	Source         string
	Category       string
	FeedURL        string
	GUID           string
	Author         string
	Tags           []string
	Published      time.Time
	FetchedAt      time.Time
	Topics         []TagScore
	Geographies    []TagScore
	SentimentLabel string
	Polarity       float64
	Subjectivity   float64
	AdditionalTags []string
	CreatedAt      time.Time
}

type BulkResult struct {
	Inserted   int
	Duplicates int
}

type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

type Stats struct {
	Total       int
	Sources     int
	Recent      int
	RecentHours int
	PerSource   []SourceCount
}

const (
	OutcomeNew       = "NEW"
	OutcomeProcessed = "processed"
	OutcomeRejected  = "rejected"
)

const SystemUser = "SYSTEM"

// ReviewArticle is a copy of a stored article awaiting human review.
type ReviewArticle struct {
	ID              int64
	Title           string
	Link            string
	Description     string
	Summary         string
	Content         string
	Source          string
	Category        string
	FeedURL         string
	GUID            string
	Author          string
	Published       time.Time
	FetchedAt       time.Time
	TimeAdded       time.Time
	AddedBy         string
	ModifiedBy      string
	Outcome         string
	Storygroup      string
	SourceArticleID *int64
	LastSynced      time.Time
}

type SyncResult struct {
	Scanned int `json:"scanned"`
	Added   int `json:"added"`
	Total   int `json:"total"`
}

// FeedSource is the stored state of a configured feed.
type FeedSource struct {
	ID          int64
	Name        string
	URL         string
	Category    string
	LastFetched *time.Time
	Active      bool
	CreatedAt   time.Time
}
