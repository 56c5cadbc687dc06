package api

import (
	"time"

	"github.com/lysyi3m/news-sieve/app/database"
	"github.com/lysyi3m/news-sieve/app/feed"
	"github.com/lysyi3m/news-sieve/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, articles []database.Article) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	articles  database.ArticleStore
	reviews   database.ReviewStore
	feeds     database.FeedStore
	generator GeneratorInterface
	scheduler tasks.TaskSchedulerInterface
	baseURL   string
	version   string
	now       func() time.Time
}

type ArticleResponse struct {
	ID             int64               `json:"id"`
	Title          string              `json:"title"`
	Link           string              `json:"link"`
	Description    string              `json:"description"`
	Summary        string              `json:"summary"`
	Content        string              `json:"content,omitempty"`
	Source         string              `json:"source"`
	Category       string              `json:"category"`
	FeedURL        string              `json:"feed_url"`
	GUID           string              `json:"guid"`
	Author         string              `json:"author"`
	Tags           []string            `json:"tags"`
	Published      time.Time           `json:"published"`
	FetchedAt      time.Time           `json:"fetched_at"`
	Topics         []database.TagScore `json:"topics"`
	Geographies    []database.TagScore `json:"geographies"`
	Sentiment      SentimentResponse   `json:"sentiment"`
	AdditionalTags []string            `json:"additional_tags"`
}

type SentimentResponse struct {
	Label        string  `json:"label"`
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
}

type ReviewResponse struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Link            string    `json:"link"`
	Description     string    `json:"description"`
	Source          string    `json:"source"`
	Category        string    `json:"category"`
	Published       time.Time `json:"published"`
	TimeAdded       time.Time `json:"time_added"`
	AddedBy         string    `json:"added_by"`
	ModifiedBy      string    `json:"modified_by"`
	Outcome         string    `json:"outcome"`
	Storygroup      string    `json:"storygroup"`
	SourceArticleID *int64    `json:"source_article_id"`
}

type PageResponse struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Items any `json:"items"`
}

type OutcomeRequest struct {
	IDs        []int64 `json:"ids" binding:"required,min=1"`
	Outcome    string  `json:"outcome" binding:"required"`
	ModifiedBy string  `json:"modified_by"`
}

type StorygroupRequest struct {
	IDs        []int64 `json:"ids" binding:"required,min=1"`
	Storygroup string  `json:"storygroup"`
	ModifiedBy string  `json:"modified_by"`
}

type RunRequest struct {
	Source string `json:"source"`
}

type FeedActiveRequest struct {
	URL    string `json:"url" binding:"required"`
	Active *bool  `json:"active" binding:"required"`
}

func newArticleResponse(a database.Article, full bool) ArticleResponse {
	resp := ArticleResponse{
		ID:          a.ID,
		Title:       a.Title,
		Link:        a.Link,
		Description: a.Description,
		Summary:     a.Summary,
		Source:      a.Source,
		Category:    a.Category,
		FeedURL:     a.FeedURL,
		GUID:        a.GUID,
		Author:      a.Author,
		Tags:        a.Tags,
		Published:   a.Published,
		FetchedAt:   a.FetchedAt,
		Topics:      a.Topics,
		Geographies: a.Geographies,
		Sentiment: SentimentResponse{
			Label:        a.SentimentLabel,
			Polarity:     a.Polarity,
			Subjectivity: a.Subjectivity,
		},
		AdditionalTags: a.AdditionalTags,
	}
	if full {
		resp.Content = a.Content
	}
	return resp
}

func newReviewResponse(r database.ReviewArticle) ReviewResponse {
	return ReviewResponse{
		ID:              r.ID,
		Title:           r.Title,
		Link:            r.Link,
		Description:     r.Description,
		Source:          r.Source,
		Category:        r.Category,
		Published:       r.Published,
		TimeAdded:       r.TimeAdded,
		AddedBy:         r.AddedBy,
		ModifiedBy:      r.ModifiedBy,
		Outcome:         r.Outcome,
		Storygroup:      r.Storygroup,
		SourceArticleID: r.SourceArticleID,
	}
}
