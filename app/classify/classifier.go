package classify

import (
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/lysyi3m/news-sieve/app/feed"
)

const (
	maxTopics      = 5
	maxGeographies = 3
)

// Score is a ranked topic or geography. Parent is set for subtopics; the
// location fields come from the geography table.
type Score struct {
	Name        string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	Parent      string  `json:"parent,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Region      string  `json:"region,omitempty"`
	Continent   string  `json:"continent,omitempty"`
}

type Sentiment struct {
	Label        string  `json:"label"`
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
}

// NeutralSentiment is used for empty text and whenever scoring fails.
var NeutralSentiment = Sentiment{Label: LabelNeutral, Polarity: 0.0, Subjectivity: 0.5}

type Classification struct {
	Topics         []Score   `json:"topics"`
	Geographies    []Score   `json:"geographies"`
	Sentiment      Sentiment `json:"sentiment"`
	AdditionalTags []string  `json:"additional_tags"`
}

type Classifier struct {
	tables *Tables
	scorer Scorer
}

func NewClassifier(tables *Tables, scorer Scorer) *Classifier {
	return &Classifier{
		tables: tables,
		scorer: scorer,
	}
}

func (c *Classifier) ClassifyArticle(article feed.Article) Classification {
	return c.Classify(article.Title + " " + article.Description + " " + article.Summary)
}

// Classify never fails. Scoring errors degrade to NeutralSentiment.
func (c *Classifier) Classify(text string) Classification {
	folded := cases.Fold().String(text)

	result := Classification{
		Topics:         c.rank(folded, c.tables.Topics, true, 2, maxTopics),
		Geographies:    c.rank(folded, c.tables.Geographies, false, 3, maxGeographies),
		Sentiment:      NeutralSentiment,
		AdditionalTags: c.additionalTags(folded),
	}

	if strings.TrimSpace(folded) == "" {
		return result
	}

	polarity, subjectivity, err := c.scorer.Score(folded)
	if err != nil {
		slog.Warn("Sentiment scoring failed, using neutral", "error", err)
		return result
	}

	polarity = clamp(polarity, -1, 1)
	result.Sentiment = Sentiment{
		Label:        Label(polarity),
		Polarity:     polarity,
		Subjectivity: clamp(subjectivity, 0, 1),
	}

	return result
}

// rank scores every group by substring matches. A multi-word keyword counts
// double when weighPhrases is set. Confidence is score/len(keywords)*scale,
// capped at 1; equal confidences keep table order.
func (c *Classifier) rank(text string, groups []KeywordGroup, weighPhrases bool, scale float64, limit int) []Score {
	scores := make([]Score, 0, limit)

	for _, group := range groups {
		score := 0
		for _, keyword := range group.Keywords {
			if !strings.Contains(text, keyword) {
				continue
			}
			if weighPhrases && strings.Contains(keyword, " ") {
				score += 2
			} else {
				score++
			}
		}

		if score > 0 {
			confidence := min(float64(score)/float64(len(group.Keywords))*scale, 1.0)
			scores = append(scores, Score{
				Name:        group.Name,
				Confidence:  confidence,
				Parent:      group.Parent,
				CountryCode: group.CountryCode,
				Region:      group.Region,
				Continent:   group.Continent,
			})
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Confidence > scores[j].Confidence
	})

	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}

func (c *Classifier) additionalTags(text string) []string {
	tags := []string{}

	for _, indicator := range c.tables.Indicators {
		if strings.Contains(text, indicator) {
			tags = append(tags, "indicator_"+strings.ReplaceAll(indicator, " ", "_"))
		}
	}
	for _, sector := range c.tables.Sectors {
		if strings.Contains(text, sector) {
			tags = append(tags, "sector_"+strings.ReplaceAll(sector, " ", "_"))
		}
	}
	for _, condition := range c.tables.MarketConditions {
		if strings.Contains(text, condition) {
			tags = append(tags, "market_"+strings.ReplaceAll(condition, " ", "_"))
		}
	}
	for _, keyword := range c.tables.Urgency {
		if strings.Contains(text, keyword) {
			tags = append(tags, "urgent")
			break
		}
	}

	return tags
}
