package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/news-sieve/app/database"
)

var testChannel = Channel{
	Title:     "news-sieve",
	Link:      "http://localhost:8080",
	SelfURL:   "http://localhost:8080/feed.xml?topic=Economics",
	Generator: "news-sieve/dev",
}

func TestGenerateRSS(t *testing.T) {
	generator := NewGenerator()

	publishedTime := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)

	articles := []database.Article{
		{
			ID:             1,
			GUID:           "item-1",
			Title:          "Fed raises interest rates",
			Link:           "https://example.com/item1",
			Description:    "<p>Raw description</p>",
			Summary:        "Rates rise again",
			Content:        "Full text",
			Source:         "Example News",
			FeedURL:        "https://example.com/rss",
			Category:       "economics",
			Author:         "Jane Roe",
			Published:      publishedTime,
			Topics:         []database.TagScore{{Name: "Central Banking", Confidence: 0.55}, {Name: "Economics", Confidence: 0.13}},
			Geographies:    []database.TagScore{{Name: "United States", Confidence: 0.27}},
			SentimentLabel: "negative",
			AdditionalTags: []string{"indicator_interest_rate"},
		},
		{
			ID:        2,
			Title:     "Linked only",
			Link:      "https://example.com/item2",
			Source:    "Example News",
			Published: publishedTime,
		},
	}

	rss, err := generator.Run(testChannel, articles)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<rss version="2.0"`,
		`xmlns:content="http://purl.org/rss/1.0/modules/content/"`,
		"<title>news-sieve</title>",
		"<description>Classified news articles</description>",
		`<atom:link href="http://localhost:8080/feed.xml?topic=Economics" rel="self" type="application/rss+xml" />`,
		"<lastBuildDate>Mon, 03 Jul 2023 10:00:00 +0000</lastBuildDate>",
		"<generator>news-sieve/dev</generator>",
		`<guid isPermaLink="false">item-1</guid>`,
		"<description>Rates rise again</description>",
		"<content:encoded><![CDATA[Full text]]></content:encoded>",
		"<pubDate>Mon, 03 Jul 2023 10:00:00 +0000</pubDate>",
		"<author>Jane Roe</author>",
		`<source url="https://example.com/rss">Example News</source>`,
		"<category>economics</category>",
		`<category domain="topic">Central Banking</category>`,
		`<category domain="topic">Economics</category>`,
		`<category domain="geography">United States</category>`,
		`<category domain="sentiment">negative</category>`,
		`<category domain="tag">indicator_interest_rate</category>`,
		`<guid isPermaLink="true">https://example.com/item2</guid>`,
		"<description>No description available</description>",
		"</channel>",
		"</rss>",
	}

	for _, want := range expected {
		if !strings.Contains(rss, want) {
			t.Errorf("RSS should contain %s", want)
		}
	}

	if strings.Index(rss, "Fed raises interest rates") > strings.Index(rss, "Linked only") {
		t.Error("Items should keep the given order")
	}
}

func TestGenerateWithSpecialCharacters(t *testing.T) {
	generator := NewGenerator()

	articles := []database.Article{
		{
			GUID:        "special-item",
			Title:       "Item with <tags> & \"quotes\"",
			Link:        "https://example.com/item",
			Description: "Description with <em>emphasis</em> & \"quotes\"",
			Content:     "Content with <strong>bold</strong> & special chars: <>&\"'",
			Source:      "A & B",
			Author:      "Author with <brackets>",
			Topics:      []database.TagScore{{Name: "M&A"}},
		},
	}

	rss, err := generator.Run(Channel{Title: "Feed with <special> & \"characters\""}, articles)
	if err != nil {
		t.Fatalf("Expected no error with special characters, got: %v", err)
	}

	expected := []string{
		"Feed with &lt;special&gt; &amp; &#34;characters&#34;",
		"Item with &lt;tags&gt; &amp; &#34;quotes&#34;",
		"Description with &lt;em&gt;emphasis&lt;/em&gt; &amp; &#34;quotes&#34;",
		"<content:encoded><![CDATA[Content with <strong>bold</strong> & special chars: <>&\"']]></content:encoded>",
		"Author with &lt;brackets&gt;",
		">A &amp; B</source>",
		`<category domain="topic">M&amp;A</category>`,
	}

	for _, want := range expected {
		if !strings.Contains(rss, want) {
			t.Errorf("RSS should contain %s", want)
		}
	}
}

func TestGenerateWithEmptyItems(t *testing.T) {
	generator := NewGenerator()
	generator.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	rss, err := generator.Run(Channel{Title: "Empty Feed"}, nil)
	if err != nil {
		t.Fatalf("Expected no error with empty items, got: %v", err)
	}

	if !strings.Contains(rss, "<title>Empty Feed</title>") {
		t.Error("Empty RSS should contain feed title")
	}
	if !strings.Contains(rss, "<lastBuildDate>Mon, 01 Jan 2024 00:00:00 +0000</lastBuildDate>") {
		t.Error("Empty RSS should use the clock for lastBuildDate")
	}
	if strings.Contains(rss, "<item>") {
		t.Error("Empty RSS should not contain any items")
	}
	if strings.Contains(rss, "<atom:link") {
		t.Error("Empty RSS should not contain a self link when none is set")
	}
}

func TestIsURLMethod(t *testing.T) {
	generator := NewGenerator()

	tests := []struct {
		input    string
		expected bool
	}{
		{"", false},
		{"http://example.com", true},
		{"https://example.com", true},
		{"ftp://example.com", false},
		{"not-a-url", false},
		{"http://", false},
		{"https://", false},
		{"mailto:test@example.com", false},
	}

	for _, test := range tests {
		result := generator.isURL(test.input)
		if result != test.expected {
			t.Errorf("For input '%s', expected %v, got %v", test.input, test.expected, result)
		}
	}
}
