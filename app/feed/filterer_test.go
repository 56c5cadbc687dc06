package feed

import (
	"testing"
)

func TestFilterer_Run_NoFilters(t *testing.T) {
	filterer := NewFilterer()

	articles := []Article{
		{Title: "Rates unchanged"},
		{Title: "Election called"},
	}

	result, dropped := filterer.Run(articles, nil)

	if len(result) != 2 {
		t.Errorf("Expected 2 articles, got %d", len(result))
	}
	if dropped != 0 {
		t.Errorf("Expected 0 dropped, got %d", dropped)
	}
}

func TestFilterer_Run_IncludeFilter(t *testing.T) {
	filterer := NewFilterer()

	articles := []Article{
		{Title: "Breaking News: Rate Decision"},
		{Title: "Markets Update"},
		{Title: "Weather Report"},
	}

	result, dropped := filterer.Run(articles, []Filter{
		{Field: "title", Includes: []string{"news", "update"}},
	})

	if len(result) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(result))
	}
	if dropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", dropped)
	}
	if result[0].Title != "Breaking News: Rate Decision" || result[1].Title != "Markets Update" {
		t.Errorf("Expected input order to be preserved, got %q, %q", result[0].Title, result[1].Title)
	}
}

func TestFilterer_Run_ExcludeWinsOverInclude(t *testing.T) {
	filterer := NewFilterer()

	articles := []Article{
		{Title: "Sponsored: markets update"},
		{Title: "Markets update"},
	}

	result, dropped := filterer.Run(articles, []Filter{
		{Field: "title", Includes: []string{"markets"}, Excludes: []string{"sponsored"}},
	})

	if len(result) != 1 || result[0].Title != "Markets update" {
		t.Errorf("Expected only the unsponsored article, got %+v", result)
	}
	if dropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", dropped)
	}
}

func TestFilterer_Run_MultipleFields(t *testing.T) {
	filterer := NewFilterer()

	articles := []Article{
		{Title: "Oil prices climb", Tags: []string{"Energy"}},
		{Title: "Oil prices climb", Tags: []string{"Opinion"}},
	}

	result, _ := filterer.Run(articles, []Filter{
		{Field: "title", Includes: []string{"oil"}},
		{Field: "tags", Excludes: []string{"opinion"}},
	})

	if len(result) != 1 || result[0].Tags[0] != "Energy" {
		t.Errorf("Expected only the Energy article, got %+v", result)
	}
}

func TestFilterer_GetFieldValue(t *testing.T) {
	filterer := NewFilterer()

	article := Article{
		Title:       "Test Title",
		Description: "Test Description",
		Summary:     "Test Summary",
		Content:     "Test Content",
		Author:      "Jane Roe, John Doe",
		Link:        "https://example.com",
		Tags:        []string{"cat1", "cat2"},
	}

	tests := []struct {
		field    string
		expected string
	}{
		{"title", "Test Title"},
		{"description", "Test Description"},
		{"summary", "Test Summary"},
		{"content", "Test Content"},
		{"author", "Jane Roe, John Doe"},
		{"link", "https://example.com"},
		{"tags", "cat1 cat2"},
		{"unknown", ""},
	}

	for _, test := range tests {
		result := filterer.getFieldValue(article, test.field)
		if result != test.expected {
			t.Errorf("getFieldValue(%s): expected '%s', got '%s'", test.field, test.expected, result)
		}
	}
}

func TestFilterer_MatchesFilter(t *testing.T) {
	filterer := NewFilterer()

	tests := []struct {
		value    string
		pattern  string
		expected bool
	}{
		{"Hello World", "hello", true},
		{"Hello World", "WORLD", true},
		{"Hello World", "xyz", false},
		{"", "test", false},
		{"test", "", true},
	}

	for _, test := range tests {
		result := filterer.matchesFilter(test.value, test.pattern)
		if result != test.expected {
			t.Errorf("matchesFilter('%s', '%s'): expected %v, got %v", test.value, test.pattern, test.expected, result)
		}
	}
}
