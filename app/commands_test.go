package main

import (
	"testing"
	"time"

	"github.com/lysyi3m/news-sieve/app/database"
)

func TestQueryCommand_Filter(t *testing.T) {
	q := &queryCommand{Source: "Wire", Category: "economics", Topic: "Energy", ParentTopic: "Economics", Hours: 24, Search: "oil price"}

	before := time.Now()
	filter := q.filter()

	if filter.Source != "Wire" || filter.Category != "economics" || filter.Topic != "Energy" ||
		filter.ParentTopic != "Economics" || filter.Search != "oil price" {
		t.Errorf("Expected flags copied into filter, got %+v", filter)
	}

	window := before.Sub(filter.Since)
	if window < 24*time.Hour-time.Minute || window > 24*time.Hour+time.Minute {
		t.Errorf("Expected a 24h window, got %v", window)
	}
}

func TestQueryCommand_FilterWithoutWindow(t *testing.T) {
	q := &queryCommand{Hours: 0}

	if filter := q.filter(); !filter.Since.IsZero() {
		t.Errorf("Expected no time bound for hours=0, got %v", filter.Since)
	}
}

func TestQueryCommand_FilterCapsHours(t *testing.T) {
	q := &queryCommand{Hours: int(^uint(0) >> 1)}

	before := time.Now()
	filter := q.filter()

	if !filter.Since.Before(before) {
		t.Fatalf("Expected a window in the past, got %v", filter.Since)
	}
	window := before.Sub(filter.Since)
	expected := time.Duration(database.MaxHours) * time.Hour
	if window < expected-time.Minute || window > expected+time.Minute {
		t.Errorf("Expected window capped at %v, got %v", expected, window)
	}
}

func TestQueryCommand_PageWindow(t *testing.T) {
	tests := []struct {
		name          string
		page, limit   int
		expectedPage  int
		expectedLimit int
	}{
		{"defaults", 1, 10, 1, 10},
		{"non-positive", 0, -5, 1, 1},
		{"huge", int(^uint(0) >> 1), int(^uint(0) >> 1), database.MaxPage, maxQueryLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &queryCommand{Page: tt.page, Limit: tt.limit}
			page, limit := q.pageWindow()
			if page != tt.expectedPage || limit != tt.expectedLimit {
				t.Errorf("Expected page %d limit %d, got %d and %d", tt.expectedPage, tt.expectedLimit, page, limit)
			}
			if offset := (page - 1) * limit; offset < 0 {
				t.Errorf("Expected non-negative offset, got %d", offset)
			}
		})
	}
}
