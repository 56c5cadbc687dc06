package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReviewRepository_Sync(t *testing.T) {
	db := newTestDB(t)
	articles := NewArticleRepository(db)
	review := NewReviewRepository(db)
	ctx := context.Background()

	seedArticles(t, articles)

	result, err := review.Sync(ctx, baseTime)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Scanned != 3 || result.Added != 3 || result.Total != 3 {
		t.Errorf("Unexpected first sync result: %+v", result)
	}

	if _, _, err := articles.InsertIfNew(ctx, testArticle("Late story", "Wire", baseTime)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	result, err = review.Sync(ctx, baseTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Scanned != 4 || result.Added != 1 || result.Total != 4 {
		t.Errorf("Unexpected second sync result: %+v", result)
	}

	rows, err := review.List(ctx, ReviewFilter{}, 0, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected 4 review rows, got %d", len(rows))
	}

	latest := rows[0]
	if latest.Title != "Late story" {
		t.Errorf("Expected newest addition first, got %q", latest.Title)
	}
	if latest.Outcome != OutcomeNew || latest.AddedBy != SystemUser {
		t.Errorf("Expected NEW by SYSTEM, got %s by %s", latest.Outcome, latest.AddedBy)
	}
	if latest.SourceArticleID == nil {
		t.Error("Expected source article id to be set")
	}
	if !latest.TimeAdded.Equal(baseTime.Add(time.Hour)) {
		t.Errorf("Expected time_added from sync time, got %v", latest.TimeAdded)
	}
}

func TestReviewRepository_Outcomes(t *testing.T) {
	db := newTestDB(t)
	review := NewReviewRepository(db)
	ctx := context.Background()

	seedArticles(t, NewArticleRepository(db))
	if _, err := review.Sync(ctx, baseTime); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	rows, err := review.List(ctx, ReviewFilter{Search: "rate"}, 0, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 matching rows, got %d", len(rows))
	}

	n, err := review.SetOutcome(ctx, []int64{rows[0].ID, rows[1].ID}, OutcomeProcessed, "editor")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rows updated, got %d", n)
	}

	if _, err := review.SetOutcome(ctx, []int64{rows[0].ID}, "maybe", "editor"); !errors.Is(err, ErrInvalidOutcome) {
		t.Errorf("Expected ErrInvalidOutcome, got: %v", err)
	}

	if _, err := review.SetStorygroup(ctx, []int64{rows[0].ID}, "rates-2024", "editor"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	grouped, err := review.List(ctx, ReviewFilter{Storygroup: "rates-2024"}, 0, 0)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(grouped) != 1 || grouped[0].ModifiedBy != "editor" || grouped[0].Outcome != OutcomeProcessed {
		t.Errorf("Unexpected storygroup rows: %+v", grouped)
	}

	counts, err := review.OutcomeCounts(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if counts[OutcomeNew] != 1 || counts[OutcomeProcessed] != 2 || counts[OutcomeRejected] != 0 {
		t.Errorf("Unexpected outcome counts: %v", counts)
	}

	pending, err := review.Count(ctx, ReviewFilter{Outcome: OutcomeNew})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if pending != 1 {
		t.Errorf("Expected 1 pending row, got %d", pending)
	}

	// A resync must not reset decisions.
	if _, err := review.Sync(ctx, baseTime.Add(time.Hour)); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	counts, _ = review.OutcomeCounts(ctx)
	if counts[OutcomeProcessed] != 2 {
		t.Errorf("Expected decisions to survive resync, got %v", counts)
	}
}

func TestReviewRepository_SetOutcomeNoIDs(t *testing.T) {
	review := NewReviewRepository(newTestDB(t))

	n, err := review.SetOutcome(context.Background(), nil, OutcomeRejected, "editor")
	if err != nil || n != 0 {
		t.Errorf("Expected no-op, got n=%d err=%v", n, err)
	}
}
