package calendar

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFilterNewDropsExactTitleMatches(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	fake := &fakeService{existing: []Event{
		{ID: "old", Title: "Tylenol — dose", Start: start.Add(-2 * time.Hour)},
	}}
	g := NewDuplicateGuard(fake, "primary")

	candidates := []EventSpec{
		specAt("Tylenol — dose", start),
		specAt("Omeprazole — dose", start),
	}

	fresh, warnings := g.FilterNew(context.Background(), candidates)
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if len(fresh) != 1 || fresh[0].Title != "Omeprazole — dose" {
		t.Fatalf("fresh = %+v, want only omeprazole", fresh)
	}
}

func TestFilterNewIgnoresEventsOutsideWindow(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	fake := &fakeService{existing: []Event{
		{ID: "old", Title: "Tylenol — dose", Start: start.AddDate(0, 0, -3)},
	}}
	g := NewDuplicateGuard(fake, "primary")

	fresh, _ := g.FilterNew(context.Background(), []EventSpec{specAt("Tylenol — dose", start)})
	if len(fresh) != 1 {
		t.Fatalf("fresh = %+v, want the candidate kept", fresh)
	}
}

func TestFilterNewQueryFailurePassesThrough(t *testing.T) {
	fake := &fakeService{listErr: errors.New("calendar unreachable")}
	g := NewDuplicateGuard(fake, "primary")

	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	fresh, warnings := g.FilterNew(context.Background(), []EventSpec{specAt("Tylenol — dose", start)})
	if len(fresh) != 1 {
		t.Fatal("candidate dropped on query failure")
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one", warnings)
	}
}

func TestFilterNewIdempotentAfterCommit(t *testing.T) {
	fake := &fakeService{}
	g := NewDuplicateGuard(fake, "primary")
	c := NewCommitter(fake, "primary")

	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	specs := []EventSpec{
		specAt("Tylenol — dose", start),
		specAt("Tylenol — dose", start.Add(12*time.Hour)),
	}

	fresh, _ := g.FilterNew(context.Background(), specs)
	if len(fresh) != 2 {
		t.Fatalf("first pass fresh = %d, want 2", len(fresh))
	}
	c.Commit(context.Background(), fresh)

	again, _ := g.FilterNew(context.Background(), specs)
	if len(again) != 0 {
		t.Fatalf("second pass fresh = %+v, want none", again)
	}
}
