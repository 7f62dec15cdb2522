package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeService is an in-memory calendar capability for tests.
type fakeService struct {
	mu       sync.Mutex
	existing []Event
	inserted []EventSpec
	deleted  []string

	listErr    error
	failTitles map[string]error
	nextID     int
}

func (f *fakeService) ListEvents(_ context.Context, _ string, timeMin, timeMax time.Time, titleFilter string) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []Event
	for _, ev := range f.existing {
		if ev.Start.Before(timeMin) || ev.Start.After(timeMax) {
			continue
		}
		if titleFilter != "" && ev.Title != titleFilter {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeService) InsertEvent(_ context.Context, _ string, spec EventSpec) (Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failTitles[spec.Title]; ok {
		return Event{}, err
	}

	f.nextID++
	ev := Event{
		ID:       fmt.Sprintf("ev-%d", f.nextID),
		Title:    spec.Title,
		Start:    spec.StartLocal,
		HTMLLink: fmt.Sprintf("https://calendar.example/ev-%d", f.nextID),
	}
	f.inserted = append(f.inserted, spec)
	f.existing = append(f.existing, ev)
	return ev, nil
}

func (f *fakeService) DeleteEvent(_ context.Context, _ string, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, eventID)
	return nil
}

func specAt(title string, start time.Time) EventSpec {
	return EventSpec{
		Title:          title,
		StartLocal:     start,
		EndLocal:       start.Add(30 * time.Minute),
		TimeZoneID:     "UTC",
		RecurrenceRule: "RRULE:FREQ=DAILY;COUNT=3",
	}
}

func TestCommitAll(t *testing.T) {
	fake := &fakeService{}
	c := NewCommitter(fake, "primary")

	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	specs := []EventSpec{
		specAt("Tylenol — dose", start),
		specAt("Tylenol — dose", start.Add(4*time.Hour)),
	}

	result := c.Commit(context.Background(), specs)
	if result.InsertedCount != 2 || len(result.Failed) != 0 {
		t.Fatalf("inserted=%d failed=%d, want 2/0", result.InsertedCount, len(result.Failed))
	}
	if len(result.Links) != 2 {
		t.Errorf("links = %v, want 2", result.Links)
	}
	if len(fake.inserted) != 2 {
		t.Errorf("fake got %d inserts", len(fake.inserted))
	}
}

func TestCommitPartialFailure(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	fake := &fakeService{failTitles: map[string]error{"Ibuprofen — dose": errors.New("quota")}}
	c := NewCommitter(fake, "primary")

	specs := []EventSpec{
		specAt("Tylenol — dose", start),
		specAt("Ibuprofen — dose", start.Add(time.Hour)),
		specAt("Omeprazole — dose", start.Add(2*time.Hour)),
	}

	result := c.Commit(context.Background(), specs)
	if result.InsertedCount != 2 {
		t.Errorf("inserted = %d, want 2", result.InsertedCount)
	}
	if len(result.Failed) != 1 || result.Failed[0].Spec.Title != "Ibuprofen — dose" {
		t.Fatalf("failed = %+v, want the ibuprofen spec", result.Failed)
	}
}

func TestCommitCancelledContext(t *testing.T) {
	fake := &fakeService{}
	c := NewCommitter(fake, "primary")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	specs := []EventSpec{specAt("Tylenol — dose", time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))}
	result := c.Commit(ctx, specs)
	if result.InsertedCount != 0 || len(result.Failed) != 1 {
		t.Errorf("inserted=%d failed=%d, want 0/1", result.InsertedCount, len(result.Failed))
	}
	if len(fake.inserted) != 0 {
		t.Error("insert happened despite cancelled context")
	}
}
