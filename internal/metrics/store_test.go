package metrics

import (
	"path/filepath"
	"testing"
	"time"

	"med-reminder/internal/database"
	"med-reminder/internal/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db.SQL)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRecordAndDailyUsage(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		err := store.Record(ExecutionMetric{
			AgentName:        "ScheduleExtractor",
			Model:            "gemini-2.0-flash-001",
			PromptTokens:     100,
			CompletionTokens: 20,
			LatencyMS:        250,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	usage, err := store.GetDailyUsage(7)
	if err != nil {
		t.Fatal(err)
	}
	if len(usage) != 1 {
		t.Fatalf("got %d usage rows, want 1", len(usage))
	}
	if usage[0].TotalPrompt != 300 || usage[0].TotalCompletion != 60 || usage[0].TotalExecution != 3 {
		t.Errorf("usage = %+v", usage[0])
	}
}

func TestRecordMetaSkipsEmptyUsage(t *testing.T) {
	store := newTestStore(t)

	err := store.RecordMeta(shared.AgentMeta{AgentName: "PatternExtractor"})
	if err != nil {
		t.Fatal(err)
	}

	usage, err := store.GetDailyUsage(7)
	if err != nil {
		t.Fatal(err)
	}
	if len(usage) != 0 {
		t.Errorf("zero-usage meta was recorded: %+v", usage)
	}
}

func TestCleanup(t *testing.T) {
	store := newTestStore(t)

	old := ExecutionMetric{
		AgentName:        "ScheduleExtractor",
		Model:            "gemini-2.0-flash-001",
		PromptTokens:     10,
		CompletionTokens: 5,
		Timestamp:        time.Now().UTC().AddDate(0, 0, -60),
	}
	recent := old
	recent.Timestamp = time.Now().UTC()

	if err := store.Record(old); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(recent); err != nil {
		t.Fatal(err)
	}

	n, err := store.Cleanup(30)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("cleaned %d rows, want 1", n)
	}
}

func TestMapUsage(t *testing.T) {
	m := MapUsage("ScheduleExtractor", shared.TokenUsage{
		PromptTokens:     42,
		CompletionTokens: 7,
		Model:            "llama-3.3-70b-versatile",
	}, 1500*time.Millisecond)

	if m.AgentName != "ScheduleExtractor" || m.Model != "llama-3.3-70b-versatile" {
		t.Errorf("metric = %+v", m)
	}
	if m.PromptTokens != 42 || m.CompletionTokens != 7 || m.LatencyMS != 1500 {
		t.Errorf("metric = %+v", m)
	}
}
