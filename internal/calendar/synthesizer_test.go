package calendar

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"med-reminder/internal/schedule"
)

func testPlan(times []schedule.TimeOfDay, durationDays int) schedule.Plan {
	return schedule.Plan{
		MedicationName:      "Tylenol",
		Dosage:              "500mg",
		TimesOfDay:          times,
		DurationDays:        durationDays,
		SpecialInstructions: "with water",
	}
}

func TestSynthesize(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 15, 45, 0, 0, loc)
	plan := testPlan([]schedule.TimeOfDay{{Hour: 8}, {Hour: 12}, {Hour: 18}}, 3)

	specs := Synthesize(plan, start, loc)
	if len(specs) != 3 {
		t.Fatalf("got %d specs, want 3", len(specs))
	}

	for i, spec := range specs {
		wantStart := time.Date(2026, 3, 2, plan.TimesOfDay[i].Hour, plan.TimesOfDay[i].Minute, 0, 0, loc)
		if !spec.StartLocal.Equal(wantStart) {
			t.Errorf("spec %d start = %v, want %v", i, spec.StartLocal, wantStart)
		}
		if !spec.EndLocal.Equal(wantStart.Add(30 * time.Minute)) {
			t.Errorf("spec %d end = %v, want start+30m", i, spec.EndLocal)
		}
		if spec.Title != "Tylenol — dose" {
			t.Errorf("spec %d title = %q", i, spec.Title)
		}
		if spec.RecurrenceRule != "RRULE:FREQ=DAILY;COUNT=3" {
			t.Errorf("spec %d rule = %q", i, spec.RecurrenceRule)
		}
		if !reflect.DeepEqual(spec.ReminderOffsetsMinutes, []int{10, 0}) {
			t.Errorf("spec %d reminders = %v, want [10 0]", i, spec.ReminderOffsetsMinutes)
		}
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	plan := testPlan([]schedule.TimeOfDay{{Hour: 8}, {Hour: 20}}, 7)

	first := Synthesize(plan, start, loc)
	second := Synthesize(plan, start, loc)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different specs")
	}
}

func TestOccurrencesMatchDuration(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)

	for _, days := range []int{1, 7, 30} {
		t.Run(fmt.Sprintf("%d days", days), func(t *testing.T) {
			plan := testPlan([]schedule.TimeOfDay{{Hour: 8}}, days)
			specs := Synthesize(plan, start, loc)
			if len(specs) != 1 {
				t.Fatalf("got %d specs", len(specs))
			}

			occ, err := specs[0].Occurrences()
			if err != nil {
				t.Fatal(err)
			}
			if len(occ) != days {
				t.Fatalf("got %d occurrences, want %d", len(occ), days)
			}

			wantFirst := time.Date(2026, 3, 2, 8, 0, 0, 0, loc)
			if !occ[0].Equal(wantFirst) {
				t.Errorf("first occurrence = %v, want %v", occ[0], wantFirst)
			}
			wantLast := wantFirst.AddDate(0, 0, days-1)
			if !occ[len(occ)-1].Equal(wantLast) {
				t.Errorf("last occurrence = %v, want %v", occ[len(occ)-1], wantLast)
			}
		})
	}
}

func TestTotalOccurrences(t *testing.T) {
	loc := time.UTC
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	plan := testPlan([]schedule.TimeOfDay{{Hour: 8}, {Hour: 12}, {Hour: 20}}, 5)

	specs := Synthesize(plan, start, loc)
	if got := TotalOccurrences(specs); got != 15 {
		t.Errorf("TotalOccurrences = %d, want 15", got)
	}
}

func TestDoseDescription(t *testing.T) {
	plan := testPlan([]schedule.TimeOfDay{{Hour: 8}}, 3)
	specs := Synthesize(plan, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.UTC)

	desc := specs[0].Description
	for _, want := range []string{"Tylenol", "500mg", "08:00", "with water", "⚠️"} {
		if !strings.Contains(desc, want) {
			t.Errorf("description missing %q:\n%s", want, desc)
		}
	}
}
