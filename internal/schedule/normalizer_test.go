package schedule

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		raw       RawPlan
		wantTimes []TimeOfDay
		wantDur   int
		wantErr   bool
	}{
		{
			name:    "name too short",
			raw:     RawPlan{MedicationName: "A"},
			wantErr: true,
		},
		{
			name:    "empty name",
			raw:     RawPlan{},
			wantErr: true,
		},
		{
			name:      "explicit times win and are sorted",
			raw:       RawPlan{MedicationName: "Tylenol", Times: []TimeOfDay{{Hour: 20}, {Hour: 8}}, DayParts: []string{"lunch"}},
			wantTimes: []TimeOfDay{{Hour: 8}, {Hour: 20}},
			wantDur:   7,
		},
		{
			name:      "frequency defaults once",
			raw:       RawPlan{MedicationName: "Tylenol", Frequency: 1},
			wantTimes: []TimeOfDay{{Hour: 8}},
			wantDur:   7,
		},
		{
			name:      "frequency defaults twice",
			raw:       RawPlan{MedicationName: "Tylenol", Frequency: 2},
			wantTimes: []TimeOfDay{{Hour: 8}, {Hour: 20}},
			wantDur:   7,
		},
		{
			name:      "frequency defaults three times",
			raw:       RawPlan{MedicationName: "Tylenol", Frequency: 3, DurationDays: 3},
			wantTimes: []TimeOfDay{{Hour: 8}, {Hour: 12}, {Hour: 20}},
			wantDur:   3,
		},
		{
			name:      "frequency defaults four times",
			raw:       RawPlan{MedicationName: "Tylenol", Frequency: 4},
			wantTimes: []TimeOfDay{{Hour: 8}, {Hour: 12}, {Hour: 16}, {Hour: 20}},
			wantDur:   7,
		},
		{
			name:      "unknown frequency falls back",
			raw:       RawPlan{MedicationName: "Tylenol", Frequency: 5},
			wantTimes: []TimeOfDay{{Hour: 8}, {Hour: 12}, {Hour: 20}},
			wantDur:   7,
		},
		{
			name:      "day parts resolve to clock times",
			raw:       RawPlan{MedicationName: "Tylenol", Frequency: 3, DayParts: []string{"morning", "lunch", "evening"}},
			wantTimes: []TimeOfDay{{Hour: 8}, {Hour: 12}, {Hour: 18}},
			wantDur:   7,
		},
		{
			name:      "bedtime keyword",
			raw:       RawPlan{MedicationName: "melatonin", DayParts: []string{"bedtime"}},
			wantTimes: []TimeOfDay{{Hour: 22}},
			wantDur:   7,
		},
		{
			name:      "before meal shifts the morning slot",
			raw:       RawPlan{MedicationName: "Omeprazole", DayParts: []string{"morning"}, MealRelation: MealBefore, DurationDays: 14},
			wantTimes: []TimeOfDay{{Hour: 7, Minute: 30}},
			wantDur:   14,
		},
		{
			name:      "after meal without day part yields all meal slots",
			raw:       RawPlan{MedicationName: "ibuprofen", MealRelation: MealAfter},
			wantTimes: []TimeOfDay{{Hour: 8, Minute: 30}, {Hour: 12, Minute: 30}, {Hour: 18, Minute: 30}},
			wantDur:   7,
		},
		{
			name:      "keyword times truncated to frequency",
			raw:       RawPlan{MedicationName: "Tylenol", Frequency: 2, DayParts: []string{"morning", "lunch", "evening"}},
			wantTimes: []TimeOfDay{{Hour: 8}, {Hour: 12}},
			wantDur:   7,
		},
		{
			name:      "keyword times padded to frequency",
			raw:       RawPlan{MedicationName: "Tylenol", Frequency: 2, DayParts: []string{"morning"}},
			wantTimes: []TimeOfDay{{Hour: 8}, {Hour: 20}},
			wantDur:   7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Normalize(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("want error, got none")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(plan.TimesOfDay, tt.wantTimes) {
				t.Errorf("times = %v, want %v", plan.TimesOfDay, tt.wantTimes)
			}
			if plan.DurationDays != tt.wantDur {
				t.Errorf("duration = %d, want %d", plan.DurationDays, tt.wantDur)
			}
		})
	}
}

func TestNormalizeTrimsFields(t *testing.T) {
	plan, err := Normalize(RawPlan{
		MedicationName:      "  Tylenol  ",
		Dosage:              " 500mg ",
		Frequency:           1,
		SpecialInstructions: " with water ",
	})
	if err != nil {
		t.Fatal(err)
	}
	if plan.MedicationName != "Tylenol" || plan.Dosage != "500mg" || plan.SpecialInstructions != "with water" {
		t.Errorf("fields not trimmed: %+v", plan)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want TimeOfDay
		ok   bool
	}{
		{"08:00", TimeOfDay{Hour: 8}, true},
		{"23:59", TimeOfDay{Hour: 23, Minute: 59}, true},
		{"7:30", TimeOfDay{Hour: 7, Minute: 30}, true},
		{"24:00", TimeOfDay{}, false},
		{"12:60", TimeOfDay{}, false},
		{"noon", TimeOfDay{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseTimeOfDay(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
