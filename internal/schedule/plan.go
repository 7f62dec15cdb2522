package schedule

import (
	"fmt"
)

// TimeOfDay is a wall-clock dose time.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// String formats the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MinuteOfDay returns minutes since midnight, used for chronological sorting.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// ParseTimeOfDay parses "HH:MM" (or "H:MM") into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return TimeOfDay{}, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, false
	}
	return TimeOfDay{Hour: h, Minute: m}, true
}

// MealRelation marks whether doses are tied to meals.
type MealRelation int

const (
	MealNone MealRelation = iota
	MealBefore
	MealAfter
)

// RawPlan is the extraction output before normalization: whatever the
// pattern tier or the completion service managed to capture.
type RawPlan struct {
	MedicationName      string
	Dosage              string
	Frequency           int // doses per day; 0 when not stated
	DayParts            []string
	MealRelation        MealRelation
	Times               []TimeOfDay // explicit clock times
	DurationDays        int // 0 when not stated
	SpecialInstructions string
}

// Plan is one normalized medication instruction.
type Plan struct {
	MedicationName      string      `json:"medication_name"`
	Dosage              string      `json:"dosage"`
	TimesOfDay          []TimeOfDay `json:"times_of_day"`
	DurationDays        int         `json:"duration_days"`
	SpecialInstructions string      `json:"special_instructions"`
}
