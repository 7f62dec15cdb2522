package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"med-reminder/internal/schedule"
)

const (
	eventDuration   = 30 * time.Minute
	doseTitleSuffix = "— dose"
)

// Reminder offsets in minutes before the dose: one heads-up and one at start.
var reminderOffsets = []int{10, 0}

// Synthesize expands a normalized plan into one EventSpec per dose time,
// anchored at startDate. Pure function: deterministic for identical inputs,
// output order matches plan.TimesOfDay.
func Synthesize(plan schedule.Plan, startDate time.Time, loc *time.Location) []EventSpec {
	specs := make([]EventSpec, 0, len(plan.TimesOfDay))
	for _, tod := range plan.TimesOfDay {
		start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
			tod.Hour, tod.Minute, 0, 0, loc)

		specs = append(specs, EventSpec{
			Title:                  doseTitle(plan.MedicationName),
			Description:            doseDescription(plan, tod),
			StartLocal:             start,
			EndLocal:               start.Add(eventDuration),
			TimeZoneID:             loc.String(),
			RecurrenceRule:         fmt.Sprintf("RRULE:FREQ=DAILY;COUNT=%d", plan.DurationDays),
			ReminderOffsetsMinutes: append([]int(nil), reminderOffsets...),
		})
	}
	return specs
}

func doseTitle(medicationName string) string {
	return medicationName + " " + doseTitleSuffix
}

func doseDescription(plan schedule.Plan, tod schedule.TimeOfDay) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Medication: %s\n", plan.MedicationName)
	if plan.Dosage != "" {
		fmt.Fprintf(&sb, "Dosage: %s\n", plan.Dosage)
	}
	fmt.Fprintf(&sb, "Dose time: %s\n", tod)
	if plan.SpecialInstructions != "" {
		fmt.Fprintf(&sb, "Instructions: %s\n", plan.SpecialInstructions)
	}
	sb.WriteString("⚠️ Take at the scheduled time!")
	return sb.String()
}

// Occurrences expands the spec's recurrence rule into concrete start times.
func (s EventSpec) Occurrences() ([]time.Time, error) {
	r, err := rrule.StrToRRule(strings.TrimPrefix(s.RecurrenceRule, "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse recurrence rule %q: %w", s.RecurrenceRule, err)
	}
	r.DTStart(s.StartLocal)
	return r.All(), nil
}

// TotalOccurrences sums the expanded series lengths across specs. Specs with
// an unparsable rule contribute zero.
func TotalOccurrences(specs []EventSpec) int {
	total := 0
	for _, spec := range specs {
		occ, err := spec.Occurrences()
		if err != nil {
			continue
		}
		total += len(occ)
	}
	return total
}
