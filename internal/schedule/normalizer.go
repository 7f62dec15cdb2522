package schedule

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

const defaultDurationDays = 7

// dayPartClock maps a detected day-part keyword to its default dose time.
var dayPartClock = map[string]TimeOfDay{
	"morning": {Hour: 8},
	"lunch":   {Hour: 12},
	"evening": {Hour: 18},
	"bedtime": {Hour: 22},
}

// Meal-relative tables: one slot per main meal (morning, lunch, evening).
var (
	beforeMealTimes = []TimeOfDay{{Hour: 7, Minute: 30}, {Hour: 11, Minute: 30}, {Hour: 17, Minute: 30}}
	afterMealTimes  = []TimeOfDay{{Hour: 8, Minute: 30}, {Hour: 12, Minute: 30}, {Hour: 18, Minute: 30}}
)

var mealSlotIndex = map[string]int{"morning": 0, "lunch": 1, "evening": 2}

// frequencyDefaults provides dose times when no keyword gave us any.
var frequencyDefaults = map[int][]TimeOfDay{
	1: {{Hour: 8}},
	2: {{Hour: 8}, {Hour: 20}},
	3: {{Hour: 8}, {Hour: 12}, {Hour: 20}},
	4: {{Hour: 8}, {Hour: 12}, {Hour: 16}, {Hour: 20}},
}

var fallbackTimes = []TimeOfDay{{Hour: 8}, {Hour: 12}, {Hour: 20}}

// Normalize fills defaults, resolves day-part keywords to clock times and
// clamps the time list to the requested frequency. It rejects plans whose
// medication name is shorter than two characters, which filters the
// false-positive matches the pattern tier occasionally produces.
func Normalize(raw RawPlan) (Plan, error) {
	name := strings.TrimSpace(raw.MedicationName)
	if utf8.RuneCountInString(name) < 2 {
		return Plan{}, fmt.Errorf("medication name %q is too short", name)
	}

	times := dedupeSorted(raw.Times)
	if len(times) == 0 {
		times = dedupeSorted(keywordTimes(raw))
	}

	freq := raw.Frequency
	if freq <= 0 {
		freq = len(times)
	}
	if len(times) == 0 {
		defaults, ok := frequencyDefaults[freq]
		if !ok {
			defaults = fallbackTimes
		}
		times = append([]TimeOfDay(nil), defaults...)
		if freq <= 0 {
			freq = len(times)
		}
	}

	// Never exceed the requested frequency; pad from the defaults when short.
	if len(times) > freq {
		times = times[:freq]
	}
	if len(times) < freq {
		pad, ok := frequencyDefaults[freq]
		if !ok {
			pad = fallbackTimes
		}
		for _, t := range pad {
			if len(times) >= freq {
				break
			}
			if !containsTime(times, t) {
				times = append(times, t)
			}
		}
		times = dedupeSorted(times)
	}

	duration := raw.DurationDays
	if duration <= 0 {
		duration = defaultDurationDays
	}

	return Plan{
		MedicationName:      name,
		Dosage:              strings.TrimSpace(raw.Dosage),
		TimesOfDay:          times,
		DurationDays:        duration,
		SpecialInstructions: strings.TrimSpace(raw.SpecialInstructions),
	}, nil
}

// keywordTimes resolves day-part keywords to clock times. A meal-relative
// modifier shifts the main-meal slots (before: 07:30/11:30/17:30, after:
// 08:30/12:30/18:30); with no day-part at all it yields the whole table.
func keywordTimes(raw RawPlan) []TimeOfDay {
	if len(raw.DayParts) > 0 {
		out := make([]TimeOfDay, 0, len(raw.DayParts))
		for _, part := range raw.DayParts {
			base, ok := dayPartClock[part]
			if !ok {
				continue
			}
			if slot, isMeal := mealSlotIndex[part]; isMeal {
				switch raw.MealRelation {
				case MealBefore:
					base = beforeMealTimes[slot]
				case MealAfter:
					base = afterMealTimes[slot]
				}
			}
			out = append(out, base)
		}
		return out
	}

	switch raw.MealRelation {
	case MealBefore:
		return append([]TimeOfDay(nil), beforeMealTimes...)
	case MealAfter:
		return append([]TimeOfDay(nil), afterMealTimes...)
	}
	return nil
}

func dedupeSorted(times []TimeOfDay) []TimeOfDay {
	if len(times) == 0 {
		return nil
	}
	seen := make(map[TimeOfDay]struct{}, len(times))
	out := make([]TimeOfDay, 0, len(times))
	for _, t := range times {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinuteOfDay() < out[j].MinuteOfDay() })
	return out
}

func containsTime(times []TimeOfDay, t TimeOfDay) bool {
	for _, have := range times {
		if have == t {
			return true
		}
	}
	return false
}
