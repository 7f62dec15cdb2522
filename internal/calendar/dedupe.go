package calendar

import (
	"context"
	"fmt"
	"log"
	"time"
)

// dupWindow is how far around a candidate's start date the existing-event
// query looks.
const dupWindow = 24 * time.Hour

// DuplicateGuard suppresses re-insertion of reminders that already exist in
// the target calendar.
type DuplicateGuard struct {
	svc        Service
	calendarID string
}

// NewDuplicateGuard creates a DuplicateGuard querying the given calendar.
func NewDuplicateGuard(svc Service, calendarID string) *DuplicateGuard {
	return &DuplicateGuard{svc: svc, calendarID: calendarID}
}

// FilterNew drops candidates whose exact title already appears within one
// day of their start date. The check is best-effort: a query failure lets
// the candidate through and is reported as a warning, never as an error.
func (g *DuplicateGuard) FilterNew(ctx context.Context, candidates []EventSpec) ([]EventSpec, []string) {
	var fresh []EventSpec
	var warnings []string

	for _, spec := range candidates {
		existing, err := g.svc.ListEvents(ctx, g.calendarID,
			spec.StartLocal.Add(-dupWindow), spec.StartLocal.Add(dupWindow), spec.Title)
		if err != nil {
			log.Printf("Warning: duplicate check failed for %q: %v", spec.Title, err)
			warnings = append(warnings, fmt.Sprintf("duplicate check failed for %q: %v", spec.Title, err))
			fresh = append(fresh, spec)
			continue
		}

		duplicate := false
		for _, ev := range existing {
			if ev.Title == spec.Title {
				duplicate = true
				break
			}
		}
		if !duplicate {
			fresh = append(fresh, spec)
		}
	}
	return fresh, warnings
}
