package calendar

import (
	"context"
	"log"
)

// FailedInsert records one spec that could not be inserted.
type FailedInsert struct {
	Spec EventSpec
	Err  error
}

// CommitResult summarizes a commit: InsertedCount only counts specs that
// were actually inserted.
type CommitResult struct {
	InsertedCount int
	Failed        []FailedInsert
	Links         []string
}

// Committer inserts event specs through the calendar capability.
type Committer struct {
	svc        Service
	calendarID string
}

// NewCommitter creates a Committer writing to the given calendar.
func NewCommitter(svc Service, calendarID string) *Committer {
	return &Committer{svc: svc, calendarID: calendarID}
}

// Commit inserts specs in input order. Insertions are independent: one
// failure does not stop the rest. Cancellation stops further inserts;
// already-inserted events are not rolled back and the result reflects only
// what completed.
func (c *Committer) Commit(ctx context.Context, specs []EventSpec) CommitResult {
	var result CommitResult

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, FailedInsert{Spec: spec, Err: err})
			continue
		}

		created, err := c.svc.InsertEvent(ctx, c.calendarID, spec)
		if err != nil {
			log.Printf("Warning: failed to insert event %q: %v", spec.Title, err)
			result.Failed = append(result.Failed, FailedInsert{Spec: spec, Err: err})
			continue
		}

		result.InsertedCount++
		if created.HTMLLink != "" {
			result.Links = append(result.Links, created.HTMLLink)
		}
	}
	return result
}
