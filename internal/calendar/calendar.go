package calendar

import (
	"context"
	"fmt"
	"time"
)

// EventSpec is one recurring calendar reminder derived from a plan.
type EventSpec struct {
	Title                  string
	Description            string
	StartLocal             time.Time
	EndLocal               time.Time
	TimeZoneID             string
	RecurrenceRule         string
	ReminderOffsetsMinutes []int
}

// Event is an existing or newly created calendar event.
type Event struct {
	ID       string
	Title    string
	Start    time.Time
	HTMLLink string
}

// Service is the external calendar capability. Both operations are remote
// and may fail transiently; re-insertion creates a duplicate on the provider
// side unless the duplicate guard intervenes first.
type Service interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, titleFilter string) ([]Event, error)
	InsertEvent(ctx context.Context, calendarID string, spec EventSpec) (Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// UpcomingDoses lists dose reminders in the next `days` days.
func UpcomingDoses(ctx context.Context, svc Service, calendarID string, days int) ([]Event, error) {
	now := time.Now()
	events, err := svc.ListEvents(ctx, calendarID, now, now.AddDate(0, 0, days), doseTitleSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming doses: %w", err)
	}
	return events, nil
}
