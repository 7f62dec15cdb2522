package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// googleService implements Service against the Google Calendar v3 API using
// an OAuth client secret plus a cached token file.
type googleService struct {
	svc *gcal.Service
}

// NewGoogleService builds the calendar client. credentialsFile is the OAuth
// client secret JSON; tokenFile is a previously obtained user token (the
// token is refreshed automatically through its refresh token).
func NewGoogleService(ctx context.Context, credentialsFile, tokenFile string) (Service, error) {
	secret, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	conf, err := google.ConfigFromJSON(secret, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret: %w", err)
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar token: %w", err)
	}

	svc, err := gcal.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &googleService{svc: svc}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token file: %w", err)
	}
	return tok, nil
}

// ListEvents returns single (expanded) events in [timeMin, timeMax] ordered
// by start time, optionally narrowed with a free-text query.
func (g *googleService) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, titleFilter string) ([]Event, error) {
	call := g.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if titleFilter != "" {
		call = call.Q(titleFilter)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("calendar list failed: %w", err)
	}

	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		events = append(events, Event{
			ID:       item.Id,
			Title:    item.Summary,
			Start:    eventStart(item),
			HTMLLink: item.HtmlLink,
		})
	}
	return events, nil
}

// InsertEvent creates one recurring event from the spec.
func (g *googleService) InsertEvent(ctx context.Context, calendarID string, spec EventSpec) (Event, error) {
	overrides := make([]*gcal.EventReminder, 0, len(spec.ReminderOffsetsMinutes))
	for _, minutes := range spec.ReminderOffsetsMinutes {
		overrides = append(overrides, &gcal.EventReminder{Method: "popup", Minutes: int64(minutes)})
	}

	ev := &gcal.Event{
		Summary:     spec.Title,
		Description: spec.Description,
		Start: &gcal.EventDateTime{
			DateTime: spec.StartLocal.Format(time.RFC3339),
			TimeZone: spec.TimeZoneID,
		},
		End: &gcal.EventDateTime{
			DateTime: spec.EndLocal.Format(time.RFC3339),
			TimeZone: spec.TimeZoneID,
		},
		Recurrence: []string{spec.RecurrenceRule},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := g.svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("calendar insert failed: %w", err)
	}

	return Event{
		ID:       created.Id,
		Title:    created.Summary,
		Start:    eventStart(created),
		HTMLLink: created.HtmlLink,
	}, nil
}

// DeleteEvent removes an event (for recurring events, the whole series).
func (g *googleService) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := g.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar delete failed: %w", err)
	}
	return nil
}

func eventStart(item *gcal.Event) time.Time {
	if item.Start == nil {
		return time.Time{}
	}
	if item.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, item.Start.DateTime); err == nil {
			return t
		}
	}
	if item.Start.Date != "" {
		if t, err := time.Parse("2006-01-02", item.Start.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}
