package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"med-reminder/internal/calendar"
	"med-reminder/internal/schedule"
	"med-reminder/internal/shared"
)

// TurnResult is the outcome of one user message.
type TurnResult struct {
	// Message is the reply to send back to the user. Empty when Handled is
	// false.
	Message string
	// Committed is true when at least one reminder series was inserted.
	Committed bool
	// Handled is false when the message is neither a scheduling request nor
	// a confirmation reply; the caller may route it elsewhere.
	Handled bool
}

// MetricsRecorder receives extraction run metadata. Optional.
type MetricsRecorder interface {
	RecordMeta(meta shared.AgentMeta) error
}

// Manager drives the two-turn dialogue: a scheduling request produces a plan
// summary plus a pending session, and the user's next message resolves it.
type Manager struct {
	store     Store
	extractor *schedule.Extractor
	guard     *calendar.DuplicateGuard
	committer *calendar.Committer
	metrics   MetricsRecorder
	loc       *time.Location
	ttl       time.Duration

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewManager wires the dialogue manager. metrics may be nil.
func NewManager(store Store, extractor *schedule.Extractor, guard *calendar.DuplicateGuard,
	committer *calendar.Committer, metrics MetricsRecorder, loc *time.Location, ttl time.Duration) *Manager {
	return &Manager{
		store:     store,
		extractor: extractor,
		guard:     guard,
		committer: committer,
		metrics:   metrics,
		loc:       loc,
		ttl:       ttl,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// HandleTurn processes one message for one user. Turns for the same user are
// serialized so a commit cannot race a new extraction.
func (m *Manager) HandleTurn(ctx context.Context, userKey, text string) (TurnResult, error) {
	lock := m.userLock(userKey)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Get(ctx, userKey)
	if err != nil {
		return TurnResult{}, fmt.Errorf("failed to load session: %w", err)
	}
	if sess != nil {
		return m.resolve(ctx, sess, text)
	}
	return m.start(ctx, userKey, text)
}

func (m *Manager) userLock(userKey string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.userLocks[userKey]
	if !ok {
		lock = &sync.Mutex{}
		m.userLocks[userKey] = lock
	}
	return lock
}

// resolve handles a message while a confirmation is pending.
func (m *Manager) resolve(ctx context.Context, sess *Session, text string) (TurnResult, error) {
	switch Classify(text) {
	case VerdictCancelled:
		if err := m.store.Delete(ctx, sess.UserKey); err != nil {
			log.Printf("Warning: failed to delete session for %s: %v", sess.UserKey, err)
		}
		return TurnResult{
			Message: "Okay, I won't add it to your calendar. Send me new instructions anytime.",
			Handled: true,
		}, nil

	case VerdictConfirmed:
		return m.commit(ctx, sess)

	default:
		return TurnResult{
			Message: fmt.Sprintf("Sorry, I didn't catch that. Should I add *%s* to your calendar? Please answer yes or no.",
				sess.PendingPlan.MedicationName),
			Handled: true,
		}, nil
	}
}

// commit expands the pending plan, filters duplicates and inserts the rest.
// The session is gone once this returns, whether or not the inserts worked.
func (m *Manager) commit(ctx context.Context, sess *Session) (TurnResult, error) {
	specs := calendar.Synthesize(sess.PendingPlan, time.Now().In(m.loc), m.loc)
	fresh, warnings := m.guard.FilterNew(ctx, specs)
	result := m.committer.Commit(ctx, fresh)

	if err := m.store.Delete(ctx, sess.UserKey); err != nil {
		log.Printf("Warning: failed to delete session for %s: %v", sess.UserKey, err)
	}

	return TurnResult{
		Message:   commitMessage(sess.PendingPlan, result, len(specs)-len(fresh), warnings),
		Committed: result.InsertedCount > 0,
		Handled:   true,
	}, nil
}

// start handles a message with no pending session.
func (m *Manager) start(ctx context.Context, userKey, text string) (TurnResult, error) {
	if !HasScheduleIntent(text) {
		return TurnResult{Handled: false}, nil
	}

	raw, meta, ok := m.extractor.Extract(ctx, text)
	m.recordMeta(meta)
	if !ok {
		return TurnResult{Message: extractionFailureMessage, Handled: true}, nil
	}

	plan, err := schedule.Normalize(raw)
	if err != nil {
		log.Printf("Warning: failed to normalize plan for %s: %v", userKey, err)
		return TurnResult{Message: extractionFailureMessage, Handled: true}, nil
	}

	now := time.Now()
	sess := &Session{
		UserKey:      userKey,
		State:        StateAwaitingConfirmation,
		PendingPlan:  plan,
		OriginalText: text,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.ttl),
	}
	if err := m.store.Put(ctx, sess); err != nil {
		return TurnResult{}, fmt.Errorf("failed to store session: %w", err)
	}

	return TurnResult{Message: planSummary(plan), Handled: true}, nil
}

func (m *Manager) recordMeta(meta shared.AgentMeta) {
	if m.metrics == nil || meta.AgentName == "" {
		return
	}
	if err := m.metrics.RecordMeta(meta); err != nil {
		log.Printf("Warning: failed to record extraction metrics: %v", err)
	}
}

const extractionFailureMessage = "I couldn't find the medication name, dose times or frequency in that. " +
	"Please include them, e.g. \"Take Tylenol 500mg three times a day for 3 days\"."

func planSummary(plan schedule.Plan) string {
	var sb strings.Builder
	sb.WriteString("💊 Here's the schedule I understood:\n")
	fmt.Fprintf(&sb, "• Medication: %s\n", plan.MedicationName)
	if plan.Dosage != "" {
		fmt.Fprintf(&sb, "• Dosage: %s\n", plan.Dosage)
	}
	fmt.Fprintf(&sb, "• Dose times: %s\n", joinTimes(plan.TimesOfDay))
	fmt.Fprintf(&sb, "• Duration: %d days\n", plan.DurationDays)
	if plan.SpecialInstructions != "" {
		fmt.Fprintf(&sb, "• Instructions: %s\n", plan.SpecialInstructions)
	}
	sb.WriteString("\nShall I add this schedule to your Google Calendar? (yes/no)")
	return sb.String()
}

func joinTimes(times []schedule.TimeOfDay) string {
	parts := make([]string, 0, len(times))
	for _, t := range times {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ", ")
}

func commitMessage(plan schedule.Plan, result calendar.CommitResult, skipped int, warnings []string) string {
	var sb strings.Builder

	switch {
	case result.InsertedCount > 0 && len(result.Failed) == 0:
		fmt.Fprintf(&sb, "✅ Added %d reminder series for *%s* to your calendar (%d days each).",
			result.InsertedCount, plan.MedicationName, plan.DurationDays)
	case result.InsertedCount > 0:
		fmt.Fprintf(&sb, "⚠️ Added %d of %d reminder series for *%s*; %d failed. Please send the instructions again later for the rest.",
			result.InsertedCount, result.InsertedCount+len(result.Failed), plan.MedicationName, len(result.Failed))
	case len(result.Failed) > 0:
		fmt.Fprintf(&sb, "❌ I couldn't add the reminders for *%s* to your calendar. Please try again later.",
			plan.MedicationName)
	default:
		fmt.Fprintf(&sb, "ℹ️ Reminders for *%s* are already in your calendar; nothing new to add.",
			plan.MedicationName)
	}

	if skipped > 0 && result.InsertedCount > 0 {
		fmt.Fprintf(&sb, " %d dose time(s) already existed and were skipped.", skipped)
	}
	for _, w := range warnings {
		fmt.Fprintf(&sb, "\n⚠️ %s", w)
	}
	if len(result.Links) > 0 {
		fmt.Fprintf(&sb, "\n%s", result.Links[0])
	}
	return sb.String()
}
