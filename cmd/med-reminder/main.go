package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"med-reminder/internal/calendar"
	"med-reminder/internal/config"
	"med-reminder/internal/database"
	"med-reminder/internal/llm"
	"med-reminder/internal/metrics"
	"med-reminder/internal/schedule"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "plan":
		planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
		commit := planCmd.Bool("commit", false, "Insert the events into Google Calendar")
		start := planCmd.String("start", "", "Start date (YYYY-MM-DD, default today)")
		planCmd.Parse(os.Args[2:])

		text := strings.TrimSpace(strings.Join(planCmd.Args(), " "))
		if text == "" {
			log.Fatal("plan requires the instruction text as an argument")
		}
		if err := runPlan(ctx, cfg, text, *start, *commit); err != nil {
			log.Fatalf("Plan failed: %v", err)
		}
	case "upcoming":
		upcomingCmd := flag.NewFlagSet("upcoming", flag.ExitOnError)
		days := upcomingCmd.Int("days", 7, "How many days ahead to list")
		upcomingCmd.Parse(os.Args[2:])

		if err := runUpcoming(ctx, cfg, *days); err != nil {
			log.Fatalf("Upcoming failed: %v", err)
		}
	case "delete-event":
		deleteCmd := flag.NewFlagSet("delete-event", flag.ExitOnError)
		eventID := deleteCmd.String("id", "", "Event ID to delete (removes the whole series)")
		deleteCmd.Parse(os.Args[2:])

		if *eventID == "" {
			log.Fatal("delete-event requires -id")
		}
		if err := runDeleteEvent(ctx, cfg, *eventID); err != nil {
			log.Fatalf("Delete failed: %v", err)
		}
		fmt.Println("Event series deleted.")
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		if err := runMetricsCleanup(cfg, *days); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// runPlan turns one instruction into event specs, printing them and
// optionally committing to the calendar.
func runPlan(ctx context.Context, cfg *config.Config, text, startDate string, commit bool) error {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.TimeZone, err)
	}

	start := time.Now().In(loc)
	if startDate != "" {
		start, err = time.ParseInLocation("2006-01-02", startDate, loc)
		if err != nil {
			return fmt.Errorf("invalid -start date %q: %w", startDate, err)
		}
	}

	textGen, err := newTextGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	if closer, ok := textGen.(llm.Closer); ok {
		defer closer.Close()
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	metricsStore, err := metrics.NewStore(db.SQL)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics store: %w", err)
	}

	extractor := schedule.NewExtractor(textGen, cfg.DisableLocalExtractor)
	raw, meta, ok := extractor.Extract(ctx, text)
	if meta.AgentName != "" {
		_ = metricsStore.RecordMeta(meta)
	}
	if !ok {
		return fmt.Errorf("could not extract a medication schedule from %q", text)
	}

	plan, err := schedule.Normalize(raw)
	if err != nil {
		return fmt.Errorf("failed to normalize schedule: %w", err)
	}

	fmt.Printf("Medication: %s\n", plan.MedicationName)
	if plan.Dosage != "" {
		fmt.Printf("Dosage:     %s\n", plan.Dosage)
	}
	fmt.Printf("Times:      %s\n", joinTimes(plan.TimesOfDay))
	fmt.Printf("Duration:   %d days\n", plan.DurationDays)
	if plan.SpecialInstructions != "" {
		fmt.Printf("Notes:      %s\n", plan.SpecialInstructions)
	}

	specs := calendar.Synthesize(plan, start, loc)
	fmt.Printf("\n%d event series, %d total reminders:\n", len(specs), calendar.TotalOccurrences(specs))
	for _, spec := range specs {
		fmt.Printf("  %s  %s  %s\n", spec.StartLocal.Format("2006-01-02 15:04"), spec.RecurrenceRule, spec.Title)
	}

	if !commit {
		fmt.Println("\nDry run. Re-run with -commit to insert into Google Calendar.")
		return nil
	}

	calSvc, err := calendar.NewGoogleService(ctx, cfg.GoogleCredentialsFile, cfg.GoogleTokenFile)
	if err != nil {
		return err
	}

	guard := calendar.NewDuplicateGuard(calSvc, cfg.GoogleCalendarID)
	committer := calendar.NewCommitter(calSvc, cfg.GoogleCalendarID)

	fresh, warnings := guard.FilterNew(ctx, specs)
	for _, w := range warnings {
		log.Printf("Warning: %s", w)
	}
	if skipped := len(specs) - len(fresh); skipped > 0 {
		fmt.Printf("%d series already exist and were skipped.\n", skipped)
	}

	result := committer.Commit(ctx, fresh)
	fmt.Printf("Inserted %d series, %d failed.\n", result.InsertedCount, len(result.Failed))
	for _, link := range result.Links {
		fmt.Println(link)
	}
	for _, f := range result.Failed {
		fmt.Printf("failed: %s: %v\n", f.Spec.Title, f.Err)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d series failed to insert", len(result.Failed))
	}
	return nil
}

func runUpcoming(ctx context.Context, cfg *config.Config, days int) error {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.TimeZone, err)
	}

	calSvc, err := calendar.NewGoogleService(ctx, cfg.GoogleCredentialsFile, cfg.GoogleTokenFile)
	if err != nil {
		return err
	}

	events, err := calendar.UpcomingDoses(ctx, calSvc, cfg.GoogleCalendarID, days)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Printf("No dose reminders in the next %d days.\n", days)
		return nil
	}
	for _, ev := range events {
		fmt.Printf("%s  %-40s  %s\n", ev.Start.In(loc).Format("2006-01-02 15:04"), ev.Title, ev.ID)
	}
	return nil
}

func runDeleteEvent(ctx context.Context, cfg *config.Config, eventID string) error {
	calSvc, err := calendar.NewGoogleService(ctx, cfg.GoogleCredentialsFile, cfg.GoogleTokenFile)
	if err != nil {
		return err
	}
	return calSvc.DeleteEvent(ctx, cfg.GoogleCalendarID, eventID)
}

func runMetricsCleanup(cfg *config.Config, days int) error {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	metricsStore, err := metrics.NewStore(db.SQL)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics store: %w", err)
	}

	affected, err := metricsStore.Cleanup(days)
	if err != nil {
		return err
	}
	fmt.Printf("Successfully removed %d old metric records.\n", affected)
	return nil
}

func newTextGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, error) {
	if cfg.LLMProvider == "groq" {
		return llm.NewGroqClient(cfg), nil
	}
	return llm.NewGeminiClient(ctx, cfg)
}

func joinTimes(times []schedule.TimeOfDay) string {
	parts := make([]string, 0, len(times))
	for _, t := range times {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ", ")
}

func printUsage() {
	fmt.Println("Usage: med-reminder <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  plan [-commit] [-start YYYY-MM-DD] \"instructions\"   Parse instructions into reminder events")
	fmt.Println("  upcoming [-days N]                                  List dose reminders in the next N days")
	fmt.Println("  delete-event -id <event-id>                         Delete a reminder series")
	fmt.Println("  metrics-cleanup [-days N]                           Remove old metric records")
}
