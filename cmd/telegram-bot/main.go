package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"med-reminder/internal/calendar"
	"med-reminder/internal/config"
	"med-reminder/internal/database"
	"med-reminder/internal/llm"
	"med-reminder/internal/metrics"
	"med-reminder/internal/schedule"
	"med-reminder/internal/session"
	"med-reminder/internal/telegram"
)

func main() {
	// 1. Load Configuration
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Fatalf("Failed to load timezone %q: %v", cfg.TimeZone, err)
	}

	// 2. Initialize Infrastructure (LLM, database, calendar)
	textGen, err := newTextGenerator(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}
	if closer, ok := textGen.(llm.Closer); ok {
		defer closer.Close()
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	metricsStore, err := metrics.NewStore(db.SQL)
	if err != nil {
		log.Fatalf("Failed to initialize metrics store: %v", err)
	}

	calSvc, err := calendar.NewGoogleService(ctx, cfg.GoogleCredentialsFile, cfg.GoogleTokenFile)
	if err != nil {
		log.Fatalf("Failed to initialize Google Calendar client: %v", err)
	}

	// 3. Initialize Services
	store, err := newSessionStore(cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}

	extractor := schedule.NewExtractor(textGen, cfg.DisableLocalExtractor)
	guard := calendar.NewDuplicateGuard(calSvc, cfg.GoogleCalendarID)
	committer := calendar.NewCommitter(calSvc, cfg.GoogleCalendarID)
	manager := session.NewManager(store, extractor, guard, committer, metricsStore, loc, cfg.SessionTTL)

	// 4. Initialize Telegram Bot
	bot, err := telegram.NewBot(cfg, manager, calSvc, metricsStore, textGen, loc)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	// 5. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	bot.RegisterHandlers()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

func newTextGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, error) {
	if cfg.LLMProvider == "groq" {
		return llm.NewGroqClient(cfg), nil
	}
	return llm.NewGeminiClient(ctx, cfg)
}

func newSessionStore(cfg *config.Config, db *database.DB) (session.Store, error) {
	if cfg.SessionStore == "sqlite" {
		return session.NewSQLiteStore(db.SQL)
	}
	return session.NewMemoryStore(), nil
}
