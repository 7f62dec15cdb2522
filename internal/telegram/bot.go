package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"med-reminder/internal/calendar"
	"med-reminder/internal/config"
	"med-reminder/internal/llm"
	"med-reminder/internal/metrics"
	"med-reminder/internal/session"
	"med-reminder/internal/shared"
)

const turnTimeout = 60 * time.Second

// Bot wraps the Telegram API around the medication dialogue manager.
type Bot struct {
	api          *tgbotapi.BotAPI
	manager      *session.Manager
	calSvc       calendar.Service
	metricsStore *metrics.Store
	textGen      llm.TextGenerator
	cfg          *config.Config
	loc          *time.Location
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	manager *session.Manager,
	calSvc calendar.Service,
	metricsStore *metrics.Store,
	textGen llm.TextGenerator,
	loc *time.Location,
) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	webhookURL := cfg.TelegramWebhookURL
	wh, _ := tgbotapi.NewWebhook(webhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          bot,
		manager:      manager,
		calSvc:       calSvc,
		metricsStore: metricsStore,
		textGen:      textGen,
		cfg:          cfg,
		loc:          loc,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		return
	}

	isAllowed := false
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if update.Message.From.ID == id {
			isAllowed = true
			break
		}
	}

	if !isAllowed {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	switch {
	case msg.Text == "/start" || msg.Text == "/help":
		b.sendMarkdown(msg.Chat.ID, welcomeText)
		return
	case msg.Text == "/metrics":
		b.handleMetricsRequest(msg)
		return
	case msg.Text == "/upcoming":
		b.handleUpcomingRequest(msg)
		return
	}

	b.handleTurn(msg)
}

// handleTurn runs one dialogue turn: a scheduling request, a confirmation
// reply, or neither (general chat fallback).
func (b *Bot) handleTurn(msg *tgbotapi.Message) {
	statusText := "💊 *Thinking...*"
	replyMsg := tgbotapi.NewMessage(msg.Chat.ID, statusText)
	replyMsg.ParseMode = "Markdown"
	sentMsg, err := b.api.Send(replyMsg)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	userKey := fmt.Sprintf("%d", msg.From.ID)
	result, err := b.manager.HandleTurn(ctx, userKey, msg.Text)
	if err != nil {
		log.Printf("Error handling turn for user %s: %v", userKey, err)
		b.editMarkdown(msg.Chat.ID, sentMsg.MessageID, "❌ Something went wrong on my side. Please try again.")
		return
	}

	if result.Handled {
		b.editMarkdown(msg.Chat.ID, sentMsg.MessageID, result.Message)
		return
	}

	b.editMarkdown(msg.Chat.ID, sentMsg.MessageID, b.generalChatReply(ctx, msg.Text))
}

// generalChatReply answers messages that are neither scheduling requests nor
// confirmation replies.
func (b *Bot) generalChatReply(ctx context.Context, text string) string {
	prompt := "You are a friendly medication reminder assistant. Answer the user's message briefly. " +
		"If it relates to medication schedules, remind them they can say something like " +
		"\"Take Tylenol 500mg three times a day for 3 days\" to set up calendar reminders.\n\nUser: " + text

	started := time.Now()
	resp, err := b.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		log.Printf("Error generating chat reply: %v", err)
		return "🤖 I couldn't come up with a reply. Send me medication instructions and I'll schedule reminders for you."
	}

	if b.metricsStore != nil {
		_ = b.metricsStore.RecordMeta(shared.AgentMeta{
			AgentName: "general-chat",
			Usage:     resp.Usage,
			Latency:   time.Since(started),
		})
	}
	return resp.Content
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.sendMarkdown(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	b.handleMetricsCommand(msg.Chat.ID)
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	usage, err := b.metricsStore.GetDailyUsage(7)
	if err != nil {
		b.sendMarkdown(chatID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.GetSysHealth("data")

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))

	b.sendMarkdown(chatID, sb.String())
}

func (b *Bot) handleUpcomingRequest(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
	defer cancel()

	events, err := calendar.UpcomingDoses(ctx, b.calSvc, b.cfg.GoogleCalendarID, 7)
	if err != nil {
		log.Printf("Error listing upcoming doses: %v", err)
		b.sendMarkdown(msg.Chat.ID, "❌ I couldn't read your calendar. Please try again later.")
		return
	}

	b.sendMarkdown(msg.Chat.ID, formatUpcoming(events, b.loc))
}

func formatUpcoming(events []calendar.Event, loc *time.Location) string {
	if len(events) == 0 {
		return "📭 No dose reminders in the next 7 days."
	}

	var sb strings.Builder
	sb.WriteString("📅 *Upcoming doses (next 7 days)*\n\n")
	for _, ev := range events {
		sb.WriteString(fmt.Sprintf("• %s: %s\n", ev.Start.In(loc).Format("Mon 02 Jan 15:04"), ev.Title))
	}
	return sb.String()
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	b.api.Send(msg)
}

func (b *Bot) editMarkdown(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

const welcomeText = "👋 *Hi! I turn medication instructions into calendar reminders.*\n\n" +
	"Send me something like:\n" +
	"• `Take Tylenol 500mg three times a day for 3 days`\n" +
	"• `Omeprazole 20mg before breakfast for 2 weeks`\n\n" +
	"I'll show you the schedule I understood and, once you confirm, add recurring " +
	"reminders to your Google Calendar.\n\n" +
	"Commands:\n" +
	"/upcoming - dose reminders in the next 7 days\n" +
	"/help - this message"
