package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"scrimbot/bot"
	"scrimbot/config"
	"scrimbot/database"
	"scrimbot/dispatch"
	"scrimbot/events"
	"scrimbot/feed"
	"scrimbot/models"
	"scrimbot/repository"
	"scrimbot/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting scrimbot...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus and unit of work factory
	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// The platform adapter and the bot share one Discord session
	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	platform := bot.NewPlatform(session)

	// Initialize the match feed client
	feedClient := feed.NewClient(cfg.FeedBaseURL, cfg.ExternalTimeout)

	// Initialize services
	log.Println("Initializing services...")
	meetingService := service.NewMeetingService(uowFactory, platform, cfg)
	attendanceService := service.NewAttendanceService(uowFactory, platform, cfg)
	warningService := service.NewWarningService(uowFactory)
	wagerService := service.NewWagerService(uowFactory, feedClient, cfg)
	settlementService := service.NewSettlementService(uowFactory, feedClient, cfg)
	log.Println("Services initialized successfully")

	// Initialize the trigger dispatcher against the pool-backed trigger store
	dispatcher := dispatch.New(repository.NewTriggerRepository(db), dispatch.Config{
		PollInterval: cfg.DispatchPollInterval,
		Workers:      cfg.DispatchWorkers,
		MaxAttempts:  cfg.TriggerMaxAttempts,
		RetryBase:    cfg.TriggerRetryBase,
	})
	dispatcher.Register(models.TriggerKindReminder, func(ctx context.Context, trigger *models.Trigger) error {
		meetingID, err := models.ParseMeetingOwnerRef(trigger.OwnerRef)
		if err != nil {
			return err
		}
		return meetingService.HandleReminder(ctx, meetingID)
	})
	dispatcher.Register(models.TriggerKindAttendanceCheck, func(ctx context.Context, trigger *models.Trigger) error {
		meetingID, err := models.ParseMeetingOwnerRef(trigger.OwnerRef)
		if err != nil {
			return err
		}
		return attendanceService.HandleAttendanceCheck(ctx, meetingID)
	})
	dispatcher.Register(models.TriggerKindSettlement, func(ctx context.Context, trigger *models.Trigger) error {
		matchID, err := models.ParseMatchOwnerRef(trigger.OwnerRef)
		if err != nil {
			return err
		}
		return settlementService.HandleSettlementTrigger(ctx, matchID)
	})

	// Feed events drive settlement; the durable settlement triggers cover
	// anything the feed watcher misses
	eventBus.Subscribe(events.EventTypeMatchResult, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.MatchResultEvent); ok {
			if _, err := settlementService.SettleMatch(ctx, e.MatchID, e.Winner); err != nil {
				log.Printf("Error settling match %s: %v", e.MatchID, err)
			}
		}
	})
	eventBus.Subscribe(events.EventTypeMatchVoided, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.MatchVoidedEvent); ok {
			if _, err := settlementService.VoidMatch(ctx, e.MatchID); err != nil {
				log.Printf("Error voiding match %s: %v", e.MatchID, err)
			}
		}
	})

	// Initialize Discord bot
	log.Println("Initializing Discord bot...")
	botConfig := bot.Config{
		Token:   cfg.DiscordToken,
		GuildID: cfg.DiscordGuildID,
	}
	discordBot, err := bot.New(botConfig, session, meetingService, warningService, wagerService, feedClient, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Println("Discord bot initialized successfully")

	// Start background workers once the bot is connected, so trigger
	// callbacks can reach Discord
	stopDispatcher := dispatcher.Start(ctx)

	watcher := feed.NewWatcher(feedClient, uowFactory, eventBus, cfg.FeedPollSpec)
	stopWatcher, err := watcher.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start feed watcher: %w", err)
	}

	// Wait for context cancellation
	log.Printf("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down...")

	stopWatcher()
	stopDispatcher()

	if err := discordBot.Close(); err != nil {
		log.Printf("Error closing Discord bot: %v", err)
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Println("Closing database connection...")
	db.Close()

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}
