package bot

import (
	"fmt"

	"scrimbot/events"
	"scrimbot/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token   string
	GuildID string
}

type Bot struct {
	config         Config
	session        *discordgo.Session
	meetingService service.MeetingService
	warningService service.WarningService
	wagerService   service.WagerService
	feed           service.MatchFeed
	eventBus       *events.Bus
}

// NewSession creates the Discord session without opening it, so the platform
// adapter and the services behind the slash commands can share it.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	// Voice states feed attendance checks; members feed mention rendering
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages
	return dg, nil
}

func New(config Config, dg *discordgo.Session, meetingService service.MeetingService, warningService service.WarningService, wagerService service.WagerService, feed service.MatchFeed, eventBus *events.Bus) (*Bot, error) {
	bot := &Bot{
		config:         config,
		session:        dg,
		meetingService: meetingService,
		warningService: warningService,
		wagerService:   wagerService,
		feed:           feed,
		eventBus:       eventBus,
	}

	dg.AddHandler(bot.handleCommands)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	bot.subscribeEvents()

	log.WithField("guildId", config.GuildID).Info("Bot connected")

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}
