package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "schedule",
			Description: "Schedule a meeting with attendance tracking",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "when",
					Description: "Start time in UTC, e.g. 2026-09-01 18:30",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "voice_channel",
					Description: "Voice channel the meeting takes place in",
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildVoice,
					},
					Required: true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "participants",
					Description: "Mention everyone expected to attend",
					Required:    true,
				},
			},
		},
		{
			Name:        "cancelmeeting",
			Description: "Cancel a scheduled meeting",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "id",
					Description: "Meeting ID to cancel",
					Required:    true,
				},
			},
		},
		{
			Name:        "meetings",
			Description: "List upcoming meetings",
		},
		{
			Name:        "warnings",
			Description: "Show attendance warnings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to check (defaults to everyone)",
					Required:    false,
				},
			},
		},
		{
			Name:        "resetwarnings",
			Description: "Reset attendance warnings (admins only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to reset (defaults to everyone)",
					Required:    false,
				},
			},
		},
		{
			Name:        "balance",
			Description: "Check your current points balance",
		},
		{
			Name:        "leaderboard",
			Description: "Show the top balances and your rank",
		},
		{
			Name:        "bet",
			Description: "Bet points on an upcoming match",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "match",
					Description: "Match ID from /upcoming",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "team",
					Description: "Team you expect to win",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Points to stake",
					Required:    true,
				},
			},
		},
		{
			Name:        "upcoming",
			Description: "List matches currently open for bets",
		},
	}

	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	return nil
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "schedule":
		b.handleSchedule(s, i)
	case "cancelmeeting":
		b.handleCancelMeeting(s, i)
	case "meetings":
		b.handleMeetings(s, i)
	case "warnings":
		b.handleWarnings(s, i)
	case "resetwarnings":
		b.handleResetWarnings(s, i)
	case "balance":
		b.handleBalance(s, i)
	case "leaderboard":
		b.handleLeaderboard(s, i)
	case "bet":
		b.handleBet(s, i)
	case "upcoming":
		b.handleUpcoming(s, i)
	}
}
