package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"scrimbot/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (b *Bot) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	guildID, userID, err := callerScope(i)
	if err != nil {
		log.Printf("Error parsing interaction IDs: %v", err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	balance, err := b.wagerService.GetBalance(ctx, guildID, userID)
	if err != nil {
		log.Printf("Error getting balance for user %d: %v", userID, err)
		b.respondWithError(s, i, userFacingError(err))
		return
	}

	b.respond(s, i, fmt.Sprintf("%s, your current balance: **%s points**",
		Mention(userID), FormatAmount(balance.Balance)))
}

func (b *Bot) handleLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	guildID, userID, err := callerScope(i)
	if err != nil {
		log.Printf("Error parsing interaction IDs: %v", err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	entries, caller, err := b.wagerService.Leaderboard(ctx, guildID, userID, 10)
	if err != nil {
		log.Printf("Error getting leaderboard for guild %d: %v", guildID, err)
		b.respondWithError(s, i, userFacingError(err))
		return
	}

	var sb strings.Builder
	sb.WriteString("**🏆 Leaderboard**\n")
	for _, entry := range entries {
		fmt.Fprintf(&sb, "`%2d.` %s — **%s points**\n",
			entry.Rank, Mention(entry.UserID), FormatAmount(entry.Balance))
	}
	if caller != nil {
		fmt.Fprintf(&sb, "\nYour rank: **#%d** with **%s points**",
			caller.Rank, FormatAmount(caller.Balance))
	}
	b.respond(s, i, sb.String())
}

func (b *Bot) handleBet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	options := commandOptions(i)

	guildID, userID, err := callerScope(i)
	if err != nil {
		log.Printf("Error parsing interaction IDs: %v", err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}
	channelID, err := strconv.ParseInt(i.ChannelID, 10, 64)
	if err != nil {
		log.Printf("Error parsing channel ID %s: %v", i.ChannelID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	bet, err := b.wagerService.PlaceBet(ctx, service.PlaceBetParams{
		GuildID:         guildID,
		UserID:          userID,
		ChannelID:       channelID,
		MatchID:         options["match"].StringValue(),
		PredictedWinner: options["team"].StringValue(),
		Stake:           options["amount"].IntValue(),
	})
	if err != nil {
		log.Printf("Error placing bet for user %d: %v", userID, err)
		b.respondWithError(s, i, userFacingError(err))
		return
	}

	b.respond(s, i, fmt.Sprintf("🎲 %s staked **%s points** on **%s** winning `%s`.",
		Mention(userID), FormatAmount(bet.Stake), bet.PredictedWinner, bet.MatchID))
}

func (b *Bot) handleUpcoming(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	matches, err := b.feed.Upcoming(ctx)
	if err != nil {
		log.Printf("Error fetching upcoming matches: %v", err)
		b.respondWithError(s, i, userFacingError(service.ErrExternalUnavailable))
		return
	}

	if len(matches) == 0 {
		b.respond(s, i, "No upcoming matches right now.")
		return
	}

	const maxListed = 10
	if len(matches) > maxListed {
		matches = matches[:maxListed]
	}

	var sb strings.Builder
	sb.WriteString("**Upcoming matches**\n")
	for _, m := range matches {
		fmt.Fprintf(&sb, "**%s vs %s** — %s\n`%s`\n", m.Team1, m.Team2, m.Event, m.ID)
	}
	b.respond(s, i, sb.String())
}

// callerScope parses the guild and caller IDs shared by most wager commands
func callerScope(i *discordgo.InteractionCreate) (guildID, userID int64, err error) {
	guildID, err = strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid guild ID %q: %w", i.GuildID, err)
	}
	userID, err = callerID(i)
	if err != nil {
		return 0, 0, err
	}
	return guildID, userID, nil
}
