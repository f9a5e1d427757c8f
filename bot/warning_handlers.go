package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

func (b *Bot) handleWarnings(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	options := commandOptions(i)

	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		log.Printf("Error parsing guild ID %s: %v", i.GuildID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	if opt, ok := options["user"]; ok {
		target := opt.UserValue(s)
		userID, err := strconv.ParseInt(target.ID, 10, 64)
		if err != nil {
			log.Printf("Error parsing user ID %s: %v", target.ID, err)
			b.respondWithError(s, i, "Unable to process request. Please try again.")
			return
		}

		count, err := b.warningService.GetWarnings(ctx, guildID, userID)
		if err != nil {
			log.Printf("Error getting warnings for user %d: %v", userID, err)
			b.respondWithError(s, i, userFacingError(err))
			return
		}

		b.respond(s, i, fmt.Sprintf("%s has **%d** attendance warning(s).", Mention(userID), count))
		return
	}

	warnings, err := b.warningService.ListWarnings(ctx, guildID)
	if err != nil {
		log.Printf("Error listing warnings for guild %d: %v", guildID, err)
		b.respondWithError(s, i, userFacingError(err))
		return
	}

	if len(warnings) == 0 {
		b.respond(s, i, "Nobody has attendance warnings. 🎉")
		return
	}

	var sb strings.Builder
	sb.WriteString("**Attendance warnings**\n")
	for _, w := range warnings {
		fmt.Fprintf(&sb, "%s — %d\n", Mention(w.UserID), w.Count)
	}
	b.respond(s, i, sb.String())
}

func (b *Bot) handleResetWarnings(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	options := commandOptions(i)

	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		log.Printf("Error parsing guild ID %s: %v", i.GuildID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	isAdmin := callerIsAdmin(i)

	if opt, ok := options["user"]; ok {
		target := opt.UserValue(s)
		userID, err := strconv.ParseInt(target.ID, 10, 64)
		if err != nil {
			log.Printf("Error parsing user ID %s: %v", target.ID, err)
			b.respondWithError(s, i, "Unable to process request. Please try again.")
			return
		}

		if err := b.warningService.ResetWarnings(ctx, guildID, userID, isAdmin); err != nil {
			log.Printf("Error resetting warnings for user %d: %v", userID, err)
			b.respondWithError(s, i, userFacingError(err))
			return
		}

		b.respond(s, i, fmt.Sprintf("✅ Warnings reset for %s.", Mention(userID)))
		return
	}

	if err := b.warningService.ResetAllWarnings(ctx, guildID, isAdmin); err != nil {
		log.Printf("Error resetting all warnings for guild %d: %v", guildID, err)
		b.respondWithError(s, i, userFacingError(err))
		return
	}

	b.respond(s, i, "✅ All attendance warnings reset.")
}
