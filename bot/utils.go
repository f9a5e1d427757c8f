package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"scrimbot/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

var mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

// ParseMentions extracts user IDs from a string of Discord mentions
func ParseMentions(raw string) []int64 {
	matches := mentionPattern.FindAllStringSubmatch(raw, -1)
	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// FormatAmount formats a points amount with thousand separators
func FormatAmount(amount int64) string {
	str := fmt.Sprintf("%d", amount)

	n := len(str)
	if n <= 3 {
		return str
	}

	var result strings.Builder
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays
// in the reader's local timezone. "f" = short date/time, "R" = relative.
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}

// Mention renders a user mention from an int64 ID
func Mention(userID int64) string {
	return fmt.Sprintf("<@%d>", userID)
}

// MentionList renders a space-separated list of user mentions
func MentionList(userIDs []int64) string {
	parts := make([]string, len(userIDs))
	for i, id := range userIDs {
		parts[i] = Mention(id)
	}
	return strings.Join(parts, " ")
}

// userFacingError maps service errors to messages safe to show in Discord
func userFacingError(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidSchedule):
		return "The meeting must start in the future and include at least one participant."
	case errors.Is(err, service.ErrNotFound):
		return "That meeting doesn't exist or is already over."
	case errors.Is(err, service.ErrPermissionDenied):
		return "You need administrator permissions for that."
	case errors.Is(err, service.ErrInvalidStake):
		return "The stake must be a positive number of points."
	case errors.Is(err, service.ErrInsufficientFunds):
		return "You don't have enough points for that stake."
	case errors.Is(err, service.ErrMatchAlreadyStarted):
		return "That match has already started, bets are closed."
	case errors.Is(err, service.ErrExternalUnavailable):
		return "The match feed isn't responding right now. Please try again shortly."
	default:
		return "Something went wrong. Please try again."
	}
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
		},
	})
	if err != nil {
		log.Printf("Error responding to command: %v", err)
	}
}

func (b *Bot) respondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("❌ %s", message),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("Error sending error response: %v", err)
	}
}

// callerID parses the invoking member's Discord ID
func callerID(i *discordgo.InteractionCreate) (int64, error) {
	if i.Member == nil || i.Member.User == nil {
		return 0, fmt.Errorf("interaction has no member")
	}
	return strconv.ParseInt(i.Member.User.ID, 10, 64)
}

// callerIsAdmin checks the invoking member's administrator permission
func callerIsAdmin(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

// commandOptions indexes a command's options by name
func commandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	indexed := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		indexed[opt.Name] = opt
	}
	return indexed
}
