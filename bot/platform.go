package bot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// Platform adapts a Discord session to the service layer's platform boundary
type Platform struct {
	session *discordgo.Session
}

// NewPlatform wraps a connected Discord session
func NewPlatform(session *discordgo.Session) *Platform {
	return &Platform{session: session}
}

// SendMention delivers a message mentioning the given users in a channel
func (p *Platform) SendMention(ctx context.Context, channelID int64, userIDs []int64, text string) error {
	content := text
	if len(userIDs) > 0 {
		content = fmt.Sprintf("%s %s", MentionList(userIDs), text)
	}

	_, err := p.session.ChannelMessageSend(
		strconv.FormatInt(channelID, 10),
		content,
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to send message to channel %d: %w", channelID, err)
	}
	return nil
}

// VoicePresence returns the users currently connected to a voice channel,
// read from the gateway state cache so no REST round trip is needed.
func (p *Platform) VoicePresence(ctx context.Context, guildID, voiceChannelID int64) (map[int64]bool, error) {
	guild, err := p.session.State.Guild(strconv.FormatInt(guildID, 10))
	if err != nil {
		guild, err = p.session.Guild(strconv.FormatInt(guildID, 10), discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to load guild %d: %w", guildID, err)
		}
	}

	channelID := strconv.FormatInt(voiceChannelID, 10)
	present := make(map[int64]bool)
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		userID, err := strconv.ParseInt(vs.UserID, 10, 64)
		if err != nil {
			continue
		}
		present[userID] = true
	}

	return present, nil
}
