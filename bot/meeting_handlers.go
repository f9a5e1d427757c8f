package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"scrimbot/service"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const scheduleTimeLayout = "2006-01-02 15:04"

func (b *Bot) handleSchedule(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	options := commandOptions(i)

	when, err := time.Parse(scheduleTimeLayout, options["when"].StringValue())
	if err != nil {
		b.respondWithError(s, i, fmt.Sprintf("Couldn't read the start time. Use `%s` in UTC.", scheduleTimeLayout))
		return
	}

	voiceChannel := options["voice_channel"].ChannelValue(s)
	if voiceChannel == nil {
		b.respondWithError(s, i, "Invalid voice channel.")
		return
	}
	voiceChannelID, err := strconv.ParseInt(voiceChannel.ID, 10, 64)
	if err != nil {
		log.Printf("Error parsing voice channel ID %s: %v", voiceChannel.ID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	participants := ParseMentions(options["participants"].StringValue())
	if len(participants) == 0 {
		b.respondWithError(s, i, "Mention at least one participant.")
		return
	}

	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		log.Printf("Error parsing guild ID %s: %v", i.GuildID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}
	textChannelID, err := strconv.ParseInt(i.ChannelID, 10, 64)
	if err != nil {
		log.Printf("Error parsing channel ID %s: %v", i.ChannelID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}
	creatorID, err := callerID(i)
	if err != nil {
		log.Printf("Error parsing caller ID: %v", err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	meeting, err := b.meetingService.ScheduleMeeting(ctx, service.ScheduleMeetingParams{
		GuildID:        guildID,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  textChannelID,
		CreatorID:      creatorID,
		ParticipantIDs: participants,
		ScheduledStart: when.UTC(),
	})
	if err != nil {
		log.Printf("Error scheduling meeting: %v", err)
		b.respondWithError(s, i, userFacingError(err))
		return
	}

	b.respond(s, i, fmt.Sprintf("📅 Meeting **#%d** scheduled for %s in <#%d>.\nExpected: %s",
		meeting.ID,
		FormatDiscordTimestamp(meeting.ScheduledStart, "f"),
		meeting.VoiceChannelID,
		MentionList(meeting.ParticipantIDs)))
}

func (b *Bot) handleCancelMeeting(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	options := commandOptions(i)

	meetingID := options["id"].IntValue()
	if err := b.meetingService.CancelMeeting(ctx, meetingID); err != nil {
		log.Printf("Error cancelling meeting %d: %v", meetingID, err)
		b.respondWithError(s, i, userFacingError(err))
		return
	}

	b.respond(s, i, fmt.Sprintf("🗑️ Meeting **#%d** cancelled.", meetingID))
}

func (b *Bot) handleMeetings(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	guildID, err := strconv.ParseInt(i.GuildID, 10, 64)
	if err != nil {
		log.Printf("Error parsing guild ID %s: %v", i.GuildID, err)
		b.respondWithError(s, i, "Unable to process request. Please try again.")
		return
	}

	meetings, err := b.meetingService.ListUpcoming(ctx, guildID)
	if err != nil {
		log.Printf("Error listing meetings for guild %d: %v", guildID, err)
		b.respondWithError(s, i, userFacingError(err))
		return
	}

	if len(meetings) == 0 {
		b.respond(s, i, "No upcoming meetings.")
		return
	}

	var sb strings.Builder
	sb.WriteString("**Upcoming meetings**\n")
	for _, m := range meetings {
		fmt.Fprintf(&sb, "`#%d` %s in <#%d> — %d expected\n",
			m.ID,
			FormatDiscordTimestamp(m.ScheduledStart, "f"),
			m.VoiceChannelID,
			len(m.ParticipantIDs))
	}
	b.respond(s, i, sb.String())
}
