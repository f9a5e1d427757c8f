package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"scrimbot/events"
	"scrimbot/models"

	log "github.com/sirupsen/logrus"
)

// subscribeEvents wires bot announcements to the event bus. Settlement and
// voiding are handled by the settlement service's own subscriptions; the bot
// only narrates outcomes.
func (b *Bot) subscribeEvents() {
	b.eventBus.Subscribe(events.EventTypeMatchStarted, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.MatchStartedEvent); ok {
			b.announceMatchStarted(e)
		}
	})

	b.eventBus.Subscribe(events.EventTypeBetsSettled, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.BetsSettledEvent); ok {
			b.announceSettlement(e.Result)
		}
	})
}

// announceMatchStarted pings each channel with open bets once when the match
// goes live
func (b *Bot) announceMatchStarted(e events.MatchStartedEvent) {
	for channelID, bets := range betsByChannel(e.Bets) {
		var sb strings.Builder
		fmt.Fprintf(&sb, "⏱️ **%s vs %s** is live! Bets are locked:\n", e.Match.Team1, e.Match.Team2)
		for _, bet := range bets {
			fmt.Fprintf(&sb, "%s — **%s points** on **%s**\n",
				Mention(bet.UserID), FormatAmount(bet.Stake), bet.PredictedWinner)
		}
		b.sendToChannel(channelID, sb.String())
	}
}

// announceSettlement posts the outcome of a settlement batch to every channel
// that placed bets on the match
func (b *Bot) announceSettlement(result models.SettlementResult) {
	all := make([]*models.Bet, 0, result.Total())
	all = append(all, result.Won...)
	all = append(all, result.Lost...)
	all = append(all, result.Voided...)

	for channelID, bets := range betsByChannel(all) {
		var sb strings.Builder
		if result.Outcome == models.SettlementOutcomeVoided {
			fmt.Fprintf(&sb, "↩️ Match `%s` was cancelled. Stakes refunded:\n", result.MatchID)
		} else {
			fmt.Fprintf(&sb, "🏁 **%s** won match `%s`!\n", result.Winner, result.MatchID)
		}
		for _, bet := range bets {
			switch bet.Status {
			case models.BetStatusWon:
				fmt.Fprintf(&sb, "🎉 %s won **%s points**\n", Mention(bet.UserID), FormatAmount(bet.Payout()))
			case models.BetStatusLost:
				fmt.Fprintf(&sb, "😔 %s lost **%s points**\n", Mention(bet.UserID), FormatAmount(bet.Stake))
			case models.BetStatusVoided:
				fmt.Fprintf(&sb, "↩️ %s refunded **%s points**\n", Mention(bet.UserID), FormatAmount(bet.Stake))
			}
		}
		b.sendToChannel(channelID, sb.String())
	}
}

func (b *Bot) sendToChannel(channelID int64, content string) {
	_, err := b.session.ChannelMessageSend(strconv.FormatInt(channelID, 10), content)
	if err != nil {
		log.WithError(err).WithField("channelId", channelID).Error("Failed to send announcement")
	}
}

func betsByChannel(bets []*models.Bet) map[int64][]*models.Bet {
	grouped := make(map[int64][]*models.Bet)
	for _, bet := range bets {
		grouped[bet.ChannelID] = append(grouped[bet.ChannelID], bet)
	}
	return grouped
}
