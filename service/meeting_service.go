package service

import (
	"context"
	"fmt"
	"time"

	"scrimbot/config"
	"scrimbot/models"

	log "github.com/sirupsen/logrus"
)

type meetingService struct {
	uowFactory UnitOfWorkFactory
	platform   Platform
	cfg        *config.Config
}

// NewMeetingService creates a new meeting service
func NewMeetingService(uowFactory UnitOfWorkFactory, platform Platform, cfg *config.Config) MeetingService {
	return &meetingService{
		uowFactory: uowFactory,
		platform:   platform,
		cfg:        cfg,
	}
}

// ScheduleMeeting creates a meeting together with its triggers in one
// transaction, so a crash can never leave a meeting without its
// attendance check.
func (s *meetingService) ScheduleMeeting(ctx context.Context, params ScheduleMeetingParams) (*models.Meeting, error) {
	now := time.Now().UTC()
	if !params.ScheduledStart.After(now) {
		return nil, fmt.Errorf("start %s is not in the future: %w", params.ScheduledStart, ErrInvalidSchedule)
	}
	if len(params.ParticipantIDs) == 0 {
		return nil, fmt.Errorf("no participants: %w", ErrInvalidSchedule)
	}

	meeting := &models.Meeting{
		GuildID:        params.GuildID,
		VoiceChannelID: params.VoiceChannelID,
		TextChannelID:  params.TextChannelID,
		CreatorID:      params.CreatorID,
		ParticipantIDs: dedupe(params.ParticipantIDs),
		ScheduledStart: params.ScheduledStart.UTC(),
		Status:         models.MeetingStatusScheduled,
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.MeetingRepository().Create(ctx, meeting); err != nil {
		return nil, err
	}

	check := &models.Trigger{
		OwnerRef: meeting.OwnerRef(),
		Kind:     models.TriggerKindAttendanceCheck,
		FireAt:   meeting.ScheduledStart,
	}
	if err := uow.TriggerRepository().Create(ctx, check); err != nil {
		return nil, err
	}

	// No retroactive reminder when the lead window has already passed
	reminderAt := meeting.ScheduledStart.Add(-s.cfg.ReminderLead)
	if reminderAt.After(now) {
		reminder := &models.Trigger{
			OwnerRef: meeting.OwnerRef(),
			Kind:     models.TriggerKindReminder,
			FireAt:   reminderAt,
		}
		if err := uow.TriggerRepository().Create(ctx, reminder); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"meeting":      meeting.ID,
		"guild":        meeting.GuildID,
		"start":        meeting.ScheduledStart,
		"participants": len(meeting.ParticipantIDs),
	}).Info("Meeting scheduled")

	return meeting, nil
}

// CancelMeeting cancels a meeting and its pending triggers atomically with
// the status write, so a racing fire either sees the cancel or completes
// normally, never halfway.
func (s *meetingService) CancelMeeting(ctx context.Context, meetingID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	meeting, err := uow.MeetingRepository().GetByIDForUpdate(ctx, meetingID)
	if err != nil {
		return err
	}
	if meeting == nil || !meeting.CanBeCancelled() {
		return fmt.Errorf("meeting %d: %w", meetingID, ErrNotFound)
	}

	if _, err := uow.TriggerRepository().CancelForOwner(ctx, meeting.OwnerRef()); err != nil {
		return err
	}
	if err := uow.MeetingRepository().SetStatus(ctx, meetingID, models.MeetingStatusCancelled); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("meeting", meetingID).Info("Meeting cancelled")
	return nil
}

// ListUpcoming returns a guild's upcoming meetings
func (s *meetingService) ListUpcoming(ctx context.Context, guildID int64) ([]*models.Meeting, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	meetings, err := uow.MeetingRepository().ListUpcoming(ctx, guildID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return meetings, nil
}

// HandleReminder delivers the pre-meeting reminder. The status transition
// commits before the mention goes out: a redelivered trigger is a no-op, and
// a failed delivery is logged without blocking the later attendance check.
func (s *meetingService) HandleReminder(ctx context.Context, meetingID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	meeting, err := uow.MeetingRepository().GetByIDForUpdate(ctx, meetingID)
	if err != nil {
		return err
	}
	if meeting == nil || meeting.Status != models.MeetingStatusScheduled {
		// Already reminded, cancelled or checked
		return nil
	}

	if err := uow.MeetingRepository().SetStatus(ctx, meetingID, models.MeetingStatusReminderSent); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	text := fmt.Sprintf("Reminder: meeting in <#%d> starts in %s. Please be ready!",
		meeting.VoiceChannelID, formatLead(s.cfg.ReminderLead))

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalTimeout)
	defer cancel()
	if err := s.platform.SendMention(sendCtx, meeting.TextChannelID, meeting.ParticipantIDs, text); err != nil {
		log.WithFields(log.Fields{
			"meeting": meetingID,
			"channel": meeting.TextChannelID,
		}).Errorf("Failed to deliver meeting reminder: %v", err)
	}

	return nil
}

func formatLead(lead time.Duration) string {
	if lead%time.Minute == 0 {
		return fmt.Sprintf("%d minutes", int(lead.Minutes()))
	}
	return lead.String()
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
