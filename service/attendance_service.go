package service

import (
	"context"
	"fmt"

	"scrimbot/config"
	"scrimbot/models"

	log "github.com/sirupsen/logrus"
)

type attendanceService struct {
	uowFactory UnitOfWorkFactory
	platform   Platform
	cfg        *config.Config
}

// NewAttendanceService creates a new attendance service
func NewAttendanceService(uowFactory UnitOfWorkFactory, platform Platform, cfg *config.Config) AttendanceService {
	return &attendanceService{
		uowFactory: uowFactory,
		platform:   platform,
		cfg:        cfg,
	}
}

// HandleAttendanceCheck snapshots presence at fire time and issues warnings
// to absent participants. Presence queries are not idempotent to re-run, so
// the meeting status guard at the top makes redelivery a strict no-op.
func (s *attendanceService) HandleAttendanceCheck(ctx context.Context, meetingID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	meeting, err := uow.MeetingRepository().GetByIDForUpdate(ctx, meetingID)
	if err != nil {
		return err
	}
	if meeting == nil || meeting.IsConcluded() {
		return nil
	}

	// A failed or timed-out presence query aborts the whole check; the
	// dispatcher retries it. Participants are never assumed present or absent.
	presenceCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalTimeout)
	defer cancel()
	present, err := s.platform.VoicePresence(presenceCtx, meeting.GuildID, meeting.VoiceChannelID)
	if err != nil {
		return fmt.Errorf("voice presence query for channel %d: %v: %w", meeting.VoiceChannelID, err, ErrExternalUnavailable)
	}

	var calledOut []int64
	for _, userID := range meeting.ParticipantIDs {
		if present[userID] {
			continue
		}
		count, err := uow.WarningRepository().Increment(ctx, meeting.GuildID, userID)
		if err != nil {
			return err
		}
		if count == s.cfg.WarningCalloutAt {
			calledOut = append(calledOut, userID)
		}
	}

	if err := uow.MeetingRepository().SetStatus(ctx, meetingID, models.MeetingStatusAttendanceChecked); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"meeting": meetingID,
		"guild":   meeting.GuildID,
		"absent":  len(meeting.ParticipantIDs) - countPresent(meeting.ParticipantIDs, present),
	}).Info("Attendance checked")

	if len(calledOut) > 0 {
		text := fmt.Sprintf("You have now missed %d scheduled meetings. Show up next time.", s.cfg.WarningCalloutAt)
		sendCtx, cancel := context.WithTimeout(ctx, s.cfg.ExternalTimeout)
		defer cancel()
		if err := s.platform.SendMention(sendCtx, meeting.TextChannelID, calledOut, text); err != nil {
			log.WithField("meeting", meetingID).Errorf("Failed to deliver warning callout: %v", err)
		}
	}

	return nil
}

func countPresent(participants []int64, present map[int64]bool) int {
	n := 0
	for _, id := range participants {
		if present[id] {
			n++
		}
	}
	return n
}
