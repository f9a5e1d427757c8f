package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MeetingStatus represents the lifecycle state of a meeting
type MeetingStatus string

const (
	MeetingStatusScheduled         MeetingStatus = "scheduled"
	MeetingStatusReminderSent      MeetingStatus = "reminder_sent"
	MeetingStatusAttendanceChecked MeetingStatus = "attendance_checked"
	MeetingStatusCancelled         MeetingStatus = "cancelled"
)

// Meeting represents a scheduled voice-channel meeting
type Meeting struct {
	ID             int64         `db:"id"`
	GuildID        int64         `db:"guild_id"`
	VoiceChannelID int64         `db:"voice_channel_id"`
	TextChannelID  int64         `db:"text_channel_id"`
	CreatorID      int64         `db:"creator_id"`
	ParticipantIDs []int64       `db:"participant_ids"`
	ScheduledStart time.Time     `db:"scheduled_start"`
	Status         MeetingStatus `db:"status"`
	CreatedAt      time.Time     `db:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at"`
}

// IsConcluded checks whether the meeting has reached a terminal state
func (m *Meeting) IsConcluded() bool {
	return m.Status == MeetingStatusAttendanceChecked || m.Status == MeetingStatusCancelled
}

// CanBeCancelled checks whether a cancel command may still act on the meeting
func (m *Meeting) CanBeCancelled() bool {
	return m.Status == MeetingStatusScheduled || m.Status == MeetingStatusReminderSent
}

// HasParticipant checks if a user is on the meeting roster
func (m *Meeting) HasParticipant(userID int64) bool {
	for _, id := range m.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// OwnerRef returns the trigger owner reference for this meeting
func (m *Meeting) OwnerRef() string {
	return MeetingOwnerRef(m.ID)
}

// MeetingOwnerRef builds the trigger owner reference for a meeting ID
func MeetingOwnerRef(meetingID int64) string {
	return fmt.Sprintf("meeting:%d", meetingID)
}

// ParseMeetingOwnerRef extracts the meeting ID from a trigger owner reference
func ParseMeetingOwnerRef(ownerRef string) (int64, error) {
	raw, ok := strings.CutPrefix(ownerRef, "meeting:")
	if !ok {
		return 0, fmt.Errorf("not a meeting owner ref: %q", ownerRef)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid meeting owner ref %q: %w", ownerRef, err)
	}
	return id, nil
}
