package repository

import (
	"context"
	"fmt"

	"scrimbot/database"
	"scrimbot/models"

	"github.com/jackc/pgx/v5"
)

// MeetingRepository implements the service.MeetingRepository interface
type MeetingRepository struct {
	q queryable
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *database.DB) *MeetingRepository {
	return &MeetingRepository{q: db.Pool}
}

func newMeetingRepositoryWithTx(tx queryable) *MeetingRepository {
	return &MeetingRepository{q: tx}
}

const meetingColumns = `id, guild_id, voice_channel_id, text_channel_id, creator_id,
	participant_ids, scheduled_start, status, created_at, updated_at`

// Create inserts a new meeting and sets its ID
func (r *MeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	query := `
		INSERT INTO meetings (guild_id, voice_channel_id, text_channel_id, creator_id, participant_ids, scheduled_start, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		meeting.GuildID,
		meeting.VoiceChannelID,
		meeting.TextChannelID,
		meeting.CreatorID,
		meeting.ParticipantIDs,
		meeting.ScheduledStart,
		meeting.Status,
	).Scan(&meeting.ID, &meeting.CreatedAt, &meeting.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create meeting in guild %d: %w", meeting.GuildID, err)
	}

	return nil
}

// GetByID retrieves a meeting by its ID, nil if absent
func (r *MeetingRepository) GetByID(ctx context.Context, id int64) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a meeting row-locked for the current transaction
func (r *MeetingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1 FOR UPDATE`
	return r.scanOne(ctx, query, id)
}

func (r *MeetingRepository) scanOne(ctx context.Context, query string, id int64) (*models.Meeting, error) {
	var meeting models.Meeting
	err := r.q.QueryRow(ctx, query, id).Scan(
		&meeting.ID,
		&meeting.GuildID,
		&meeting.VoiceChannelID,
		&meeting.TextChannelID,
		&meeting.CreatorID,
		&meeting.ParticipantIDs,
		&meeting.ScheduledStart,
		&meeting.Status,
		&meeting.CreatedAt,
		&meeting.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting %d: %w", id, err)
	}

	return &meeting, nil
}

// SetStatus updates a meeting's status
func (r *MeetingRepository) SetStatus(ctx context.Context, id int64, status models.MeetingStatus) error {
	query := `UPDATE meetings SET status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set meeting %d status to %s: %w", id, status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("meeting %d not found", id)
	}

	return nil
}

// ListUpcoming returns a guild's not-yet-concluded meetings ordered by start
func (r *MeetingRepository) ListUpcoming(ctx context.Context, guildID int64) ([]*models.Meeting, error) {
	query := `
		SELECT ` + meetingColumns + `
		FROM meetings
		WHERE guild_id = $1 AND status IN ($2, $3)
		ORDER BY scheduled_start ASC
	`

	rows, err := r.q.Query(ctx, query, guildID, models.MeetingStatusScheduled, models.MeetingStatusReminderSent)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming meetings for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	var meetings []*models.Meeting
	for rows.Next() {
		var meeting models.Meeting
		err := rows.Scan(
			&meeting.ID,
			&meeting.GuildID,
			&meeting.VoiceChannelID,
			&meeting.TextChannelID,
			&meeting.CreatorID,
			&meeting.ParticipantIDs,
			&meeting.ScheduledStart,
			&meeting.Status,
			&meeting.CreatedAt,
			&meeting.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting row: %w", err)
		}
		meetings = append(meetings, &meeting)
	}

	return meetings, rows.Err()
}
