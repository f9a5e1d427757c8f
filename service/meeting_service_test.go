package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"scrimbot/config"
	"scrimbot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testConfig() *config.Config {
	return &config.Config{
		StartingBalance:     1000,
		DailyGrantThreshold: 100,
		DailyGrantAmount:    20,
		ReminderLead:        5 * time.Minute,
		WarningCalloutAt:    2,
		TriggerRetryBase:    30 * time.Second,
		ExternalTimeout:     time.Second,
	}
}

func TestMeetingService_ScheduleMeeting_Success(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMeetingRepo := new(MockMeetingRepository)
	mockTriggerRepo := new(MockTriggerRepository)
	mockPlatform := new(MockPlatform)

	mockUoW.SetRepositories(mockMeetingRepo, mockTriggerRepo, nil, nil, nil, nil)

	svc := NewMeetingService(mockFactory, mockPlatform, testConfig())

	start := time.Now().UTC().Add(time.Hour)

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMeetingRepo.On("Create", ctx, mock.MatchedBy(func(m *models.Meeting) bool {
		return m.GuildID == 100 &&
			m.Status == models.MeetingStatusScheduled &&
			len(m.ParticipantIDs) == 2
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Meeting).ID = 7
	})

	mockTriggerRepo.On("Create", ctx, mock.MatchedBy(func(tr *models.Trigger) bool {
		return tr.Kind == models.TriggerKindAttendanceCheck &&
			tr.OwnerRef == "meeting:7" &&
			tr.FireAt.Equal(start)
	})).Return(nil)
	mockTriggerRepo.On("Create", ctx, mock.MatchedBy(func(tr *models.Trigger) bool {
		return tr.Kind == models.TriggerKindReminder &&
			tr.OwnerRef == "meeting:7" &&
			tr.FireAt.Equal(start.Add(-5*time.Minute))
	})).Return(nil)

	meeting, err := svc.ScheduleMeeting(ctx, ScheduleMeetingParams{
		GuildID:        100,
		VoiceChannelID: 200,
		TextChannelID:  300,
		CreatorID:      1,
		ParticipantIDs: []int64{1, 2},
		ScheduledStart: start,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(7), meeting.ID)

	mockFactory.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
	mockMeetingRepo.AssertExpectations(t)
	mockTriggerRepo.AssertExpectations(t)
	mockTriggerRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestMeetingService_ScheduleMeeting_PastStart(t *testing.T) {
	ctx := context.Background()
	mockFactory := new(MockUnitOfWorkFactory)
	svc := NewMeetingService(mockFactory, new(MockPlatform), testConfig())

	_, err := svc.ScheduleMeeting(ctx, ScheduleMeetingParams{
		GuildID:        100,
		ParticipantIDs: []int64{1},
		ScheduledStart: time.Now().UTC().Add(-time.Minute),
	})

	assert.ErrorIs(t, err, ErrInvalidSchedule)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestMeetingService_ScheduleMeeting_NoParticipants(t *testing.T) {
	ctx := context.Background()
	mockFactory := new(MockUnitOfWorkFactory)
	svc := NewMeetingService(mockFactory, new(MockPlatform), testConfig())

	_, err := svc.ScheduleMeeting(ctx, ScheduleMeetingParams{
		GuildID:        100,
		ParticipantIDs: nil,
		ScheduledStart: time.Now().UTC().Add(time.Hour),
	})

	assert.ErrorIs(t, err, ErrInvalidSchedule)
	mockFactory.AssertNotCalled(t, "Create")
}

func TestMeetingService_ScheduleMeeting_DedupesParticipants(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMeetingRepo := new(MockMeetingRepository)
	mockTriggerRepo := new(MockTriggerRepository)

	mockUoW.SetRepositories(mockMeetingRepo, mockTriggerRepo, nil, nil, nil, nil)

	svc := NewMeetingService(mockFactory, new(MockPlatform), testConfig())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMeetingRepo.On("Create", ctx, mock.MatchedBy(func(m *models.Meeting) bool {
		return len(m.ParticipantIDs) == 2 &&
			m.ParticipantIDs[0] == 1 && m.ParticipantIDs[1] == 2
	})).Return(nil)
	mockTriggerRepo.On("Create", ctx, mock.Anything).Return(nil)

	_, err := svc.ScheduleMeeting(ctx, ScheduleMeetingParams{
		GuildID:        100,
		ParticipantIDs: []int64{1, 2, 1},
		ScheduledStart: time.Now().UTC().Add(time.Hour),
	})

	assert.NoError(t, err)
	mockMeetingRepo.AssertExpectations(t)
}

func TestMeetingService_ScheduleMeeting_NoReminderInsideLeadWindow(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMeetingRepo := new(MockMeetingRepository)
	mockTriggerRepo := new(MockTriggerRepository)

	mockUoW.SetRepositories(mockMeetingRepo, mockTriggerRepo, nil, nil, nil, nil)

	svc := NewMeetingService(mockFactory, new(MockPlatform), testConfig())

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMeetingRepo.On("Create", ctx, mock.Anything).Return(nil)
	mockTriggerRepo.On("Create", ctx, mock.MatchedBy(func(tr *models.Trigger) bool {
		return tr.Kind == models.TriggerKindAttendanceCheck
	})).Return(nil)

	// Starts in 2 minutes, reminder lead is 5: the reminder slot already passed
	_, err := svc.ScheduleMeeting(ctx, ScheduleMeetingParams{
		GuildID:        100,
		ParticipantIDs: []int64{1},
		ScheduledStart: time.Now().UTC().Add(2 * time.Minute),
	})

	assert.NoError(t, err)
	mockTriggerRepo.AssertNumberOfCalls(t, "Create", 1)
}

func TestMeetingService_CancelMeeting_Success(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMeetingRepo := new(MockMeetingRepository)
	mockTriggerRepo := new(MockTriggerRepository)

	mockUoW.SetRepositories(mockMeetingRepo, mockTriggerRepo, nil, nil, nil, nil)

	svc := NewMeetingService(mockFactory, new(MockPlatform), testConfig())

	meeting := &models.Meeting{
		ID:      7,
		GuildID: 100,
		Status:  models.MeetingStatusScheduled,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMeetingRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(meeting, nil)
	mockTriggerRepo.On("CancelForOwner", ctx, "meeting:7").Return(int64(2), nil)
	mockMeetingRepo.On("SetStatus", ctx, int64(7), models.MeetingStatusCancelled).Return(nil)

	err := svc.CancelMeeting(ctx, 7)

	assert.NoError(t, err)
	mockUoW.AssertExpectations(t)
	mockMeetingRepo.AssertExpectations(t)
	mockTriggerRepo.AssertExpectations(t)
}

func TestMeetingService_CancelMeeting_AlreadyConcluded(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMeetingRepo := new(MockMeetingRepository)
	mockTriggerRepo := new(MockTriggerRepository)

	mockUoW.SetRepositories(mockMeetingRepo, mockTriggerRepo, nil, nil, nil, nil)

	svc := NewMeetingService(mockFactory, new(MockPlatform), testConfig())

	meeting := &models.Meeting{
		ID:     7,
		Status: models.MeetingStatusAttendanceChecked,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMeetingRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(meeting, nil)

	err := svc.CancelMeeting(ctx, 7)

	assert.ErrorIs(t, err, ErrNotFound)
	mockUoW.AssertNotCalled(t, "Commit")
	mockTriggerRepo.AssertNotCalled(t, "CancelForOwner")
}

func TestMeetingService_HandleReminder_Delivers(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMeetingRepo := new(MockMeetingRepository)
	mockPlatform := new(MockPlatform)

	mockUoW.SetRepositories(mockMeetingRepo, nil, nil, nil, nil, nil)

	svc := NewMeetingService(mockFactory, mockPlatform, testConfig())

	meeting := &models.Meeting{
		ID:             7,
		GuildID:        100,
		VoiceChannelID: 200,
		TextChannelID:  300,
		ParticipantIDs: []int64{1, 2},
		Status:         models.MeetingStatusScheduled,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMeetingRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(meeting, nil)
	mockMeetingRepo.On("SetStatus", ctx, int64(7), models.MeetingStatusReminderSent).Return(nil)
	mockPlatform.On("SendMention", mock.Anything, int64(300), []int64{1, 2}, mock.AnythingOfType("string")).Return(nil)

	err := svc.HandleReminder(ctx, 7)

	assert.NoError(t, err)
	mockUoW.AssertExpectations(t)
	mockMeetingRepo.AssertExpectations(t)
	mockPlatform.AssertExpectations(t)
}

func TestMeetingService_HandleReminder_RedeliveryIsNoop(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMeetingRepo := new(MockMeetingRepository)
	mockPlatform := new(MockPlatform)

	mockUoW.SetRepositories(mockMeetingRepo, nil, nil, nil, nil, nil)

	svc := NewMeetingService(mockFactory, mockPlatform, testConfig())

	meeting := &models.Meeting{ID: 7, Status: models.MeetingStatusReminderSent}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMeetingRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(meeting, nil)

	err := svc.HandleReminder(ctx, 7)

	assert.NoError(t, err)
	mockMeetingRepo.AssertNotCalled(t, "SetStatus")
	mockPlatform.AssertNotCalled(t, "SendMention")
}

func TestMeetingService_HandleReminder_DeliveryFailureIsNotRetried(t *testing.T) {
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMeetingRepo := new(MockMeetingRepository)
	mockPlatform := new(MockPlatform)

	mockUoW.SetRepositories(mockMeetingRepo, nil, nil, nil, nil, nil)

	svc := NewMeetingService(mockFactory, mockPlatform, testConfig())

	meeting := &models.Meeting{
		ID:             7,
		TextChannelID:  300,
		ParticipantIDs: []int64{1},
		Status:         models.MeetingStatusScheduled,
	}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockMeetingRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(meeting, nil)
	mockMeetingRepo.On("SetStatus", ctx, int64(7), models.MeetingStatusReminderSent).Return(nil)
	mockPlatform.On("SendMention", mock.Anything, int64(300), []int64{1}, mock.AnythingOfType("string")).
		Return(errors.New("discord down"))

	// The status transition committed, so the trigger must not be retried
	err := svc.HandleReminder(ctx, 7)

	assert.NoError(t, err)
	mockUoW.AssertExpectations(t)
}
