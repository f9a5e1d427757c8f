package service

import (
	"context"
	"fmt"

	"scrimbot/models"

	log "github.com/sirupsen/logrus"
)

type warningService struct {
	uowFactory UnitOfWorkFactory
}

// NewWarningService creates a new warning service
func NewWarningService(uowFactory UnitOfWorkFactory) WarningService {
	return &warningService{uowFactory: uowFactory}
}

func (s *warningService) GetWarnings(ctx context.Context, guildID, userID int64) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	count, err := uow.WarningRepository().Get(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return count, nil
}

func (s *warningService) ListWarnings(ctx context.Context, guildID int64) ([]*models.Warning, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	warnings, err := uow.WarningRepository().List(ctx, guildID)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return warnings, nil
}

// ResetWarnings zeroes one user's count. The admin capability is resolved by
// the platform layer; this only enforces it.
func (s *warningService) ResetWarnings(ctx context.Context, guildID, userID int64, callerIsAdmin bool) error {
	if !callerIsAdmin {
		return fmt.Errorf("warning reset requires admin: %w", ErrPermissionDenied)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.WarningRepository().Reset(ctx, guildID, userID); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{"guild": guildID, "user": userID}).Info("Warnings reset")
	return nil
}

func (s *warningService) ResetAllWarnings(ctx context.Context, guildID int64, callerIsAdmin bool) error {
	if !callerIsAdmin {
		return fmt.Errorf("warning reset requires admin: %w", ErrPermissionDenied)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.WarningRepository().ResetAll(ctx, guildID); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("guild", guildID).Info("All warnings reset")
	return nil
}
