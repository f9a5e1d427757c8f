package repository

import (
	"context"
	"fmt"

	"scrimbot/database"
	"scrimbot/events"
	"scrimbot/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the service.UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	meetingRepo      service.MeetingRepository
	triggerRepo      service.TriggerRepository
	warningRepo      service.WarningRepository
	balanceRepo      service.BalanceRepository
	betRepo          service.BetRepository
	settlementRepo   service.SettlementRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories bound to the transaction
	u.meetingRepo = newMeetingRepositoryWithTx(tx)
	u.triggerRepo = newTriggerRepositoryWithTx(tx)
	u.warningRepo = newWarningRepositoryWithTx(tx)
	u.balanceRepo = newBalanceRepositoryWithTx(tx)
	u.betRepo = newBetRepositoryWithTx(tx)
	u.settlementRepo = newSettlementRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

func (u *unitOfWork) MeetingRepository() service.MeetingRepository {
	u.mustBeStarted()
	return u.meetingRepo
}

func (u *unitOfWork) TriggerRepository() service.TriggerRepository {
	u.mustBeStarted()
	return u.triggerRepo
}

func (u *unitOfWork) WarningRepository() service.WarningRepository {
	u.mustBeStarted()
	return u.warningRepo
}

func (u *unitOfWork) BalanceRepository() service.BalanceRepository {
	u.mustBeStarted()
	return u.balanceRepo
}

func (u *unitOfWork) BetRepository() service.BetRepository {
	u.mustBeStarted()
	return u.betRepo
}

func (u *unitOfWork) SettlementRepository() service.SettlementRepository {
	u.mustBeStarted()
	return u.settlementRepo
}

func (u *unitOfWork) EventBus() *events.TransactionalBus {
	return u.transactionalBus
}

func (u *unitOfWork) mustBeStarted() {
	if u.tx == nil {
		panic("unit of work not started - call Begin() first")
	}
}
