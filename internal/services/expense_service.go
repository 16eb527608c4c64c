package services

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/storage"
)

// ErrCardNotOwned is returned when a card payment references a card the user
// does not have.
var ErrCardNotOwned = errors.New("selected card was not found")

// EventPublisher is implemented by *amqp.Client.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
}

// ExpenseService orchestrates expense operations across SQLite and AMQP.
// The database write is authoritative; publishing and alerting afterwards
// never fail the request.
type ExpenseService struct {
	repo      *storage.SQLiteRepository
	publisher EventPublisher
	monitor   *SpendingMonitor
	caches    *Caches
	logger    *applog.Logger
	events    *applog.StructuredLogger
}

// NewExpenseService wires the service. A nil publisher makes spending alerts
// run inline after every change.
func NewExpenseService(repo *storage.SQLiteRepository, publisher EventPublisher, monitor *SpendingMonitor, caches *Caches, logger *applog.Logger) *ExpenseService {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentExpense)
	return &ExpenseService{
		repo:      repo,
		publisher: publisher,
		monitor:   monitor,
		caches:    caches,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
	}
}

func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := s.check(ctx, e); err != nil {
		return core.Expense{}, err
	}

	// Save to SQLite first
	created, err := s.repo.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.caches.invalidateSummary(created.UserID)
	s.events.LogExpenseCreated(ctx, created.UserID, created.ID, created.Amount.Cents, string(created.Category))

	s.afterChange(ctx, amqp.EventExpenseCreated, created)
	return created, nil
}

// Update replaces every editable field. Concurrent edits are last write wins.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := s.check(ctx, e); err != nil {
		return core.Expense{}, err
	}
	updated, err := s.repo.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.caches.invalidateSummary(updated.UserID)

	s.afterChange(ctx, amqp.EventExpenseUpdated, updated)
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	e, err := s.repo.GetExpense(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteExpense(ctx, userID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.caches.invalidateSummary(userID)

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(amqp.EventExpenseDeleted, e)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish delete event",
				applog.FieldExpenseID, id,
				applog.FieldError, err)
		}
	}
	return nil
}

func (s *ExpenseService) Get(ctx context.Context, userID, id int64) (core.Expense, error) {
	return s.repo.GetExpense(ctx, userID, id)
}

func (s *ExpenseService) List(ctx context.Context, userID int64, f core.ExpenseFilter) ([]core.Expense, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, userID, f)
}

// check validates e and makes sure a card payment uses one of the user's cards.
func (s *ExpenseService) check(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.PaymentMethod != core.PaymentCard {
		return nil
	}
	_, err := s.repo.GetCard(ctx, e.UserID, *e.CardID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrCardNotOwned
	}
	return err
}

// afterChange hands the change to the worker, or evaluates the spending
// alert here when there is no broker or publishing failed.
func (s *ExpenseService) afterChange(ctx context.Context, t amqp.EventType, e core.Expense) {
	if s.publisher != nil {
		err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(t, e))
		if err == nil {
			return
		}
		s.logger.ErrorContext(ctx, "Failed to publish expense event, evaluating inline",
			applog.FieldExpenseID, e.ID,
			applog.FieldEventType, string(t),
			applog.FieldError, err)
	}

	if s.monitor == nil {
		return
	}
	if _, err := s.monitor.Evaluate(ctx, e.UserID, e.Date.Time); err != nil {
		s.logger.ErrorContext(ctx, "Spending evaluation failed",
			applog.FieldUserID, e.UserID,
			applog.FieldError, err)
	}
}
