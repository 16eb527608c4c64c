package worker

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/sheets"
	"expensetracker/internal/storage"
)

// EventWorker reacts to expense events: spending alerts for the affected
// month and the spreadsheet export of new expenses.
type EventWorker struct {
	storage  *storage.SQLiteRepository
	monitor  *services.SpendingMonitor
	exporter sheets.ExpenseExporter
	logger   *applog.Logger
}

// NewEventWorker creates a worker. A nil exporter disables the export.
func NewEventWorker(storage *storage.SQLiteRepository, monitor *services.SpendingMonitor, exporter sheets.ExpenseExporter, logger *applog.Logger) *EventWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &EventWorker{
		storage:  storage,
		monitor:  monitor,
		exporter: exporter,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// Handle processes one event. A returned error makes the consumer requeue
// the message, so handling is at least once: a retried created event may
// export the row again.
func (w *EventWorker) Handle(ctx context.Context, ev *amqp.ExpenseEvent) error {
	log := w.logger.With(
		applog.FieldEventType, string(ev.Type),
		applog.FieldExpenseID, ev.ExpenseID,
		applog.FieldUserID, ev.UserID)

	switch ev.Type {
	case amqp.EventExpenseDeleted:
		log.InfoContext(ctx, "Expense deleted")
		return nil

	case amqp.EventExpenseCreated:
		if err := w.export(ctx, ev, log); err != nil {
			return err
		}
		return w.evaluate(ctx, ev, log)

	case amqp.EventExpenseUpdated:
		return w.evaluate(ctx, ev, log)
	}

	log.WarnContext(ctx, "Ignoring unknown event type")
	return nil
}

func (w *EventWorker) evaluate(ctx context.Context, ev *amqp.ExpenseEvent, log *applog.Logger) error {
	month, err := ev.Month()
	if err != nil {
		log.WarnContext(ctx, "Event without a valid expense date, skipping alert", applog.FieldError, err)
		return nil
	}
	status, err := w.monitor.Evaluate(ctx, ev.UserID, month)
	if errors.Is(err, storage.ErrNotFound) {
		log.WarnContext(ctx, "User no longer exists, skipping alert")
		return nil
	}
	if err != nil {
		return fmt.Errorf("evaluate spending: %w", err)
	}
	log.DebugContext(ctx, "Spending evaluated",
		applog.FieldMonth, month.Format(core.MonthLayout),
		"percent", status.Percent)
	return nil
}

func (w *EventWorker) export(ctx context.Context, ev *amqp.ExpenseEvent, log *applog.Logger) error {
	if w.exporter == nil {
		return nil
	}

	expense, err := w.storage.GetExpense(ctx, ev.UserID, ev.ExpenseID)
	if errors.Is(err, storage.ErrNotFound) {
		// deleted before we got to it
		log.InfoContext(ctx, "Expense gone before export, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	user, err := w.storage.GetUserByID(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("get user from storage: %w", err)
	}

	ref, err := w.exporter.Export(ctx, sheets.NewExportRow(expense, user.Username))
	if err != nil {
		return fmt.Errorf("export to sheets: %w", err)
	}

	log.InfoContext(ctx, "Successfully exported expense",
		applog.FieldSheetsRef, ref,
		applog.FieldAmountCents, expense.Amount.Cents)
	return nil
}
