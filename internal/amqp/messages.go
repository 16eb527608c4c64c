package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expensetracker/internal/core"
)

type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseUpdated EventType = "expense.updated"
	EventExpenseDeleted EventType = "expense.deleted"
)

// ExpenseEvent is a lightweight notification about an expense change.
// The worker reloads the expense from the database when it needs details.
type ExpenseEvent struct {
	Type        EventType `json:"type"`
	ExpenseID   int64     `json:"expense_id"`
	UserID      int64     `json:"user_id"`
	ExpenseDate string    `json:"expense_date"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseEvent creates an event for e.
func NewExpenseEvent(t EventType, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		Type:        t,
		ExpenseID:   e.ID,
		UserID:      e.UserID,
		ExpenseDate: e.Date.String(),
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Month returns the first day of the month the expense falls in.
func (m *ExpenseEvent) Month() (time.Time, error) {
	d, err := core.ParseDate(m.ExpenseDate)
	if err != nil {
		return time.Time{}, err
	}
	return d.Time, nil
}

// ExpenseEventFromJSON decodes and validates an event.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case EventExpenseCreated, EventExpenseUpdated, EventExpenseDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.ExpenseID <= 0 || msg.UserID <= 0 {
		return nil, fmt.Errorf("event %s missing expense or user id", msg.Type)
	}
	return &msg, nil
}
