// Package memory is an in-process exporter used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"expensetracker/internal/core"
	ports "expensetracker/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []ports.ExportRow
	err  error
}

var _ ports.ExpenseExporter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Export records the row and returns a synthetic row reference.
func (s *Store) Export(_ context.Context, row ports.ExportRow) (string, error) {
	if row.Amount.Cents <= 0 {
		return "", core.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// FailWith makes every following Export return err. Nil restores normal
// behaviour.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Rows returns a copy of the exported rows in order.
func (s *Store) Rows() []ports.ExportRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.ExportRow(nil), s.rows...)
}
