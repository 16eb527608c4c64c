package sheets

import (
	"context"

	"expensetracker/internal/core"
)

// ExportRow is one expense as written to the spreadsheet.
type ExportRow struct {
	Date          string
	User          string
	Category      string
	Description   string
	Amount        core.Money
	PaymentMethod string
}

func NewExportRow(e core.Expense, username string) ExportRow {
	return ExportRow{
		Date:          e.Date.String(),
		User:          username,
		Category:      string(e.Category),
		Description:   e.Description,
		Amount:        e.Amount,
		PaymentMethod: string(e.PaymentMethod),
	}
}

// Values returns the row cells in column order A..F.
func (r ExportRow) Values() []any {
	return []any{r.Date, r.User, r.Category, r.Description, r.Amount.String(), r.PaymentMethod}
}

// Ports for outbound adapters.
type (
	ExpenseExporter interface {
		// Export appends the row and returns a reference to where it landed.
		Export(ctx context.Context, row ExportRow) (ref string, err error)
	}
)
