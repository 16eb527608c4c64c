package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"expensetracker/internal/core"
)

var exportHeader = []string{"Date", "Category", "Description", "Amount", "Payment Method"}

// WriteExpensesCSV writes one row per expense after a header row.
func WriteExpensesCSV(w io.Writer, expenses []core.Expense) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, e := range expenses {
		row := []string{
			e.Date.String(),
			string(e.Category),
			e.Description,
			e.Amount.String(),
			string(e.PaymentMethod),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write expense %d: %w", e.ID, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// ExportFilename is the download name for an export made at now.
func ExportFilename(now time.Time) string {
	return "expenses_" + now.Format(core.DateLayout) + ".csv"
}
