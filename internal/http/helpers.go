package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"expensetracker/internal/core"
	"expensetracker/internal/forms"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
)

var (
	errInvalidID     = errors.New("invalid id")
	errInvalidFilter = errors.New("invalid filter")
)

// validationErrors are the domain errors answered with 422.
var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrInvalidCategory,
	core.ErrInvalidPayment,
	core.ErrCardRequired,
	core.ErrCardNotAllowed,
	core.ErrNegativeBalance,
	core.ErrEmptyCardName,
	core.ErrEmptyCardHolder,
	core.ErrInvalidDateRange,
	core.ErrNegativeSalary,
	core.ErrInvalidEmail,
	core.ErrPasswordTooShort,
	core.ErrInvalidUsername,
	core.ErrInvalidCardNumber,
	core.ErrInvalidExpiry,
	core.ErrCardExpired,
	core.ErrExpiryTooFar,
	core.ErrInvalidCVV,
	services.ErrCardNotOwned,
}

func isValidationError(err error) bool {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return true
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// errorStatus maps a service error to the status and message shown to the
// caller. Unexpected errors never leak their text.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidFilter):
		return http.StatusBadRequest, forms.Message(err)
	case isValidationError(err):
		return http.StatusUnprocessableEntity, forms.Message(err)
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, errInvalidID):
		return http.StatusBadRequest, "Invalid id"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, services.ErrWrongPassword):
		return http.StatusUnauthorized, "Current password is incorrect"
	case errors.Is(err, services.ErrUserExists):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict, "Already exists"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError logs unexpected failures and answers with the mapped
// status.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, op,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
	}
	writeError(w, status, msg)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// formatMoney renders cents for the pages, e.g. "$1,234.50".
func formatMoney(m core.Money) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
