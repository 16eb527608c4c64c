package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey struct{}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored by NewContext, or the default
// slog logger tagged with component "unknown".
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// Middleware puts logger into every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// StructuredLogger writes the HTTP access lines and the domain events with a
// fixed field layout.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	sl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs at warn for 4xx and error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentHTTP)
	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogExpenseCreated(ctx context.Context, userID, expenseID, amountCents int64, category string) {
	fields := NewFields().
		WithUser(userID).
		WithExpense(expenseID, amountCents, category).
		WithOperation(OpCreate).
		WithComponent(ComponentExpense)
	sl.logger.InfoContext(ctx, "Expense created", fields.ToSlice()...)
}

// LogAuth records a login attempt. Failures log at warn.
func (sl *StructuredLogger) LogAuth(ctx context.Context, op, email string, success bool, clientIP string) {
	fields := NewFields().
		WithOperation(op).
		WithClientIP(clientIP).
		WithComponent(ComponentAuth)
	fields[FieldSuccess] = success
	fields["email"] = email

	if success {
		sl.logger.InfoContext(ctx, "Authentication succeeded", fields.ToSlice()...)
		return
	}
	sl.logger.WarnContext(ctx, "Authentication failed", fields.ToSlice()...)
}

// LogSpendingAlert records a stored salary alert.
func (sl *StructuredLogger) LogSpendingAlert(ctx context.Context, userID, notificationID int64, month string, percent float64, level string) {
	fields := NewFields().
		WithUser(userID).
		WithComponent(ComponentNotification)
	fields[FieldNotificationID] = notificationID
	fields[FieldMonth] = month
	fields["percent"] = percent
	fields["level"] = level
	sl.logger.InfoContext(ctx, "Spending alert created", fields.ToSlice()...)
}
