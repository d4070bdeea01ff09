package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	return NewWithWriter(os.Stdout, getLogLevel(os.Getenv("LOG_LEVEL")))
}

// NewWithWriter creates a logger that writes to w at the given level
func NewWithWriter(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(w, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewWithWriter(io.Discard, slog.LevelError)
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithComponent tags every record with the emitting component
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("component", component)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", c.GetString("request_id")),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Seat lock logging methods

// LogSeatLocked logs a successful hold
func (l *Logger) LogSeatLocked(ctx context.Context, productID int64, seatID string, userID int64, expiresAt time.Time) {
	l.Logger.InfoContext(ctx,
		"Seat Locked",
		slog.Int64("product_id", productID),
		slog.String("seat_id", seatID),
		slog.Int64("user_id", userID),
		slog.Time("expires_at", expiresAt),
	)
}

// LogLockRejected logs an expected refusal (already locked, reserved, not found)
func (l *Logger) LogLockRejected(ctx context.Context, productID int64, seatID string, userID int64, reason string) {
	l.Logger.DebugContext(ctx,
		"Seat Lock Rejected",
		slog.Int64("product_id", productID),
		slog.String("seat_id", seatID),
		slog.Int64("user_id", userID),
		slog.String("reason", reason),
	)
}

// LogLockCompensated logs removal of a marker after a failed acquisition
func (l *Logger) LogLockCompensated(ctx context.Context, productID int64, seatID string, cause error, cleanupErr error) {
	if cleanupErr != nil {
		l.Logger.ErrorContext(ctx,
			"Seat Lock Compensation Failed",
			slog.Int64("product_id", productID),
			slog.String("seat_id", seatID),
			slog.String("cause", cause.Error()),
			slog.String("error", cleanupErr.Error()),
		)
		return
	}
	l.Logger.WarnContext(ctx,
		"Seat Lock Compensated",
		slog.Int64("product_id", productID),
		slog.String("seat_id", seatID),
		slog.String("cause", cause.Error()),
	)
}

// LogExpiredHoldReclaimed logs a LOCKED seat taken over after its marker expired
func (l *Logger) LogExpiredHoldReclaimed(ctx context.Context, productID int64, seatID string, userID int64) {
	l.Logger.WarnContext(ctx,
		"Expired Seat Hold Reclaimed",
		slog.Int64("product_id", productID),
		slog.String("seat_id", seatID),
		slog.Int64("user_id", userID),
	)
}

// LogReservationConfirmed logs a LOCKED to RESERVED transition
func (l *Logger) LogReservationConfirmed(ctx context.Context, productID int64, seatID string, orderID int64) {
	l.Logger.InfoContext(ctx,
		"Seat Reservation Confirmed",
		slog.Int64("product_id", productID),
		slog.String("seat_id", seatID),
		slog.Int64("order_id", orderID),
	)
}

// LogLockReleased logs a LOCKED to AVAILABLE transition
func (l *Logger) LogLockReleased(ctx context.Context, productID int64, seatID string, reason string) {
	l.Logger.InfoContext(ctx,
		"Seat Lock Released",
		slog.Int64("product_id", productID),
		slog.String("seat_id", seatID),
		slog.String("reason", reason),
	)
}

// LogStaleEvent logs a completion event that no longer applies
func (l *Logger) LogStaleEvent(ctx context.Context, productID int64, seatID string, detail string) {
	l.Logger.WarnContext(ctx,
		"Stale Seat Event Ignored",
		slog.Int64("product_id", productID),
		slog.String("seat_id", seatID),
		slog.String("detail", detail),
	)
}

// LogUnheldConfirmation logs a successful payment for a seat that holds no
// lock. The order was charged without a seat and needs follow-up.
func (l *Logger) LogUnheldConfirmation(ctx context.Context, productID int64, seatID string, orderID int64, status string) {
	l.Logger.WarnContext(ctx,
		"Payment Confirmed For Unheld Seat",
		slog.Int64("product_id", productID),
		slog.String("seat_id", seatID),
		slog.Int64("order_id", orderID),
		slog.String("status", status),
	)
}

// Helper methods for common patterns

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.InfoContext(ctx, msg, args...)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
