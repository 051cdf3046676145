package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY MIDDLEWARE
// Catches panics in update handlers so one bad update never stops polling.
// ══════════════════════════════════════════════════════════════════════════════

// ErrPanic is returned (wrapped) when a handler panicked.
var ErrPanic = errors.New("handler panicked")

// PanicInfo contains details about a recovered panic.
type PanicInfo struct {
	Value      any
	StackTrace string
	RequestID  string
	UserID     string
	Command    string
}

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	Logger *slog.Logger

	// EnableStackTrace captures debug.Stack for the log record.
	EnableStackTrace bool

	// OnPanic is called after a panic was logged.
	OnPanic func(ctx context.Context, info *PanicInfo)
}

// DefaultRecoveryConfig returns the default configuration.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		Logger:           slog.Default(),
		EnableStackTrace: true,
	}
}

// RecoveryMiddleware recovers from panics in handlers.
type RecoveryMiddleware struct {
	config RecoveryConfig
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(config RecoveryConfig) *RecoveryMiddleware {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RecoveryMiddleware{config: config}
}

// Run executes fn and converts a panic into an error wrapping ErrPanic.
func (m *RecoveryMiddleware) Run(ctx context.Context, userID, command string, fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		info := &PanicInfo{
			Value:     r,
			RequestID: RequestIDFromContext(ctx),
			UserID:    userID,
			Command:   command,
		}
		if m.config.EnableStackTrace {
			info.StackTrace = string(debug.Stack())
		}

		m.config.Logger.Error("panic recovered",
			"panic", fmt.Sprint(r),
			"request_id", info.RequestID,
			"user_id", userID,
			"command", command,
			"stack", info.StackTrace,
		)

		if m.config.OnPanic != nil {
			m.config.OnPanic(ctx, info)
		}
		err = fmt.Errorf("%w: %v", ErrPanic, r)
	}()

	return fn()
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

type contextKey string

const requestIDKey contextKey = "request_id"

// ContextWithRequestID stores the update's request id.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
