package logger

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes single-line JSON events:
//
//	{"timestamp":"...","level":"INFO","service":"booking-service","action":"booking_created",
//	 "message":"...","hostname":"...","request_id":"...","ride_id":"...","details":{...}}
type Logger struct {
	service string
	zl      *zap.Logger
}

// New creates a structured logger for the given service writing to stdout.
func New(service string) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.Lock(os.Stdout),
		zapcore.DebugLevel,
	)
	return NewWithCore(service, core)
}

// NewWithCore builds a Logger on top of an arbitrary zap core (tests use an observer core).
func NewWithCore(service string, core zapcore.Core) *Logger {
	hn, err := os.Hostname()
	if err != nil || strings.TrimSpace(hn) == "" {
		hn = "unknown-hostname"
	}
	if strings.TrimSpace(service) == "" {
		service = "unknown-service"
	}

	zl := zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel)).With(
		zap.String("service", service),
		zap.String("hostname", hn),
	)
	return &Logger{service: service, zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{service: "nop", zl: zap.NewNop()}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.StacktraceKey = "stack"
	cfg.CallerKey = zapcore.OmitKey
	return cfg
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.zl.Sync()
}

// Debug writes a DEBUG line with optional details.
func (l *Logger) Debug(ctx context.Context, action, msg string, details any) {
	l.zl.Debug(strings.TrimSpace(msg), l.fields(ctx, action, details)...)
}

// Info writes an INFO line with optional details.
func (l *Logger) Info(ctx context.Context, action, msg string, details any) {
	l.zl.Info(strings.TrimSpace(msg), l.fields(ctx, action, details)...)
}

// Error writes an ERROR line; zap attaches the stack trace.
func (l *Logger) Error(ctx context.Context, action, msg string, err error, details any) {
	fields := l.fields(ctx, action, details)
	if err != nil {
		fields = append(fields, zap.String("error", strings.TrimSpace(err.Error())))
	} else {
		fields = append(fields, zap.String("error", "unknown error"))
	}
	l.zl.Error(strings.TrimSpace(msg), fields...)
}

func (l *Logger) fields(ctx context.Context, action string, details any) []zap.Field {
	fields := make([]zap.Field, 0, 6)
	fields = append(fields, zap.String("action", safeAction(action)))
	if v := fromCtx(ctx, ctxKeyRequestID); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v := fromCtx(ctx, ctxKeyRideID); v != "" {
		fields = append(fields, zap.String("ride_id", v))
	}
	if v := fromCtx(ctx, ctxKeyBookingID); v != "" {
		fields = append(fields, zap.String("booking_id", v))
	}
	if details != nil {
		fields = append(fields, zap.Any("details", details))
	}
	return fields
}

// ------------ Context helpers -------------

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "carpool_request_id"
	ctxKeyRideID    ctxKey = "carpool_ride_id"
	ctxKeyBookingID ctxKey = "carpool_booking_id"
)

// WithRequestID returns a new context carrying request_id.
func (l *Logger) WithRequestID(ctx context.Context, reqID string) context.Context {
	return withValue(ctx, ctxKeyRequestID, reqID)
}

// WithRideID returns a new context carrying ride_id.
func (l *Logger) WithRideID(ctx context.Context, rideID string) context.Context {
	return withValue(ctx, ctxKeyRideID, rideID)
}

// WithBookingID returns a new context carrying booking_id.
func (l *Logger) WithBookingID(ctx context.Context, bookingID string) context.Context {
	return withValue(ctx, ctxKeyBookingID, bookingID)
}

// RequestID extracts request_id from ctx (if any).
func RequestID(ctx context.Context) string {
	return fromCtx(ctx, ctxKeyRequestID)
}

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if strings.TrimSpace(v) == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func fromCtx(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

func safeAction(a string) string {
	a = strings.TrimSpace(a)
	if a == "" {
		return "unspecified"
	}
	return a
}
