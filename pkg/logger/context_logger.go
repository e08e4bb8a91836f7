package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	// ContextKeyConnectionID carries the signaling connection id.
	ContextKeyConnectionID contextKey = "connection_id"
	// ContextKeyRoomID carries the room id of the operation in flight.
	ContextKeyRoomID contextKey = "room_id"
)

var contextFieldKeys = []contextKey{ContextKeyConnectionID, ContextKeyRoomID}

// ContextLogger enriches log entries with the connection and room ids
// stored in a context by the signaling pipeline.
type ContextLogger struct {
	base *zap.Logger
}

func NewContextLogger(base *zap.Logger) *ContextLogger {
	return &ContextLogger{base: base}
}

// WithContext returns the base logger extended with any known ids
// present in ctx.
func (cl *ContextLogger) WithContext(ctx context.Context) *zap.Logger {
	var fields []zapcore.Field
	for _, key := range contextFieldKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	if len(fields) == 0 {
		return cl.base
	}
	return cl.base.With(fields...)
}

func (cl *ContextLogger) LogInfo(ctx context.Context, message string, fields ...zapcore.Field) {
	cl.WithContext(ctx).Info(message, fields...)
}

func (cl *ContextLogger) LogWarn(ctx context.Context, message string, fields ...zapcore.Field) {
	cl.WithContext(ctx).Warn(message, fields...)
}

func (cl *ContextLogger) LogError(ctx context.Context, err error, message string, fields ...zapcore.Field) {
	cl.WithContext(ctx).With(zap.Error(err)).Error(message, fields...)
}
