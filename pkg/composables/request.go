package composables

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/atviriduomenys/katalogas-sub000/pkg/constants"
)

// WithLogger returns a new context carrying the request scoped logger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger from the context.
// Outside of a request it falls back to the standard logrus logger.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry)
	if !ok || logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return logger
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, constants.RequestID, id)
}

// UseRequestID returns the request id set by the logging middleware, or "".
func UseRequestID(ctx context.Context) string {
	id, _ := ctx.Value(constants.RequestID).(string)
	return id
}
