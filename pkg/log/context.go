package log

import (
	"context"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// WithConn returns a background context whose logger is tagged with connID.
// Connection work outlives the upgrade request, so it starts from a fresh
// context rather than the request's.
func WithConn(base zerolog.Logger, connID string) context.Context {
	return WithLogger(context.Background(), base.With().Str(FieldConnID, connID).Logger())
}

// Ctx returns the logger carried by ctx, or the global logger.
func Ctx(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}
