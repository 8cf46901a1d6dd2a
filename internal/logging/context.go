package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldGameID is the standardized structured logging key for album/game identifiers.
	FieldGameID = "game_id"
	// FieldSlideID is the standardized structured logging key for slide identifiers.
	FieldSlideID = "slide_id"
	// FieldJigID is the standardized structured logging key for provisioned jig identifiers.
	FieldJigID = "jig_id"
	// FieldMediaID is the standardized structured logging key for media item identifiers.
	FieldMediaID = "media_id"
	// FieldLibrary is the standardized structured logging key for media library tags.
	FieldLibrary = "library"
	// FieldResolution is the standardized structured logging key for per-item outcomes.
	FieldResolution = "resolution"
)

type contextKey string

const (
	gameIDKey  contextKey = "jigpipe.game_id"
	slideIDKey contextKey = "jigpipe.slide_id"
)

// WithGameID stamps the album/game identifier onto the context.
func WithGameID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, gameIDKey, id)
}

// WithSlideID stamps the slide identifier onto the context.
func WithSlideID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, slideIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := ctx.Value(gameIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldGameID, id))
	}
	if id, ok := ctx.Value(slideIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldSlideID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
