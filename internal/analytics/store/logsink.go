package store

import (
	"context"

	"github.com/serroba/shortlinks/internal/analytics"
	"go.uber.org/zap"
)

// LogSink is an analytics.Sink that writes every event to the log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a logging sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) SaveLinkCreated(_ context.Context, event *analytics.LinkCreatedEvent) error {
	fields := []zap.Field{
		zap.String("alias", event.Alias),
		zap.String("longUrl", event.LongURL),
		zap.Bool("anonymous", event.OwnerID == ""),
		zap.Time("createdAt", event.CreatedAt),
	}

	if event.ExpiresAt != nil {
		fields = append(fields, zap.Time("expiresAt", *event.ExpiresAt))
	}

	s.logger.Info("link created event received", fields...)

	return nil
}

func (s *LogSink) SaveLinkClicked(_ context.Context, event *analytics.LinkClickedEvent) error {
	s.logger.Info("link clicked event received",
		zap.String("alias", event.Alias),
		zap.String("clickId", event.ClickID),
		zap.Time("clickedAt", event.ClickedAt),
		zap.String("country", event.Country),
		zap.String("referrer", event.Referrer),
	)

	return nil
}

// Compile-time check.
var _ analytics.Sink = (*LogSink)(nil)
