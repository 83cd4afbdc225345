package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-io-live/dm-service/internal/domain"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/log"
)

// Sink adapts a MessagePublisher to the router's post-delivery hook.
// Publish failures are logged and never reach the sender.
type Sink struct {
	publisher MessagePublisher
	logger    zerolog.Logger
}

func NewSink(publisher MessagePublisher, logger zerolog.Logger) *Sink {
	return &Sink{publisher: publisher, logger: logger}
}

func (s *Sink) MessagePersisted(ctx context.Context, m *domain.Message) {
	if err := s.publisher.PublishMessage(ctx, m); err != nil {
		s.logger.Error().
			Err(err).
			Uint64("message_id", m.ID).
			Str(log.FieldUsername, m.Sender).
			Str(log.FieldRecipient, m.Recipient).
			Msg("failed to publish message event")
	}
}
