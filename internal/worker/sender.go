package worker

import (
	"context"

	"github.com/rs/zerolog"

	"webpush-notification/internal/webpush"
)

// LogSender records what would be sent without contacting the push service.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "log_sender").Logger()}
}

func (s *LogSender) Send(_ context.Context, n *webpush.Notification) error {
	origin, err := n.Origin()
	if err != nil {
		return err
	}

	evt := s.logger.Info().
		Str("origin", origin).
		Str("push_service", string(n.PushService())).
		Int("ttl", n.TTL()).
		Int("payload_bytes", len(n.Payload()))
	if n.HasUrgency() {
		evt = evt.Str("urgency", string(n.Urgency()))
	}
	evt.Msg("push notification ready")
	return nil
}
