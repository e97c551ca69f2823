package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogNotifier only logs messages. It is used when no mail provider is configured.
type LogNotifier struct{}

// Send logs msg at info level.
func (LogNotifier) Send(ctx context.Context, msg Message) error {
	log.Info().Str("to", msg.ToEmail).Str("subject", msg.Subject).Msg("Mail delivery disabled, message dropped")
	return nil
}

// New picks SendGrid when an API key is present and LogNotifier otherwise.
func New(apiKey, fromEmail, fromName string) Notifier {
	if apiKey == "" {
		return LogNotifier{}
	}
	return NewSendGrid(apiKey, fromEmail, fromName)
}
