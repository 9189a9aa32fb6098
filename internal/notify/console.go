package notify

import (
	"context"
	"log/slog"
)

// ConsoleMailer logs messages instead of delivering them. Used when no
// SendGrid key is configured, typically in development.
type ConsoleMailer struct{}

func (ConsoleMailer) Send(_ context.Context, msg Message) error {
	slog.Info("email (console)",
		slog.String("to", msg.ToEmail),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}
