// Package email delivers notification mail. The log sender writes messages
// to the structured log instead of an SMTP server.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("send email %q: empty recipient", subject)
	}
	s.logger.InfoContext(ctx, "Sending email", "to", to, "subject", subject, "body", body)
	return nil
}
