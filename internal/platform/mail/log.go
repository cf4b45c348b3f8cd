package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

// LogSender writes messages to the logger instead of delivering them. Used for local development.
type LogSender struct {
	logger *zap.Logger
}

var _ services.MailSender = (*LogSender)(nil)

// NewLogSender constructs a log-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the envelope and the plain text body.
func (s *LogSender) Send(_ context.Context, msg services.MailMessage) error {
	s.logger.Info("mail delivered to log",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("htmlBytes", len(msg.HTML)),
		zap.String("text", msg.Text),
	)
	return nil
}
