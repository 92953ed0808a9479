package auth

import (
	"context"

	"go.uber.org/zap"
)

// SMSSender delivers an OTP out-of-band to a phone number.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSender is the default sender used outside production.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, phone, message string) error {
	// TODO: Implement SMS sending (Twilio, MSG91, etc.)
	s.logger.Info("Sending SMS",
		zap.String("phone", phone),
		zap.String("message", message),
	)
	return nil
}
