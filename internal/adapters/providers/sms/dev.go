// Package sms holds the SMSSender implementations. The adapter to use is
// chosen by name from configuration.
package sms

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"trust-service/internal/core/ports"
)

// DevSender logs the message instead of delivering it. Default in dev so
// the whole flow works without a gateway account.
type DevSender struct {
	log zerolog.Logger
	seq atomic.Int64
}

func NewDevSender(baseLogger *zerolog.Logger) *DevSender {
	return &DevSender{log: baseLogger.With().Str("component", "sms_dev").Logger()}
}

var _ ports.SMSSender = (*DevSender)(nil)

func (s *DevSender) Name() string { return "dev" }

func (s *DevSender) Send(ctx context.Context, phone, message string) (ports.SMSSendResult, error) {
	id := fmt.Sprintf("dev-%d", s.seq.Add(1))
	s.log.Info().Str("phone", phone).Str("message", message).Str("message_id", id).Msg("SMS (not sent, dev mode)")
	return ports.SMSSendResult{MessageID: id}, nil
}
