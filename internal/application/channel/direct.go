package channel

import (
	"context"
	"fmt"
	"time"

	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/go-mentoring-notifier/internal/pkg/metrics"
)

type mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type smsGateway interface {
	SendSMS(ctx context.Context, to, body string) error
}

type EmailSender struct {
	mailer  mailer
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewEmailSender(m mailer, timeout time.Duration, mt *metrics.Metrics) *EmailSender {
	return &EmailSender{mailer: m, timeout: timeout, metrics: mt}
}

func (s *EmailSender) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("empty email address: %w", domain.ErrBadRequest)
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	err := s.mailer.SendEmail(ctx, to, subject, body)
	return record(s.metrics, domain.ChannelEmail, err)
}

type SMSSender struct {
	gateway smsGateway
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewSMSSender(gw smsGateway, timeout time.Duration, mt *metrics.Metrics) *SMSSender {
	return &SMSSender{gateway: gw, timeout: timeout, metrics: mt}
}

func (s *SMSSender) Send(ctx context.Context, to, body string) error {
	if to == "" {
		return fmt.Errorf("empty phone number: %w", domain.ErrBadRequest)
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	err := s.gateway.SendSMS(ctx, to, body)
	return record(s.metrics, domain.ChannelSMS, err)
}

func record(m *metrics.Metrics, ch domain.Channel, err error) error {
	if err != nil {
		m.ChannelSends.WithLabelValues(string(ch), metrics.OutcomeFailed).Inc()
		return fmt.Errorf("%w: %s: %w", domain.ErrTransport, ch, err)
	}
	m.ChannelSends.WithLabelValues(string(ch), metrics.OutcomeOK).Inc()
	return nil
}
