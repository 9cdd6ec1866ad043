// Package channel delivers composed notifications over push, email and SMS.
// Every transport call is bounded by the configured send timeout.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/go-mentoring-notifier/internal/pkg/metrics"
	"github.com/hashicorp/go-multierror"
)

// MaxBatch is the largest token list handed to one multicast call.
const MaxBatch = 500

type pushGateway interface {
	Multicast(ctx context.Context, m domain.PushMessage, tokens []string) ([]domain.PushResult, error)
}

type publisher interface {
	Publish(ctx context.Context, payload domain.Payload) (domain.DomainEvent, error)
}

// PushReport summarises one SendBatch call.
type PushReport struct {
	Sent    int
	Failed  int
	Invalid []string
}

type PushSender struct {
	gateway pushGateway
	bus     publisher
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewPushSender(gw pushGateway, bus publisher, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *PushSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushSender{gateway: gw, bus: bus, timeout: timeout, metrics: m, logger: logger}
}

// SendBatch multicasts m to deviceIDs. Per-device failures are counted in the
// report, never returned. Tokens the transport rejects for good are published
// once as DeviceTokensInvalidated. The error is set only when a multicast call
// could not be made at all, and then wraps domain.ErrTransport.
func (s *PushSender) SendBatch(ctx context.Context, m domain.PushMessage, deviceIDs []string) (PushReport, error) {
	var report PushReport
	tokens := dedupe(deviceIDs)
	if len(tokens) == 0 {
		return report, nil
	}

	var errs *multierror.Error
	for start := 0; start < len(tokens); start += MaxBatch {
		chunk := tokens[start:min(start+MaxBatch, len(tokens))]
		results, err := s.multicast(ctx, m, chunk)
		if err != nil {
			s.count(metrics.OutcomeFailed, len(chunk))
			errs = multierror.Append(errs, fmt.Errorf("%w: multicast of %d tokens: %w", domain.ErrTransport, len(chunk), err))
			continue
		}
		for _, r := range results {
			switch {
			case r.Err == nil:
				report.Sent++
			case r.Invalid:
				report.Failed++
				report.Invalid = append(report.Invalid, r.DeviceID)
			default:
				report.Failed++
				s.logger.Warn("push delivery failed", "err", r.Err)
			}
		}
	}
	s.count(metrics.OutcomeOK, report.Sent)
	s.count(metrics.OutcomeFailed, report.Failed)

	if len(report.Invalid) > 0 {
		s.metrics.InvalidTokens.Add(float64(len(report.Invalid)))
		payload := domain.DeviceTokensInvalidated{DeviceIDs: report.Invalid}
		if _, err := s.bus.Publish(ctx, payload); err != nil {
			s.logger.Error("publish invalidated tokens failed", "count", len(report.Invalid), "err", err)
		}
	}
	return report, errs.ErrorOrNil()
}

func (s *PushSender) multicast(ctx context.Context, m domain.PushMessage, tokens []string) ([]domain.PushResult, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.gateway.Multicast(ctx, m, tokens)
}

func (s *PushSender) count(outcome string, n int) {
	if n > 0 {
		s.metrics.ChannelSends.WithLabelValues(string(domain.ChannelPush), outcome).Add(float64(n))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
