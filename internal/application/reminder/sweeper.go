// Package reminder runs the scheduled sweep that reminds guests who have not
// answered an invitation to an event starting in about an hour.
package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/go-mentoring-notifier/internal/pkg/invocation"
	"github.com/go-mentoring-notifier/internal/pkg/metrics"
)

type notifier interface {
	NotifyPendingInvitations(ctx context.Context, w domain.ReminderWindow) error
}

type Sweeper struct {
	notifier notifier
	guard    *invocation.Guard
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewSweeper(n notifier, guard *invocation.Guard, m *metrics.Metrics, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{notifier: n, guard: guard, metrics: m, logger: logger, now: time.Now}
}

// Run performs one sweep over a window computed from the current instant.
// A sweep has no stable invocation identity, so the caches are always cleared.
func (s *Sweeper) Run(ctx context.Context) (domain.ReminderWindow, error) {
	s.guard.ClearIfNewInvocation("")
	w := WindowAt(s.now())
	if err := s.notifier.NotifyPendingInvitations(ctx, w); err != nil {
		s.metrics.ReminderSweeps.WithLabelValues(metrics.OutcomeFailed).Inc()
		s.logger.Error("reminder sweep failed", "from", w.From, "to", w.To, "err", err)
		return w, err
	}
	s.metrics.ReminderSweeps.WithLabelValues(metrics.OutcomeOK).Inc()
	return w, nil
}
