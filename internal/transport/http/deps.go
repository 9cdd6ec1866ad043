package http

import (
	"context"

	"github.com/go-mentoring-notifier/internal/application/device"
	"github.com/go-mentoring-notifier/internal/application/preference"
	"github.com/go-mentoring-notifier/internal/domain"
	jwtinfra "github.com/go-mentoring-notifier/internal/infrastructure/jwt"
	"github.com/go-mentoring-notifier/internal/pkg/metrics"
	appmiddleware "github.com/go-mentoring-notifier/internal/transport/http/middleware"
)

// EventPublisher is what the router needs from the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, payload domain.Payload) (domain.DomainEvent, error)
}

// ReminderRunner runs one reminder sweep on demand.
type ReminderRunner interface {
	Run(ctx context.Context) (domain.ReminderWindow, error)
}

// Deps holds the services the router exposes. JWTProvider nil disables the
// authenticated routes; Scheduler nil restricts task routes to service JWTs.
type Deps struct {
	Devices     device.Service
	Preferences preference.Service
	Bus         EventPublisher
	Reminders   ReminderRunner
	Metrics     *metrics.Metrics
	JWTProvider *jwtinfra.Provider
	Scheduler   appmiddleware.OIDCVerifier
}
