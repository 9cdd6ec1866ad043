package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/hashicorp/go-multierror"
)

type Service interface {
	// Register binds deviceID to userID, moving it off any previous owner.
	Register(ctx context.Context, userID, deviceID string) (*domain.Device, error)
	// Unregister is the client-initiated removal of one of the caller's devices.
	Unregister(ctx context.Context, userID, deviceID string) error
	List(ctx context.Context, userID string) ([]domain.Device, error)
	// TokensFor returns the device ids of each user. Users whose lookup failed
	// are missing from the map and reported in the returned error.
	TokensFor(ctx context.Context, userIDs []string) (map[string][]string, error)
	// Remove deletes every registration in deviceIDs and returns the removed rows.
	// Ids with no registration are logged, not treated as errors.
	Remove(ctx context.Context, deviceIDs []string) ([]domain.Device, error)
	HandleTokensInvalidated(ctx context.Context, evt domain.DomainEvent) error
}

type deviceStore interface {
	Put(ctx context.Context, d *domain.Device) error
	Get(ctx context.Context, deviceID string) (*domain.Device, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
	Delete(ctx context.Context, deviceID string) (*domain.Device, error)
}

// topicSubscriber manages the per-user push topic a token belongs to.
type topicSubscriber interface {
	Subscribe(ctx context.Context, userID, token string) error
	Unsubscribe(ctx context.Context, userID, token string) error
}

type service struct {
	repo   deviceStore
	topics topicSubscriber
	logger *slog.Logger
}

func NewService(repo deviceStore, topics topicSubscriber, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{repo: repo, topics: topics, logger: logger}
}

func (s *service) Register(ctx context.Context, userID, deviceID string) (*domain.Device, error) {
	now := time.Now().UTC()
	d := &domain.Device{DeviceID: deviceID, UserID: userID, CreatedAt: now, UpdatedAt: now}

	existing, err := s.repo.Get(ctx, deviceID)
	switch {
	case err == nil && existing.UserID == userID:
		d.CreatedAt = existing.CreatedAt
	case err == nil:
		if _, err := s.removeOne(ctx, deviceID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("release device from previous owner: %w", err)
		}
		s.logger.Info("device moved to new owner", "previous_user_id", existing.UserID, "user_id", userID)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	if err := s.repo.Put(ctx, d); err != nil {
		return nil, err
	}
	if err := s.topics.Subscribe(ctx, userID, deviceID); err != nil {
		s.logger.Warn("push topic subscribe failed", "user_id", userID, "err", err)
	}
	return d, nil
}

func (s *service) Unregister(ctx context.Context, userID, deviceID string) error {
	d, err := s.repo.Get(ctx, deviceID)
	if err != nil {
		return err
	}
	if d.UserID != userID {
		return fmt.Errorf("device belongs to another user: %w", domain.ErrForbidden)
	}
	_, err = s.removeOne(ctx, deviceID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (s *service) List(ctx context.Context, userID string) ([]domain.Device, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) TokensFor(ctx context.Context, userIDs []string) (map[string][]string, error) {
	tokens := make(map[string][]string, len(userIDs))
	var errs *multierror.Error
	for _, userID := range userIDs {
		if _, done := tokens[userID]; done {
			continue
		}
		devices, err := s.repo.ListByUser(ctx, userID)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("devices of %s: %w", userID, err))
			continue
		}
		ids := make([]string, 0, len(devices))
		for _, d := range devices {
			ids = append(ids, d.DeviceID)
		}
		tokens[userID] = ids
	}
	return tokens, errs.ErrorOrNil()
}

func (s *service) Remove(ctx context.Context, deviceIDs []string) ([]domain.Device, error) {
	var (
		removed   []domain.Device
		unmatched []string
		errs      *multierror.Error
		seen      = make(map[string]bool, len(deviceIDs))
	)
	for _, deviceID := range deviceIDs {
		if seen[deviceID] {
			continue
		}
		seen[deviceID] = true

		d, err := s.removeOne(ctx, deviceID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			unmatched = append(unmatched, deviceID)
		case err != nil:
			errs = multierror.Append(errs, err)
		default:
			removed = append(removed, *d)
		}
	}
	if len(unmatched) > 0 {
		s.logger.Info("no registration for devices, already removed", "count", len(unmatched))
	}
	return removed, errs.ErrorOrNil()
}

// removeOne deletes the row, then drops the token from its owner's topic.
// Unsubscribe failures are logged; the token is usually dead already.
func (s *service) removeOne(ctx context.Context, deviceID string) (*domain.Device, error) {
	d, err := s.repo.Delete(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := s.topics.Unsubscribe(ctx, d.UserID, deviceID); err != nil {
		s.logger.Warn("push topic unsubscribe failed", "user_id", d.UserID, "err", err)
	}
	return d, nil
}

func (s *service) HandleTokensInvalidated(ctx context.Context, evt domain.DomainEvent) error {
	p, ok := evt.Payload.(domain.DeviceTokensInvalidated)
	if !ok {
		return fmt.Errorf("payload %T for %s: %w", evt.Payload, evt.Kind, domain.ErrUnroutableEvent)
	}
	removed, err := s.Remove(ctx, p.DeviceIDs)
	if err != nil {
		return err
	}
	s.logger.Info("invalid device tokens removed", "event_id", evt.ID, "requested", len(p.DeviceIDs), "removed", len(removed))
	return nil
}
