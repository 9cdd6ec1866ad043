package preference

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-mentoring-notifier/internal/domain"
)

type Service interface {
	// IsEnabled is fail-closed: a user without a preference row gets nothing.
	IsEnabled(ctx context.Context, userID string, kind domain.NotificationKind, ch domain.Channel) (bool, error)
	Get(ctx context.Context, userID string) (*domain.NotificationPreference, error)
	Update(ctx context.Context, userID string, flags map[string]bool) (*domain.NotificationPreference, error)
	CreateDefaults(ctx context.Context, userID string) (*domain.NotificationPreference, error)
}

type preferenceStore interface {
	Get(ctx context.Context, userID string) (*domain.NotificationPreference, error)
	Put(ctx context.Context, p *domain.NotificationPreference) error
	UpdateFlags(ctx context.Context, userID string, flags map[string]bool) error
}

type service struct {
	repo     preferenceStore
	defaults map[string]bool
}

func NewService(repo preferenceStore) Service {
	return &service{repo: repo, defaults: domain.DefaultPreferenceFlags()}
}

func (s *service) IsEnabled(ctx context.Context, userID string, kind domain.NotificationKind, ch domain.Channel) (bool, error) {
	flag := domain.PreferenceFlag(kind, ch)
	fallback, known := s.defaults[flag]
	if !known {
		return false, fmt.Errorf("no preference flag %q: %w", flag, domain.ErrUnknownNotificationKind)
	}
	p, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load preferences of %s: %w", userID, err)
	}
	if v, ok := p.Flags[flag]; ok {
		return v, nil
	}
	// Row predates this kind.
	return fallback, nil
}

// Get returns the stored row with any missing flags filled from the defaults.
func (s *service) Get(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.Flags = s.withDefaults(p.Flags)
	return p, nil
}

// Update merges flags into the user's row, creating it from the defaults when
// absent. Unknown flag names are rejected as a whole.
func (s *service) Update(ctx context.Context, userID string, flags map[string]bool) (*domain.NotificationPreference, error) {
	var unknown []string
	for name := range flags {
		if _, ok := s.defaults[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown preference flags %s: %w", strings.Join(unknown, ", "), domain.ErrBadRequest)
	}

	p, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		p = s.newRow(userID)
		for k, v := range flags {
			p.Flags[k] = v
		}
		if err := s.repo.Put(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err != nil {
		return nil, err
	}

	merged := s.withDefaults(p.Flags)
	for k, v := range flags {
		merged[k] = v
	}
	if err := s.repo.UpdateFlags(ctx, userID, merged); err != nil {
		return nil, err
	}
	p.Flags = merged
	p.UpdatedAt = time.Now().UTC()
	return p, nil
}

// CreateDefaults stores the product defaults for a new user. An existing row is
// returned untouched.
func (s *service) CreateDefaults(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	p, err := s.repo.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	p = s.newRow(userID)
	if err := s.repo.Put(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) newRow(userID string) *domain.NotificationPreference {
	now := time.Now().UTC()
	return &domain.NotificationPreference{
		UserID:    userID,
		Flags:     s.withDefaults(nil),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *service) withDefaults(flags map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s.defaults))
	for k, v := range s.defaults {
		out[k] = v
	}
	for k, v := range flags {
		if _, ok := s.defaults[k]; ok {
			out[k] = v
		}
	}
	return out
}
