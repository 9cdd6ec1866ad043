// Package directory serves user, team and event lookups through per-invocation
// caches. Every cache is registered with the invocation guard, so callers must
// clear the guard at the start of each entry point before looking anything up.
package directory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/go-mentoring-notifier/internal/pkg/invocation"
	"github.com/patrickmn/go-cache"
)

// Entries also expire on their own in case the guard is never cleared.
const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
	activeKey    = "\x00active"
)

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	ListActive(ctx context.Context) ([]domain.User, error)
}

type teamStore interface {
	Get(ctx context.Context, teamID string) (*domain.Team, error)
}

type eventStore interface {
	Get(ctx context.Context, eventID string) (*domain.Event, error)
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]domain.Event, error)
}

type guestStore interface {
	ListPending(ctx context.Context, eventID string) ([]domain.EventGuest, error)
}

type Directory struct {
	users  userStore
	teams  teamStore
	events eventStore
	guests guestStore
	logger *slog.Logger

	userCache  *cache.Cache
	teamCache  *cache.Cache
	eventCache *cache.Cache
}

type Deps struct {
	Users  userStore
	Teams  teamStore
	Events eventStore
	Guests guestStore
	Guard  *invocation.Guard
	Logger *slog.Logger
}

func New(d Deps) *Directory {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	dir := &Directory{
		users:      d.Users,
		teams:      d.Teams,
		events:     d.Events,
		guests:     d.Guests,
		logger:     d.Logger,
		userCache:  cache.New(cacheTTL, cacheCleanup),
		teamCache:  cache.New(cacheTTL, cacheCleanup),
		eventCache: cache.New(cacheTTL, cacheCleanup),
	}
	if d.Guard != nil {
		d.Guard.Register(dir.userCache, dir.teamCache, dir.eventCache)
	}
	return dir
}

func (d *Directory) User(ctx context.Context, userID string) (*domain.User, error) {
	if v, ok := d.userCache.Get(userID); ok {
		return v.(*domain.User), nil
	}
	u, err := d.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.userCache.SetDefault(userID, u)
	return u, nil
}

func (d *Directory) Team(ctx context.Context, teamID string) (*domain.Team, error) {
	if v, ok := d.teamCache.Get(teamID); ok {
		return v.(*domain.Team), nil
	}
	t, err := d.teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	d.teamCache.SetDefault(teamID, t)
	return t, nil
}

func (d *Directory) Event(ctx context.Context, eventID string) (*domain.Event, error) {
	if v, ok := d.eventCache.Get(eventID); ok {
		return v.(*domain.Event), nil
	}
	e, err := d.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	d.eventCache.SetDefault(eventID, e)
	return e, nil
}

// ActiveUsers returns every signed-up, enabled user. Each user is also primed
// into the user cache.
func (d *Directory) ActiveUsers(ctx context.Context) ([]domain.User, error) {
	if v, ok := d.userCache.Get(activeKey); ok {
		return v.([]domain.User), nil
	}
	users, err := d.users.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		d.userCache.SetDefault(users[i].UserID, &users[i])
	}
	d.userCache.SetDefault(activeKey, users)
	return users, nil
}

// TeamMembers returns the de-duplicated union of the members of teamIDs.
// Teams that no longer exist are logged and skipped.
func (d *Directory) TeamMembers(ctx context.Context, teamIDs []string) ([]string, error) {
	seen := make(map[string]bool)
	var members []string
	for _, teamID := range teamIDs {
		t, err := d.Team(ctx, teamID)
		if errors.Is(err, domain.ErrNotFound) {
			d.logger.Warn("team not found, skipping", "team_id", teamID)
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, id := range t.MemberIDs {
			if !seen[id] {
				seen[id] = true
				members = append(members, id)
			}
		}
	}
	return members, nil
}

// PendingGuests returns the user ids of guests who have not answered yet.
func (d *Directory) PendingGuests(ctx context.Context, eventID string) ([]string, error) {
	guests, err := d.guests.ListPending(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(guests))
	for _, g := range guests {
		ids = append(ids, g.UserID)
	}
	return ids, nil
}

// EventsStartingBetween lists events whose start lies in w. Results are primed
// into the event cache but the query itself is never cached.
func (d *Directory) EventsStartingBetween(ctx context.Context, w domain.ReminderWindow) ([]domain.Event, error) {
	events, err := d.events.ListStartingBetween(ctx, w.From, w.To)
	if err != nil {
		return nil, err
	}
	inWindow := events[:0]
	for i := range events {
		if !w.Contains(events[i].StartsAt) {
			continue
		}
		inWindow = append(inWindow, events[i])
	}
	for i := range inWindow {
		d.eventCache.SetDefault(inWindow[i].EventID, &inWindow[i])
	}
	return inWindow, nil
}
