// Package dispatch turns domain events into channel messages. Each bus handler
// resolves its audience, filters it through the preference resolver and hands
// the result to the channel senders, isolating failures per recipient.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-mentoring-notifier/internal/application/channel"
	"github.com/go-mentoring-notifier/internal/domain"
	"github.com/go-mentoring-notifier/internal/eventbus"
	"github.com/go-mentoring-notifier/internal/pkg/invocation"
	"github.com/go-mentoring-notifier/internal/pkg/metrics"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

type directory interface {
	User(ctx context.Context, userID string) (*domain.User, error)
	Team(ctx context.Context, teamID string) (*domain.Team, error)
	Event(ctx context.Context, eventID string) (*domain.Event, error)
	ActiveUsers(ctx context.Context) ([]domain.User, error)
	TeamMembers(ctx context.Context, teamIDs []string) ([]string, error)
	PendingGuests(ctx context.Context, eventID string) ([]string, error)
	EventsStartingBetween(ctx context.Context, w domain.ReminderWindow) ([]domain.Event, error)
}

type preferenceResolver interface {
	IsEnabled(ctx context.Context, userID string, kind domain.NotificationKind, ch domain.Channel) (bool, error)
}

type deviceRegistry interface {
	TokensFor(ctx context.Context, userIDs []string) (map[string][]string, error)
	HandleTokensInvalidated(ctx context.Context, evt domain.DomainEvent) error
}

type pushSender interface {
	SendBatch(ctx context.Context, m domain.PushMessage, deviceIDs []string) (channel.PushReport, error)
}

type emailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type smsSender interface {
	Send(ctx context.Context, to, body string) error
}

type subscriber interface {
	Subscribe(kind domain.EventKind, name string, handler eventbus.Handler, opts ...eventbus.Option)
}

type Deps struct {
	Directory   directory
	Preferences preferenceResolver
	Devices     deviceRegistry
	Push        pushSender
	Email       emailSender
	SMS         smsSender
	Guard       *invocation.Guard
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	AppName     string
	Concurrency int
}

type Dispatcher struct {
	Deps
}

func New(d Deps) *Dispatcher {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Concurrency < 1 {
		d.Concurrency = 16
	}
	if d.Guard == nil {
		d.Guard = invocation.NewGuard()
	}
	return &Dispatcher{Deps: d}
}

// Subscribe binds the dispatcher's handlers to bus.
func (d *Dispatcher) Subscribe(bus subscriber) {
	notify := eventbus.WithMaxRetries(eventbus.DefaultMaxRetries)
	bus.Subscribe(domain.KindEventCreatedAllTeams, "notify-event-created", d.Handle, notify)
	bus.Subscribe(domain.KindEventCancelled, "notify-event-cancelled", d.Handle, notify)
	bus.Subscribe(domain.KindEventDateTimeChanged, "notify-event-datetime-changed", d.Handle, notify)
	bus.Subscribe(domain.KindEventLocationChanged, "notify-event-location-changed", d.Handle, notify)
	bus.Subscribe(domain.KindEventGuestListChanged, "notify-event-guest-list-changed", d.Handle, notify)
	bus.Subscribe(domain.KindTeamMemberAdded, "notify-team-member-added", d.Handle, notify)
	bus.Subscribe(domain.KindDeviceTokensInvalidated, "cleanup-invalid-device-tokens", d.handleTokensInvalidated,
		eventbus.WithMaxRetries(eventbus.TokenCleanupMaxRetries))
}

// Handle is the bus handler for every notification-producing kind. A nil return
// acknowledges the delivery; an error asks the bus to redeliver it.
func (d *Dispatcher) Handle(ctx context.Context, evt domain.DomainEvent) error {
	d.Guard.ClearIfNewInvocation(invocation.FromContext(ctx))
	log := d.Logger.With("kind", evt.Kind, "event_id", evt.ID, "attempt", evt.DeliveryAttempt)

	switch p := evt.Payload.(type) {
	case domain.EventCreatedAllTeams:
		return d.eventChanged(ctx, log, domain.NotifyEventCreated, p.EventID, p.IsOwnerIncluded, true)
	case domain.EventCancelled:
		return d.eventChanged(ctx, log, domain.NotifyEventCancelled, p.EventID, p.IsOwnerIncluded, false)
	case domain.EventDateTimeChanged:
		return d.eventChanged(ctx, log, domain.NotifyEventDateTimeChanged, p.EventID, p.IsOwnerIncluded, false)
	case domain.EventLocationChanged:
		return d.eventChanged(ctx, log, domain.NotifyEventLocationChanged, p.EventID, p.IsOwnerIncluded, false)
	case domain.EventGuestListChanged:
		return d.guestListChanged(ctx, log, p)
	case domain.TeamMemberAdded:
		return d.teamMemberAdded(ctx, log, p)
	default:
		log.Error("unroutable event payload", "payload", fmt.Sprintf("%T", evt.Payload))
		return fmt.Errorf("payload %T: %w", evt.Payload, domain.ErrUnroutableEvent)
	}
}

func (d *Dispatcher) handleTokensInvalidated(ctx context.Context, evt domain.DomainEvent) error {
	d.Guard.ClearIfNewInvocation(invocation.FromContext(ctx))
	return d.Devices.HandleTokensInvalidated(ctx, evt)
}

// loadEvent returns (nil, nil) for an event that no longer exists.
func (d *Dispatcher) loadEvent(ctx context.Context, log *slog.Logger, eventID string) (*domain.Event, error) {
	e, err := d.Directory.Event(ctx, eventID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Warn("event not found, nothing to notify", "target_event_id", eventID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}
	return e, nil
}

func (d *Dispatcher) eventChanged(ctx context.Context, log *slog.Logger, kind domain.NotificationKind, eventID string, ownerIncluded, allTeams bool) error {
	e, err := d.loadEvent(ctx, log, eventID)
	if e == nil {
		return err
	}
	audience, err := d.eventAudience(ctx, e, allTeams || e.AllTeams)
	if err != nil {
		return fmt.Errorf("resolve audience of %s: %w", eventID, err)
	}
	audience = withOwner(audience, e.OwnerID, ownerIncluded)

	t := &tally{}
	d.deliver(ctx, log, t, eventContent(kind, e), audience, domain.Channels)
	return t.result()
}

func (d *Dispatcher) eventAudience(ctx context.Context, e *domain.Event, allTeams bool) ([]string, error) {
	if !allTeams {
		return d.Directory.TeamMembers(ctx, e.TeamIDs)
	}
	users, err := d.Directory.ActiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.UserID)
	}
	return ids, nil
}

// withOwner drops the owner from ids, then appends them back when included.
func withOwner(ids []string, ownerID string, included bool) []string {
	out := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		if id != ownerID {
			out = append(out, id)
		}
	}
	if included && ownerID != "" {
		out = append(out, ownerID)
	}
	return out
}

// guestListChanged invites the users only in AddUserIDs, uninvites the users
// only in RemoveUserIDs and optionally tells the owner what changed.
func (d *Dispatcher) guestListChanged(ctx context.Context, log *slog.Logger, p domain.EventGuestListChanged) error {
	e, err := d.loadEvent(ctx, log, p.EventID)
	if e == nil {
		return err
	}
	added, removed := symmetricDifference(p.AddUserIDs, p.RemoveUserIDs)

	t := &tally{}
	d.deliver(ctx, log, t, eventContent(domain.NotifyEventInvitation, e), added, domain.Channels)
	d.deliver(ctx, log, t, eventContent(domain.NotifyEventUninvited, e), removed, domain.Channels)
	if p.IsOwnerIncluded && len(added)+len(removed) > 0 {
		d.deliver(ctx, log, t, guestListContent(e, len(added), len(removed)), []string{e.OwnerID}, domain.Channels)
	}
	return t.result()
}

func symmetricDifference(add, remove []string) (onlyAdded, onlyRemoved []string) {
	inAdd := make(map[string]bool, len(add))
	for _, id := range add {
		inAdd[id] = true
	}
	inRemove := make(map[string]bool, len(remove))
	for _, id := range remove {
		inRemove[id] = true
	}
	for _, id := range dedupe(add) {
		if !inRemove[id] {
			onlyAdded = append(onlyAdded, id)
		}
	}
	for _, id := range dedupe(remove) {
		if !inAdd[id] {
			onlyRemoved = append(onlyRemoved, id)
		}
	}
	return onlyAdded, onlyRemoved
}

// teamMemberAdded welcomes the new member once per team.
func (d *Dispatcher) teamMemberAdded(ctx context.Context, log *slog.Logger, p domain.TeamMemberAdded) error {
	t := &tally{}
	for _, teamID := range dedupe(p.TeamIDs) {
		team, err := d.Directory.Team(ctx, teamID)
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("team not found, skipping", "team_id", teamID)
			continue
		}
		if err != nil {
			t.fail(fmt.Errorf("load team %s: %w", teamID, err))
			log.Warn("team lookup failed", "team_id", teamID, "err", err)
			continue
		}
		d.deliver(ctx, log, t, teamMemberContent(team, p.NewMemberUserID), []string{p.NewMemberUserID}, domain.Channels)
	}
	return t.result()
}

// NotifyPendingInvitations emails every pending guest of the non-cancelled
// events starting inside w.
func (d *Dispatcher) NotifyPendingInvitations(ctx context.Context, w domain.ReminderWindow) error {
	log := d.Logger.With("window_from", w.From, "window_to", w.To)
	events, err := d.Directory.EventsStartingBetween(ctx, w)
	if err != nil {
		return fmt.Errorf("list events starting in window: %w", err)
	}

	t := &tally{}
	for i := range events {
		e := &events[i]
		if e.Cancelled {
			continue
		}
		guests, err := d.Directory.PendingGuests(ctx, e.EventID)
		if err != nil {
			t.fail(fmt.Errorf("pending guests of %s: %w", e.EventID, err))
			log.Warn("pending guest lookup failed", "target_event_id", e.EventID, "err", err)
			continue
		}
		d.deliver(ctx, log, t, eventContent(domain.NotifyEventPendingInvitation, e), guests, []domain.Channel{domain.ChannelEmail})
	}
	log.Info("pending invitation reminders sent", "events", len(events), "attempted", t.attempted, "failed", t.failed)
	return t.result()
}

// deliver builds the enabled channel messages of c for userIDs and sends them.
func (d *Dispatcher) deliver(ctx context.Context, log *slog.Logger, t *tally, c content, userIDs []string, channels []domain.Channel) {
	userIDs = dedupe(userIDs)
	if len(userIDs) == 0 {
		return
	}
	msgs, recipients := d.build(ctx, log, t, c, userIDs, channels)
	d.send(ctx, log, t, msgs, recipients)
}

// build resolves each recipient and keeps one message per enabled channel.
func (d *Dispatcher) build(ctx context.Context, log *slog.Logger, t *tally, c content, userIDs []string, channels []domain.Channel) ([]domain.ChannelMessage, map[string]*domain.User) {
	var (
		mu         sync.Mutex
		msgs       []domain.ChannelMessage
		recipients = make(map[string]*domain.User, len(userIDs))
		g          errgroup.Group
	)
	g.SetLimit(d.Concurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			u, err := d.Directory.User(ctx, userID)
			if errors.Is(err, domain.ErrNotFound) {
				log.Warn("recipient not found, skipping", "user_id", userID)
				return nil
			}
			if err != nil {
				t.fail(fmt.Errorf("load user %s: %w", userID, err))
				log.Warn("recipient lookup failed", "user_id", userID, "err", err)
				return nil
			}
			if !u.Reachable() {
				return nil
			}
			for _, ch := range channels {
				on, err := d.Preferences.IsEnabled(ctx, userID, c.kind, ch)
				if errors.Is(err, domain.ErrUnknownNotificationKind) {
					log.Error("notification kind has no preference flag", "notification", c.kind, "channel", ch, "err", err)
					continue
				}
				if err != nil {
					t.fail(err)
					log.Warn("preference lookup failed", "user_id", userID, "channel", ch, "err", err)
					continue
				}
				if !on {
					d.Metrics.ChannelSends.WithLabelValues(string(ch), metrics.OutcomeSkipped).Inc()
					continue
				}
				if _, ok := address(ch, u); !ok {
					log.Debug("recipient has no address for channel", "user_id", userID, "channel", ch)
					d.Metrics.ChannelSends.WithLabelValues(string(ch), metrics.OutcomeSkipped).Inc()
					continue
				}
				mu.Lock()
				msgs = append(msgs, c.message(d.AppName, ch, u))
				recipients[userID] = u
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return msgs, recipients
}

// send issues one push batch per distinct push payload and one call per email
// or SMS message.
func (d *Dispatcher) send(ctx context.Context, log *slog.Logger, t *tally, msgs []domain.ChannelMessage, recipients map[string]*domain.User) {
	var (
		pushGroups = make(map[string][]domain.ChannelMessage)
		pushOrder  []string
		direct     []domain.ChannelMessage
	)
	for _, m := range msgs {
		if m.Channel != domain.ChannelPush {
			direct = append(direct, m)
			continue
		}
		key := pushKey(m)
		if _, ok := pushGroups[key]; !ok {
			pushOrder = append(pushOrder, key)
		}
		pushGroups[key] = append(pushGroups[key], m)
	}

	var g errgroup.Group
	g.SetLimit(d.Concurrency)
	for _, key := range pushOrder {
		group := pushGroups[key]
		g.Go(func() error {
			d.sendPush(ctx, log, t, group)
			return nil
		})
	}
	for _, m := range direct {
		to, _ := address(m.Channel, recipients[m.UserID])
		g.Go(func() error {
			var err error
			switch m.Channel {
			case domain.ChannelEmail:
				err = d.Email.Send(ctx, to, m.Title, m.Body)
			case domain.ChannelSMS:
				err = d.SMS.Send(ctx, to, m.Body)
			}
			t.record(err)
			if err != nil {
				log.Warn("channel send failed", "channel", m.Channel, "user_id", m.UserID, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// address returns where a direct channel reaches u. Push is addressed by
// device tokens, which are resolved per batch.
func address(ch domain.Channel, u *domain.User) (string, bool) {
	switch ch {
	case domain.ChannelEmail:
		return u.Email, u.Email != ""
	case domain.ChannelSMS:
		if u.Phone == nil || *u.Phone == "" {
			return "", false
		}
		return *u.Phone, true
	}
	return "", true
}

func (d *Dispatcher) sendPush(ctx context.Context, log *slog.Logger, t *tally, group []domain.ChannelMessage) {
	userIDs := make([]string, 0, len(group))
	for _, m := range group {
		userIDs = append(userIDs, m.UserID)
	}
	byUser, err := d.Devices.TokensFor(ctx, userIDs)
	if err != nil {
		log.Warn("device lookup failed for some recipients", "err", err)
		t.fail(err)
		if len(byUser) == 0 {
			return
		}
	}
	var tokens []string
	for _, userID := range userIDs {
		tokens = append(tokens, byUser[userID]...)
	}
	if len(tokens) == 0 {
		return
	}
	first := group[0]
	report, err := d.Push.SendBatch(ctx, domain.PushMessage{
		Title: first.Title,
		Body:  first.Body,
		Data:  first.Metadata,
	}, tokens)
	t.record(err)
	if err != nil {
		log.Warn("push batch failed", "tokens", len(tokens), "err", err)
		return
	}
	log.Debug("push batch sent", "sent", report.Sent, "failed", report.Failed, "invalid", len(report.Invalid))
}

// tally counts send attempts across one invocation. The invocation fails only
// when something was attempted and every attempt failed. A send rejected as a
// bad request is permanent for that recipient and counts as neither.
type tally struct {
	mu        sync.Mutex
	attempted int
	failed    int
	errs      *multierror.Error
}

func (t *tally) record(err error) {
	if errors.Is(err, domain.ErrBadRequest) {
		return
	}
	if err != nil {
		t.fail(err)
		return
	}
	t.mu.Lock()
	t.attempted++
	t.mu.Unlock()
}

func (t *tally) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempted++
	t.failed++
	t.errs = multierror.Append(t.errs, err)
}

func (t *tally) result() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.attempted == 0 || t.failed < t.attempted {
		return nil
	}
	return t.errs.ErrorOrNil()
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
