package dispatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-mentoring-notifier/internal/domain"
)

const startsLayout = "Mon Jan 2, 15:04 MST"

// content is what one notification says, before it is addressed to anyone.
type content struct {
	kind domain.NotificationKind
	body string
	meta map[string]string
}

func eventContent(kind domain.NotificationKind, e *domain.Event) content {
	when := e.StartsAt.UTC().Format(startsLayout)
	var body string
	switch kind {
	case domain.NotifyEventCreated:
		body = fmt.Sprintf("New event %q on %s", e.Title, when)
	case domain.NotifyEventCancelled:
		body = fmt.Sprintf("%q on %s was cancelled", e.Title, when)
	case domain.NotifyEventDateTimeChanged:
		body = fmt.Sprintf("%q was rescheduled to %s", e.Title, when)
	case domain.NotifyEventLocationChanged:
		body = fmt.Sprintf("%q on %s moved to %s", e.Title, when, e.Location)
	case domain.NotifyEventInvitation:
		body = fmt.Sprintf("You were invited to %q on %s", e.Title, when)
	case domain.NotifyEventUninvited:
		body = fmt.Sprintf("You are no longer invited to %q on %s", e.Title, when)
	case domain.NotifyEventPendingInvitation:
		body = fmt.Sprintf("%q starts %s and you have not answered the invitation yet", e.Title, when)
	default:
		body = e.Title
	}
	return content{kind: kind, body: body, meta: eventMeta(kind, e)}
}

func guestListContent(e *domain.Event, added, removed int) content {
	return content{
		kind: domain.NotifyEventGuestListChanged,
		body: fmt.Sprintf("Guest list of %q changed: %d added, %d removed", e.Title, added, removed),
		meta: eventMeta(domain.NotifyEventGuestListChanged, e),
	}
}

func teamMemberContent(t *domain.Team, userID string) content {
	return content{
		kind: domain.NotifyTeamMemberAdded,
		body: fmt.Sprintf("You were added to the team %q", t.Name),
		meta: map[string]string{
			domain.MetaKind:   string(domain.NotifyTeamMemberAdded),
			domain.MetaTeamID: t.TeamID,
			domain.MetaUserID: userID,
		},
	}
}

func eventMeta(kind domain.NotificationKind, e *domain.Event) map[string]string {
	meta := map[string]string{
		domain.MetaKind:    string(kind),
		domain.MetaEventID: e.EventID,
	}
	if !e.AllTeams && len(e.TeamIDs) == 1 {
		meta[domain.MetaTeamID] = e.TeamIDs[0]
	}
	return meta
}

// message addresses c to one user on one channel.
func (c content) message(appName string, ch domain.Channel, u *domain.User) domain.ChannelMessage {
	m := domain.ChannelMessage{
		Channel:  ch,
		Kind:     c.kind,
		UserID:   u.UserID,
		Title:    appName,
		Body:     c.body,
		Metadata: c.meta,
	}
	switch ch {
	case domain.ChannelEmail:
		m.Body = fmt.Sprintf("Hi %s,\n\n%s.\n\n%s\n", u.DisplayName(), c.body, appName)
	case domain.ChannelSMS:
		m.Body = appName + ": " + c.body
	}
	return m
}

// pushKey groups push messages that can share one multicast.
func pushKey(m domain.ChannelMessage) string {
	keys := make([]string, 0, len(m.Metadata))
	for k := range m.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(m.Title)
	b.WriteByte(0)
	b.WriteString(m.Body)
	for _, k := range keys {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m.Metadata[k])
	}
	return b.String()
}
