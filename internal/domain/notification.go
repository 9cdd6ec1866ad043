package domain

import "time"

type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Channels lists every delivery channel in dispatch order.
var Channels = []Channel{ChannelPush, ChannelEmail, ChannelSMS}

// NotificationKind names what a user is being told about. Every kind has one
// preference flag per channel.
type NotificationKind string

const (
	NotifyEventCreated           NotificationKind = "EventCreated"
	NotifyEventCancelled         NotificationKind = "EventCancelled"
	NotifyEventDateTimeChanged   NotificationKind = "EventDateTimeChanged"
	NotifyEventLocationChanged   NotificationKind = "EventLocationChanged"
	NotifyEventInvitation        NotificationKind = "EventInvitation"
	NotifyEventUninvited         NotificationKind = "EventUninvited"
	NotifyEventGuestListChanged  NotificationKind = "EventGuestListChanged"
	NotifyTeamMemberAdded        NotificationKind = "TeamMemberAdded"
	NotifyEventPendingInvitation NotificationKind = "EventPendingInvitation"
)

// NotificationKinds is the closed set of kinds this service emits.
var NotificationKinds = []NotificationKind{
	NotifyEventCreated,
	NotifyEventCancelled,
	NotifyEventDateTimeChanged,
	NotifyEventLocationChanged,
	NotifyEventInvitation,
	NotifyEventUninvited,
	NotifyEventGuestListChanged,
	NotifyTeamMemberAdded,
	NotifyEventPendingInvitation,
}

// NotificationTarget is who should be told about what. Derived per dispatch, never stored.
type NotificationTarget struct {
	UserID  string
	EventID string
	TeamID  string
}

// Metadata keys carried on every message so clients can deep-link.
const (
	MetaKind    = "kind"
	MetaEventID = "eventId"
	MetaTeamID  = "teamId"
	MetaUserID  = "userId"
)

// ChannelMessage is one notification for one user on one channel.
type ChannelMessage struct {
	Channel  Channel
	Kind     NotificationKind
	UserID   string
	Title    string
	Body     string
	Metadata map[string]string
}

// PushMessage is the shared payload of one multicast send.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushResult is the transport outcome for a single device token.
type PushResult struct {
	DeviceID string
	Err      error
	// Invalid is set when the token will never be deliverable again.
	Invalid bool
}

// ReminderWindow is the span of start instants one reminder sweep covers.
// Both ends are inclusive; To is one millisecond before the next grid boundary.
type ReminderWindow struct {
	From time.Time
	To   time.Time
}

func (w ReminderWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}
