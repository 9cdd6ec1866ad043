package domain

import "time"

// NotificationPreference stores one flag per (channel, kind), e.g. "pushEventCancelled".
// PK: user_id.
type NotificationPreference struct {
	UserID    string          `json:"user_id" dynamodbav:"user_id"`
	Flags     map[string]bool `json:"flags" dynamodbav:"flags"`
	CreatedAt time.Time       `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time       `json:"updated" dynamodbav:"updated_at"`
}

type UpdatePreferencesRequest struct {
	Flags map[string]bool `json:"flags" validate:"required,min=1,dive,keys,prefflag,endkeys"`
}

// PreferenceFlag returns the flag name for a (kind, channel) pair.
func PreferenceFlag(kind NotificationKind, ch Channel) string {
	return string(ch) + string(kind)
}

// smsDefaults are the few kinds worth a text message by default.
var smsDefaults = map[NotificationKind]bool{
	NotifyEventCancelled:       true,
	NotifyEventDateTimeChanged: true,
}

// DefaultPreferenceFlags is the product default applied at user creation and to
// flags missing from older rows.
func DefaultPreferenceFlags() map[string]bool {
	flags := make(map[string]bool, len(NotificationKinds)*len(Channels))
	for _, k := range NotificationKinds {
		flags[PreferenceFlag(k, ChannelPush)] = true
		flags[PreferenceFlag(k, ChannelEmail)] = k != NotifyEventGuestListChanged
		flags[PreferenceFlag(k, ChannelSMS)] = smsDefaults[k]
	}
	return flags
}

// KnownPreferenceFlag reports whether name is a flag of some emitted kind.
func KnownPreferenceFlag(name string) bool {
	_, ok := DefaultPreferenceFlags()[name]
	return ok
}
