package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind identifies a bus message and fixes the shape of its payload.
type EventKind string

const (
	KindEventCreatedAllTeams    EventKind = "EventCreatedAllTeams"
	KindEventCancelled          EventKind = "EventCancelled"
	KindEventDateTimeChanged    EventKind = "EventDateTimeChanged"
	KindEventLocationChanged    EventKind = "EventLocationChanged"
	KindEventGuestListChanged   EventKind = "EventGuestListChanged"
	KindTeamMemberAdded         EventKind = "TeamMemberAdded"
	KindDeviceTokensInvalidated EventKind = "DeviceTokensInvalidated"
)

// DomainEvent is immutable once published.
type DomainEvent struct {
	ID              string
	Kind            EventKind
	Payload         Payload
	DeliveryAttempt int // 1 on first delivery
	PublishedAt     time.Time
}

// Payload is implemented only by the payload types in this file.
type Payload interface {
	Kind() EventKind
	sealed()
}

type EventCreatedAllTeams struct {
	EventID         string `json:"eventId" validate:"required"`
	IsOwnerIncluded bool   `json:"isOwnerIncluded"`
}

type EventCancelled struct {
	EventID         string `json:"eventId" validate:"required"`
	IsOwnerIncluded bool   `json:"isOwnerIncluded"`
}

type EventDateTimeChanged struct {
	EventID         string `json:"eventId" validate:"required"`
	IsOwnerIncluded bool   `json:"isOwnerIncluded"`
}

type EventLocationChanged struct {
	EventID         string `json:"eventId" validate:"required"`
	IsOwnerIncluded bool   `json:"isOwnerIncluded"`
}

type EventGuestListChanged struct {
	EventID         string   `json:"eventId" validate:"required"`
	AddUserIDs      []string `json:"addUserIds"`
	RemoveUserIDs   []string `json:"removeUserIds"`
	IsOwnerIncluded bool     `json:"isOwnerIncluded"`
}

type TeamMemberAdded struct {
	NewMemberUserID string   `json:"newMemberUserId" validate:"required"`
	TeamIDs         []string `json:"teamIds" validate:"required,min=1"`
}

type DeviceTokensInvalidated struct {
	DeviceIDs []string `json:"deviceIds" validate:"required,min=1"`
}

func (EventCreatedAllTeams) Kind() EventKind    { return KindEventCreatedAllTeams }
func (EventCancelled) Kind() EventKind          { return KindEventCancelled }
func (EventDateTimeChanged) Kind() EventKind    { return KindEventDateTimeChanged }
func (EventLocationChanged) Kind() EventKind    { return KindEventLocationChanged }
func (EventGuestListChanged) Kind() EventKind   { return KindEventGuestListChanged }
func (TeamMemberAdded) Kind() EventKind         { return KindTeamMemberAdded }
func (DeviceTokensInvalidated) Kind() EventKind { return KindDeviceTokensInvalidated }

func (EventCreatedAllTeams) sealed()    {}
func (EventCancelled) sealed()          {}
func (EventDateTimeChanged) sealed()    {}
func (EventLocationChanged) sealed()    {}
func (EventGuestListChanged) sealed()   {}
func (TeamMemberAdded) sealed()         {}
func (DeviceTokensInvalidated) sealed() {}

// DecodePayload builds the typed payload for kind from its JSON form.
func DecodePayload(kind EventKind, raw []byte) (Payload, error) {
	var p Payload
	switch kind {
	case KindEventCreatedAllTeams:
		p = &EventCreatedAllTeams{}
	case KindEventCancelled:
		p = &EventCancelled{}
	case KindEventDateTimeChanged:
		p = &EventDateTimeChanged{}
	case KindEventLocationChanged:
		p = &EventLocationChanged{}
	case KindEventGuestListChanged:
		p = &EventGuestListChanged{}
	case KindTeamMemberAdded:
		p = &TeamMemberAdded{}
	case KindDeviceTokensInvalidated:
		p = &DeviceTokensInvalidated{}
	default:
		return nil, fmt.Errorf("%q: %w", kind, ErrUnroutableEvent)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, ErrBadRequest)
	}
	return deref(p), nil
}

// deref turns the decode target back into the value type handlers switch on.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *EventCreatedAllTeams:
		return *v
	case *EventCancelled:
		return *v
	case *EventDateTimeChanged:
		return *v
	case *EventLocationChanged:
		return *v
	case *EventGuestListChanged:
		return *v
	case *TeamMemberAdded:
		return *v
	case *DeviceTokensInvalidated:
		return *v
	}
	return p
}
