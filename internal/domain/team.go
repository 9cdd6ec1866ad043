package domain

import "time"

type Team struct {
	TeamID    string    `json:"id" dynamodbav:"team_id"`
	Name      string    `json:"name" dynamodbav:"name"`
	MemberIDs []string  `json:"member_ids" dynamodbav:"member_ids"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Event is a scheduled mentoring session. AllTeams events are visible to every user;
// otherwise TeamIDs scopes the audience.
type Event struct {
	EventID   string    `json:"id" dynamodbav:"event_id"`
	Title     string    `json:"title" dynamodbav:"title"`
	OwnerID   string    `json:"owner_id" dynamodbav:"owner_id"`
	TeamIDs   []string  `json:"team_ids" dynamodbav:"team_ids"`
	AllTeams  bool      `json:"all_teams" dynamodbav:"all_teams"`
	Location  string    `json:"location" dynamodbav:"location"`
	StartsAt  time.Time `json:"starts_at" dynamodbav:"starts_at,unixtime"`
	StartsDay string    `json:"-" dynamodbav:"starts_day"` // YYYY-MM-DD (UTC), GSI partition
	Cancelled bool      `json:"cancelled" dynamodbav:"cancelled"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// StartsDayOf is the partition value used to query events by start date.
func StartsDayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

const (
	GuestPending  = "pending"
	GuestAccepted = "accepted"
	GuestDeclined = "declined"
)

// EventGuest is one invitation. PK: event_id, SK: user_id.
type EventGuest struct {
	EventID   string    `json:"event_id" dynamodbav:"event_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Status    string    `json:"status" dynamodbav:"status"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}
