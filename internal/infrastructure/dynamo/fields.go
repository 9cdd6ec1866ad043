package dynamo

// DynamoDB attribute names used in key conditions and update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID    = "user_id"
	fieldTeamID    = "team_id"
	fieldEventID   = "event_id"
	fieldDeviceID  = "device_id"
	fieldEnable    = "enable"
	fieldSignedUp  = "signed_up"
	fieldStatus    = "status"
	fieldStartsDay = "starts_day"
	fieldStartsAt  = "starts_at"
	fieldFlags     = "flags"
	fieldUpdatedAt = "updated_at"
)

// Secondary index names created by Bootstrap.
const (
	indexDevicesByUser  = "user_id-index"
	indexEventsByStarts = "starts_day-starts_at-index"
)
