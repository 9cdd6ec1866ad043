package domain

import "time"

const (
	RoleAdmin   = "admin"
	RoleMentor  = "mentor"
	RoleMember  = "member"
	RoleService = "service" // backend callers that publish bus events
)

type User struct {
	UserID    string    `json:"id" dynamodbav:"user_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	Phone     *string   `json:"phone" dynamodbav:"phone"`
	FirstName string    `json:"first_name" dynamodbav:"first_name"`
	LastName  string    `json:"last_name" dynamodbav:"last_name"`
	Role      string    `json:"role" dynamodbav:"role"`
	SignedUp  bool      `json:"signed_up" dynamodbav:"signed_up"`
	Enable    int       `json:"enable" dynamodbav:"enable"` // 1 = enabled, 0 = disabled
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Reachable reports whether the user may receive notifications at all.
func (u *User) Reachable() bool {
	return u.SignedUp && u.Enable == 1
}

func (u *User) DisplayName() string {
	if u.FirstName == "" {
		return u.Email
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
