package domain

import "time"

type RegisterDeviceRequest struct {
	DeviceID string `json:"device_id" validate:"required,max=4096"`
}

// Device binds one push token to its owner. The token is the primary key, so a
// token can belong to at most one user at a time.
type Device struct {
	DeviceID  string    `json:"id" dynamodbav:"device_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}
