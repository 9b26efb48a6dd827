package models

import "time"

// User represents a user in the system
type User struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	DisplayName string    `json:"display_name"`
	Token       string    `json:"token"`
	PushToken   *string   `json:"push_token,omitempty"`
	FriendID    *string   `json:"friend_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Presence is the best-effort liveness record for a user
type Presence struct {
	UserID   string     `json:"user_id"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}
