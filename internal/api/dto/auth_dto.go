package dto

import "time"

// AuthResponse is returned by the callback to clients that ask for JSON.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
}

// UserResponse describes the caller of a protected page.
type UserResponse struct {
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PageResponse is the body of a protected page.
type PageResponse struct {
	Endpoint string       `json:"endpoint"`
	User     UserResponse `json:"user"`
}
