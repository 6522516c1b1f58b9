package domain

import (
	"fmt"
	"strings"
	"time"
)

// Session is the client's record of whether, and as whom, the user is
// authenticated.
type Session struct {
	Authenticated bool      `json:"authenticated"`
	Principal     string    `json:"principal,omitempty"`
	Token         string    `json:"-"`
	ExpiresAt     time.Time `json:"expiresAt,omitempty"`
}

type UserProfile struct {
	Username string `json:"username"`
	Location string `json:"location"`
}

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
	RoleGuest UserRole = "guest"
)

// ParseUserRole accepts only the closed role set.
func ParseUserRole(s string) (UserRole, error) {
	switch r := UserRole(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleUser, RoleGuest:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}
