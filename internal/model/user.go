package model

import (
	"fmt"
	"time"
)

// User is a registered account. Donors and recipients are both plain users;
// the lifetime counters are only ever incremented by the bank.
type User struct {
	ID             int64      `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	Role           string     `json:"role"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone,omitempty"`
	BloodGroup     string     `json:"bloodGroup,omitempty"`
	DateOfBirth    *time.Time `json:"dateOfBirth,omitempty"`
	BloodGiven     int        `json:"bloodGiven"`
	BloodTaken     int        `json:"bloodTaken"`
	LastDonateDate *time.Time `json:"lastDonateDate,omitempty"`
	Available      bool       `json:"available"`
	AvatarMime     string     `json:"avatarMime,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin: 2,
		RoleUser:  1,
	}
	return levels[minimum] > 0 && levels[role] >= levels[minimum]
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ValidatePassword checks password strength requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
