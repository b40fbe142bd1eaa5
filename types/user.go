package types

import "time"

// User represents an account in the system.
type User struct {
	// ID is the unique identifier of the user (UUID string).
	ID string `json:"id" db:"id"`

	// Email is the user's unique email address used for login.
	Email string `json:"email" db:"email"`

	// Username is the unique handle chosen during onboarding; nil until then.
	Username *string `json:"username" db:"username"`

	// ProfilePicURL points at the user's avatar, if one has been uploaded.
	ProfilePicURL *string `json:"profile_pic_url" db:"profile_pic_url"`

	// IsOnboarded reports whether the user completed onboarding.
	IsOnboarded bool `json:"is_onboarded" db:"is_onboarded"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
