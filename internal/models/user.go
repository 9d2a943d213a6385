package models

import "time"

type User struct {
	ID                  string     `json:"id"`
	FullName            string     `json:"full_name"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone"`
	PasswordHash        string     `json:"-"`
	IsAdmin             bool       `json:"is_admin"`
	FailedLoginAttempts int        `json:"-"`
	LockUntil           *time.Time `json:"-"`
	PasswordChangedAt   time.Time  `json:"password_changed_at"`
	OTPHash             string     `json:"-"`
	OTPPurpose          string     `json:"-"`
	OTPExpiresAt        *time.Time `json:"-"`
	OTPAttempts         int        `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Role returns the role name used in activity logs.
func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Summary strips credentials for embedding into other resources.
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, FullName: u.FullName, Email: u.Email, Phone: u.Phone}
}

// IsLocked reports whether the account is locked at the given instant.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

type UserSummary struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID  string
	IsAdmin bool
}
