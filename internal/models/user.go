package models

import "time"

// UserRole represents the available roles.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleViewer UserRole = "viewer"
)

// ApprovalStatus tracks the admin decision on a registration request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// User represents an application account stored in the users table.
type User struct {
	ID           string  `db:"id" json:"id"`
	Username     string  `db:"username" json:"username"`
	Email        string  `db:"email" json:"email"`
	PasswordHash string  `db:"password_hash" json:"-"`
	Forename     string  `db:"forename" json:"forename"`
	Surname      string  `db:"surname" json:"surname"`
	JobTitle     string  `db:"job_title" json:"job_title"`
	Telephone    *string `db:"telephone" json:"telephone,omitempty"`

	Active         bool           `db:"active" json:"active"`
	Role           UserRole       `db:"role" json:"role"`
	ApprovalStatus ApprovalStatus `db:"approval_status" json:"approval_status"`

	ActivationToken          *string    `db:"activation_token" json:"-"`
	ActivationTokenExpiresAt *time.Time `db:"activation_token_expires_at" json:"-"`

	CreatedAt                time.Time  `db:"created_at" json:"created_at"`
	LastLoginAt              *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	PasswordResetRequestedAt *time.Time `db:"password_reset_requested_at" json:"-"`
	PasswordResetCompletedAt *time.Time `db:"password_reset_completed_at" json:"-"`
	DeletedAt                *time.Time `db:"deleted_at" json:"-"`
}

// IsDeleted reports whether the account has been soft deleted.
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// ActivationExpired reports whether the stored activation token has lapsed.
// A user without a stored expiry counts as expired so approval always
// reissues a usable token.
func (u *User) ActivationExpired(now time.Time) bool {
	if u.ActivationTokenExpiresAt == nil {
		return true
	}
	return now.After(*u.ActivationTokenExpiresAt)
}
