package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/apprentix/epa-tracker-api/internal/models"
)

const userColumns = `id, username, email, password_hash, forename, surname, job_title, telephone,
       active, role, approval_status, activation_token, activation_token_expires_at,
       created_at, last_login_at, password_reset_requested_at, password_reset_completed_at, deleted_at`

// UserRepository persists application accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO users
	(id, username, email, password_hash, forename, surname, job_title, telephone,
	 active, role, approval_status, activation_token, activation_token_expires_at, created_at)
	VALUES (:id, :username, :email, :password_hash, :forename, :surname, :job_title, :telephone,
	 :active, :role, :approval_status, :activation_token, :activation_token_expires_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID fetches a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername fetches a user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail fetches a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// UsernameExists reports whether the username is already taken.
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// EmailExists reports whether the email is already registered.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// ListPending returns registration requests awaiting an admin decision,
// newest first.
func (r *UserRepository) ListPending(ctx context.Context) ([]models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE approval_status = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, userColumns)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, models.ApprovalPending); err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}
	return users, nil
}

// UpdateProfile replaces the editable profile columns.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	const query = `UPDATE users SET forename = :forename, surname = :surname, email = :email,
	 job_title = :job_title, telephone = :telephone WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// SetApprovalStatus records the admin decision on a registration.
func (r *UserRepository) SetApprovalStatus(ctx context.Context, id string, status models.ApprovalStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET approval_status = $1 WHERE id = $2`, status, id); err != nil {
		return fmt.Errorf("set approval status: %w", err)
	}
	return nil
}

// SetActivationToken stores a fresh activation token and its expiry.
func (r *UserRepository) SetActivationToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	const query = `UPDATE users SET activation_token = $1, activation_token_expires_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, token, expiresAt, id); err != nil {
		return fmt.Errorf("set activation token: %w", err)
	}
	return nil
}

// Activate marks the account usable and clears the activation token.
func (r *UserRepository) Activate(ctx context.Context, id string) error {
	const query = `UPDATE users SET active = TRUE, activation_token = NULL, activation_token_expires_at = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	return nil
}

// UpdateLastLogin stamps the most recent successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// MarkResetRequested stamps the start of a password reset flow.
func (r *UserRepository) MarkResetRequested(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET password_reset_requested_at = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("mark reset requested: %w", err)
	}
	return nil
}

// UpdatePassword stores the new hash, stamps reset completion and reactivates
// the account.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	const query = `UPDATE users SET password_hash = $1, password_reset_completed_at = $2, active = TRUE WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, passwordHash, at, id); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SoftDelete deactivates the account and stamps deletion. The row is kept so
// the username and email stay reserved.
func (r *UserRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET active = FALSE, deleted_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}
	return nil
}
