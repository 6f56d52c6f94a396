package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/apprentix/epa-tracker-api/internal/dto"
	"github.com/apprentix/epa-tracker-api/internal/models"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
	"github.com/apprentix/epa-tracker-api/pkg/mailer"
	"github.com/apprentix/epa-tracker-api/pkg/token"
)

const passwordSpecials = "@$!%*?&#"

type accountUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListPending(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	SetApprovalStatus(ctx context.Context, id string, status models.ApprovalStatus) error
	SetActivationToken(ctx context.Context, id, token string, expiresAt time.Time) error
	Activate(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type tokenSigner interface {
	Issue(email string, purpose token.Purpose, ttl time.Duration) (string, time.Time, error)
	Verify(tokenString string, purpose token.Purpose) (string, error)
}

// AccountConfig defines configuration for the registration workflow.
type AccountConfig struct {
	ActivationTTL time.Duration
	BaseURL       string
}

// AccountService covers registration, admin approval, activation and profile
// management.
type AccountService struct {
	repo      accountUserRepository
	signer    tokenSigner
	mail      mailer.Mailer
	validator *validator.Validate
	logger    *zap.Logger
	config    AccountConfig
	now       func() time.Time
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(repo accountUserRepository, signer tokenSigner, mail mailer.Mailer, validate *validator.Validate, logger *zap.Logger, config AccountConfig) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AccountService{
		repo:      repo,
		signer:    signer,
		mail:      mail,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Register creates a pending account. The account stays unusable until an
// administrator approves it and the owner follows the emailed activation link.
func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if err := checkPasswordPolicy(req.Password); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	taken, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "email is already registered")
	}

	username, err := s.generateUsername(ctx, email)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Username:       username,
		Email:          email,
		PasswordHash:   string(hash),
		Forename:       strings.TrimSpace(req.Forename),
		Surname:        strings.TrimSpace(req.Surname),
		JobTitle:       strings.TrimSpace(req.JobTitle),
		Active:         false,
		Role:           models.RoleViewer,
		ApprovalStatus: models.ApprovalPending,
	}
	if phone := strings.TrimSpace(req.Telephone); phone != "" {
		user.Telephone = &phone
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.logger.Info("registration received",
		zap.String("userId", user.ID),
		zap.String("username", user.Username))
	return user, nil
}

// PendingRegistrations lists accounts awaiting an admin decision.
func (s *AccountService) PendingRegistrations(ctx context.Context) ([]dto.PendingRegistration, error) {
	users, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending registrations")
	}
	items := make([]dto.PendingRegistration, 0, len(users))
	for _, u := range users {
		items = append(items, dto.PendingRegistration{
			ID:             u.ID,
			Forename:       u.Forename,
			Surname:        u.Surname,
			Email:          u.Email,
			JobTitle:       u.JobTitle,
			RegisteredDate: u.CreatedAt.UTC().Format(dto.DateLayout),
		})
	}
	return items, nil
}

// Approve marks a pending registration approved, stores a fresh activation
// token and emails the activation link.
func (s *AccountService) Approve(ctx context.Context, id string) error {
	user, err := s.loadPending(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.SetApprovalStatus(ctx, user.ID, models.ApprovalApproved); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve registration")
	}

	signed, expiresAt, err := s.signer.Issue(user.Email, token.PurposeActivation, s.config.ActivationTTL)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue activation token")
	}
	if err := s.repo.SetActivationToken(ctx, user.ID, signed, expiresAt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store activation token")
	}

	link := fmt.Sprintf("%s/activate/%s", strings.TrimRight(s.config.BaseURL, "/"), signed)
	body := fmt.Sprintf("Hello %s,\n\nYour account has been approved. Activate it within %d hours:\n\n%s\n\nYour username is: %s\n",
		user.Forename, int(s.config.ActivationTTL.Hours()), link, user.Username)
	if err := s.mail.Send(user.Email, "Your account has been approved", body); err != nil {
		s.logger.Warn("failed to send activation email", zap.String("userId", user.ID), zap.Error(err))
	}

	s.logger.Info("registration approved", zap.String("userId", user.ID))
	return nil
}

// Reject declines a pending registration. The account can never be activated
// afterwards.
func (s *AccountService) Reject(ctx context.Context, id string) error {
	user, err := s.loadPending(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.SetApprovalStatus(ctx, user.ID, models.ApprovalRejected); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject registration")
	}

	body := fmt.Sprintf("Hello %s,\n\nYour registration request has not been approved. Contact your administrator for details.\n", user.Forename)
	if err := s.mail.Send(user.Email, "Your registration was not approved", body); err != nil {
		s.logger.Warn("failed to send rejection email", zap.String("userId", user.ID), zap.Error(err))
	}

	s.logger.Info("registration rejected", zap.String("userId", user.ID))
	return nil
}

// Activate consumes an activation token and unlocks the account. Activating
// an already active account succeeds without changes.
func (s *AccountService) Activate(ctx context.Context, tokenString string) (*models.User, error) {
	email, err := s.signer.Verify(tokenString, token.PurposeActivation)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no account matches this activation link")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if user.ApprovalStatus == models.ApprovalRejected {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "registration was rejected")
	}
	if user.Active {
		return user, nil
	}
	if user.ActivationToken == nil || *user.ActivationToken != tokenString {
		return nil, appErrors.Clone(appErrors.ErrTokenInvalid, "activation token has been superseded")
	}
	if user.ActivationExpired(s.now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrTokenExpired, "")
	}

	if err := s.repo.Activate(ctx, user.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate account")
	}

	user.Active = true
	user.ActivationToken = nil
	user.ActivationTokenExpiresAt = nil
	s.logger.Info("account activated", zap.String("userId", user.ID))
	return user, nil
}

// UpdateProfile updates the caller's own details.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.IsDeleted() {
		return nil, appErrors.Clone(appErrors.ErrDeletedAccount, "")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != user.Email {
		taken, err := s.repo.EmailExists(ctx, email)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
		if taken {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "email is already registered")
		}
	}

	user.Forename = strings.TrimSpace(req.Forename)
	user.Surname = strings.TrimSpace(req.Surname)
	user.Email = email
	user.JobTitle = strings.TrimSpace(req.JobTitle)
	user.Telephone = nil
	if phone := strings.TrimSpace(req.Telephone); phone != "" {
		user.Telephone = &phone
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return user, nil
}

// DeleteAccount soft deletes the caller's account. The row stays behind so
// the username and email remain reserved.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.IsDeleted() {
		return appErrors.Clone(appErrors.ErrDeletedAccount, "")
	}

	if err := s.repo.SoftDelete(ctx, user.ID, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete account")
	}
	s.logger.Info("account deleted", zap.String("userId", user.ID))
	return nil
}

func (s *AccountService) loadPending(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if user.ApprovalStatus != models.ApprovalPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyProcessed, "")
	}
	return user, nil
}

// generateUsername derives a username from the email local part, appending a
// numeric suffix starting at 1 until one is free. The unique constraint on
// users.username remains the real guarantee against concurrent registration.
func (s *AccountService) generateUsername(ctx context.Context, email string) (string, error) {
	base := email
	if at := strings.Index(email, "@"); at > 0 {
		base = email[:at]
	}
	candidate := base
	for i := 1; ; i++ {
		taken, err := s.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

// checkPasswordPolicy enforces the registration password rules: at least
// eight characters drawn from letters, digits and the allowed specials, with
// at least one uppercase letter, one digit and one special.
func checkPasswordPolicy(password string) error {
	if len(password) < 8 {
		return appErrors.Clone(appErrors.ErrWeakPassword, "password must be at least 8 characters")
	}
	var hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		default:
			return appErrors.Clone(appErrors.ErrWeakPassword, "password contains unsupported characters")
		}
	}
	if !hasUpper || !hasDigit || !hasSpecial {
		return appErrors.Clone(appErrors.ErrWeakPassword, "password needs an uppercase letter, a digit and a special character")
	}
	return nil
}
