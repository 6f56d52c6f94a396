package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apprentix/epa-tracker-api/internal/models"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
	"github.com/apprentix/epa-tracker-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	RequestPasswordReset(ctx context.Context, req models.ForgotPasswordRequest) error
	CompletePasswordReset(ctx context.Context, req models.ResetPasswordRequest) error
}

type registrationService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Activate(ctx context.Context, token string) (*models.User, error)
}

// AuthHandler wires the authentication and registration endpoints.
type AuthHandler struct {
	auth    authService
	account registrationService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth authService, account registrationService) *AuthHandler {
	return &AuthHandler{auth: auth, account: account}
}

// Register accepts a public registration request. The account waits for
// admin approval before it can be activated.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	if _, err := h.account.Register(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	// the generated username is only disclosed in the approval email
	response.Created(c, gin.H{
		"message": "registration received and awaiting approval",
	})
}

// Login authenticates a user by username and password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Activate consumes an emailed activation token.
func (h *AuthHandler) Activate(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "activation token is required"))
		return
	}

	user, err := h.account.Activate(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"username": user.Username,
		"message":  "account activated",
	}, nil)
}

// ForgotPassword starts the password reset flow.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, gin.H{"message": "if the email exists, a reset link will be sent"}, nil)
}

// ResetPassword completes the password reset flow.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.auth.CompletePasswordReset(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Me returns the authenticated user's claims.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info := models.UserInfo{
		ID:       claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
	}
	response.JSON(c, http.StatusOK, info, nil)
}
