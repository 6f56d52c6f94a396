package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apprentix/epa-tracker-api/internal/dto"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
	"github.com/apprentix/epa-tracker-api/pkg/response"
)

type approvalService interface {
	PendingRegistrations(ctx context.Context) ([]dto.PendingRegistration, error)
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id string) error
}

// AdminHandler wires the registration approval endpoints.
type AdminHandler struct {
	service approvalService
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(service approvalService) *AdminHandler {
	return &AdminHandler{service: service}
}

// PendingRegistrations lists registrations awaiting a decision.
func (h *AdminHandler) PendingRegistrations(c *gin.Context) {
	pending, err := h.service.PendingRegistrations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pending, nil)
}

// Approve accepts a pending registration and emails the activation link.
func (h *AdminHandler) Approve(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "registration id is required"))
		return
	}

	if err := h.service.Approve(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "registration approved"}, nil)
}

// Reject declines a pending registration.
func (h *AdminHandler) Reject(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "registration id is required"))
		return
	}

	if err := h.service.Reject(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "registration rejected"}, nil)
}
