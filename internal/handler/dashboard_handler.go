package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apprentix/epa-tracker-api/internal/dto"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
	"github.com/apprentix/epa-tracker-api/pkg/response"
)

type dashboardService interface {
	Metrics(ctx context.Context) (*dto.DashboardMetrics, error)
}

// DashboardHandler wires the dashboard endpoint.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Metrics returns the aggregate dashboard payload.
func (h *DashboardHandler) Metrics(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}

	metrics, err := h.service.Metrics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metrics, nil)
}
