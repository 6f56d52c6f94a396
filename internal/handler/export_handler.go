package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/apprentix/epa-tracker-api/internal/models"
	"github.com/apprentix/epa-tracker-api/internal/service"
	"github.com/apprentix/epa-tracker-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, format string, filter models.RecordFilter) (*service.ExportFile, error)
}

// ExportHandler wires the record download endpoints.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export renders the filtered record set in the requested format.
func (h *ExportHandler) Export(c *gin.Context) {
	filter, err := parseRecordFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.service.Export(c.Request.Context(), c.Param("format"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
