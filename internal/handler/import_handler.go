package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apprentix/epa-tracker-api/internal/dto"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
	"github.com/apprentix/epa-tracker-api/pkg/response"
)

type importService interface {
	Import(ctx context.Context, filename string, file io.Reader) (*dto.ImportSummary, error)
}

// ImportHandler wires the bulk upload endpoint.
type ImportHandler struct {
	service importService
}

// NewImportHandler constructs the handler.
func NewImportHandler(service importService) *ImportHandler {
	return &ImportHandler{service: service}
}

// Import loads records from an uploaded CSV or XLSX file.
func (h *ImportHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "multipart file field is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open upload"))
		return
	}
	defer file.Close()

	summary, err := h.service.Import(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
