package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apprentix/epa-tracker-api/internal/dto"
	"github.com/apprentix/epa-tracker-api/internal/models"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
	"github.com/apprentix/epa-tracker-api/pkg/response"
)

type recordService interface {
	Create(ctx context.Context, req dto.RecordRequest) (*dto.RecordResponse, error)
	Get(ctx context.Context, id string) (*dto.RecordResponse, error)
	List(ctx context.Context, filter models.RecordFilter) ([]dto.RecordResponse, *models.Pagination, error)
	Update(ctx context.Context, id string, req dto.RecordRequest) (*dto.RecordResponse, error)
	Delete(ctx context.Context, id string) error
}

// RecordHandler wires the apprentice record endpoints.
type RecordHandler struct {
	service recordService
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(service recordService) *RecordHandler {
	return &RecordHandler{service: service}
}

// Create stores a new record.
func (h *RecordHandler) Create(c *gin.Context) {
	var req dto.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return
	}

	record, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Get returns one record with derived metrics.
func (h *RecordHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// List returns the filtered record page.
func (h *RecordHandler) List(c *gin.Context) {
	filter, err := parseRecordFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	records, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Update replaces a record's fields.
func (h *RecordHandler) Update(c *gin.Context) {
	var req dto.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return
	}

	record, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete removes a record permanently.
func (h *RecordHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// parseRecordFilter reads listing criteria from the query string. Date range
// parameters follow the <field>_from / <field>_to convention.
func parseRecordFilter(c *gin.Context) (models.RecordFilter, error) {
	filter := models.RecordFilter{
		Status: strings.TrimSpace(c.Query("status")),
		Grade:  strings.TrimSpace(c.Query("grade")),
		Window: strings.TrimSpace(c.Query("window")),
	}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer")
		}
		filter.Page = page
	}
	if raw := c.Query("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return filter, appErrors.Clone(appErrors.ErrValidation, "page_size must be a positive integer")
		}
		filter.PageSize = size
	}

	ranges := []struct {
		param string
		dest  *models.DateRange
	}{
		{"gateway", &filter.Gateway},
		{"approved", &filter.Approved},
		{"project_start", &filter.ProjectStart},
		{"deadline", &filter.Deadline},
		{"first_attempt", &filter.FirstAttempt},
		{"second_attempt", &filter.SecondAttempt},
		{"grade_date", &filter.GradeDate},
	}
	for _, item := range ranges {
		from, err := parseDateParam(c, item.param+"_from")
		if err != nil {
			return filter, err
		}
		to, err := parseDateParam(c, item.param+"_to")
		if err != nil {
			return filter, err
		}
		item.dest.From = from
		item.dest.To = to
	}
	return filter, nil
}

func parseDateParam(c *gin.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dto.DateLayout, raw, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a YYYY-MM-DD date", name))
	}
	return &parsed, nil
}
