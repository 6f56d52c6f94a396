package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/apprentix/epa-tracker-api/internal/dto"
	"github.com/apprentix/epa-tracker-api/internal/models"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
)

type recordRepository interface {
	Create(ctx context.Context, record *models.ApprenticeRecord) error
	FindByID(ctx context.Context, id string) (*models.ApprenticeRecord, error)
	ExistsByACE360ID(ctx context.Context, ace360ID int64, excludeID string) (bool, error)
	List(ctx context.Context, filter models.RecordFilter) ([]models.ApprenticeRecord, int, error)
	ListUnpaged(ctx context.Context, filter models.RecordFilter) ([]models.ApprenticeRecord, error)
	Update(ctx context.Context, record *models.ApprenticeRecord) error
	Delete(ctx context.Context, id string) error
}

type dashboardInvalidator interface {
	InvalidateDashboard(ctx context.Context)
}

// RecordService manages apprentice records.
type RecordService struct {
	repo      recordRepository
	cache     dashboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRecordService constructs a RecordService instance. The cache may be nil
// when dashboard caching is disabled.
func NewRecordService(repo recordRepository, cache dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RecordService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// Create stores a new apprentice record.
func (s *RecordService) Create(ctx context.Context, req dto.RecordRequest) (*dto.RecordResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record payload")
	}

	record := &models.ApprenticeRecord{}
	if err := applyRecordRequest(record, req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByACE360ID(ctx, record.ACE360ID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check ace360 id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, fmt.Sprintf("record with ACE360 ID %d already exists", record.ACE360ID))
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create record")
	}
	s.invalidate(ctx)

	resp := dto.NewRecordResponse(record)
	return &resp, nil
}

// Get returns a single record with its derived metrics.
func (s *RecordService) Get(ctx context.Context, id string) (*dto.RecordResponse, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	resp := dto.NewRecordResponse(record)
	return &resp, nil
}

// List returns the filtered record page, newest first. A window filter works
// on the derived within-window value, so that path loads all matches and
// pages in memory.
func (s *RecordService) List(ctx context.Context, filter models.RecordFilter) ([]dto.RecordResponse, *models.Pagination, error) {
	if filter.Window != "" && filter.Window != "Yes" && filter.Window != "No" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "window filter must be Yes or No")
	}

	if filter.Window == "" {
		records, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
		}
		return toRecordResponses(records), paginationFor(filter, total), nil
	}

	records, err := s.repo.ListUnpaged(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}

	matched := make([]models.ApprenticeRecord, 0, len(records))
	for _, r := range records {
		if within := r.WithinEPAWindow(); within != nil && *within == filter.Window {
			matched = append(matched, r)
		}
	}

	pagination := paginationFor(filter, len(matched))
	start := (pagination.Page - 1) * pagination.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pagination.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return toRecordResponses(matched[start:end]), pagination, nil
}

// Update replaces a record's fields.
func (s *RecordService) Update(ctx context.Context, id string, req dto.RecordRequest) (*dto.RecordResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid record payload")
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}

	if err := applyRecordRequest(record, req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByACE360ID(ctx, record.ACE360ID, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check ace360 id")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, fmt.Sprintf("record with ACE360 ID %d already exists", record.ACE360ID))
	}

	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update record")
	}
	s.invalidate(ctx)

	resp := dto.NewRecordResponse(record)
	return &resp, nil
}

// Delete removes a record permanently.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete record")
	}
	s.invalidate(ctx)
	return nil
}

func (s *RecordService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateDashboard(ctx)
	}
}

func toRecordResponses(records []models.ApprenticeRecord) []dto.RecordResponse {
	out := make([]dto.RecordResponse, 0, len(records))
	for i := range records {
		out = append(out, dto.NewRecordResponse(&records[i]))
	}
	return out
}

func paginationFor(filter models.RecordFilter, total int) *models.Pagination {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}

// applyRecordRequest copies a request onto the record, parsing dates and
// validating enumerated fields. Empty strings clear the target field.
func applyRecordRequest(record *models.ApprenticeRecord, req dto.RecordRequest) error {
	if req.Status != "" && !models.ValidStatus(req.Status) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}
	if req.OverallGrade != "" && !models.ValidGrade(req.OverallGrade) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown grade %q", req.OverallGrade))
	}

	record.ACE360ID = req.ACE360ID
	record.Status = optionalString(req.Status)
	record.OverallGrade = optionalString(req.OverallGrade)

	dates := []struct {
		raw  string
		name string
		dest **time.Time
	}{
		{req.GatewaySubmitted, "gateway_submitted", &record.GatewaySubmitted},
		{req.ApprovedForEPA, "approved_for_epa", &record.ApprovedForEPA},
		{req.ProjectStartDate, "project_start_date", &record.ProjectStartDate},
		{req.ProjectDeadline, "project_deadline_date", &record.ProjectDeadline},
		{req.FirstAttemptDate, "first_attempt_date", &record.FirstAttemptDate},
		{req.SecondAttemptDate, "second_attempt_date", &record.SecondAttemptDate},
		{req.GradeDate, "grade_date", &record.GradeDate},
	}
	for _, d := range dates {
		parsed, err := parseOptionalDate(d.raw, d.name)
		if err != nil {
			return err
		}
		*d.dest = parsed
	}
	return nil
}

func parseOptionalDate(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(dto.DateLayout, raw, time.UTC)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a YYYY-MM-DD date", field))
	}
	return &parsed, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
