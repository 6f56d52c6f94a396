package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apprentix/epa-tracker-api/internal/dto"
	"github.com/apprentix/epa-tracker-api/internal/models"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
)

type mockRecordRepo struct {
	records   []models.ApprenticeRecord
	createErr error
	listErr   error
}

func (m *mockRecordRepo) Create(ctx context.Context, record *models.ApprenticeRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	if record.ID == "" {
		record.ID = fmt.Sprintf("rec-%d", len(m.records)+1)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	m.records = append(m.records, *record)
	return nil
}

func (m *mockRecordRepo) FindByID(ctx context.Context, id string) (*models.ApprenticeRecord, error) {
	for i := range m.records {
		if m.records[i].ID == id {
			found := m.records[i]
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockRecordRepo) ExistsByACE360ID(ctx context.Context, ace360ID int64, excludeID string) (bool, error) {
	for i := range m.records {
		if m.records[i].ACE360ID == ace360ID && m.records[i].ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRecordRepo) List(ctx context.Context, filter models.RecordFilter) ([]models.ApprenticeRecord, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.records, len(m.records), nil
}

func (m *mockRecordRepo) ListUnpaged(ctx context.Context, filter models.RecordFilter) ([]models.ApprenticeRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records, nil
}

func (m *mockRecordRepo) Update(ctx context.Context, record *models.ApprenticeRecord) error {
	for i := range m.records {
		if m.records[i].ID == record.ID {
			m.records[i] = *record
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockRecordRepo) Delete(ctx context.Context, id string) error {
	for i := range m.records {
		if m.records[i].ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockInvalidator struct {
	calls int
}

func (m *mockInvalidator) InvalidateDashboard(ctx context.Context) {
	m.calls++
}

func TestRecordServiceCreate(t *testing.T) {
	repo := &mockRecordRepo{}
	cache := &mockInvalidator{}
	svc := NewRecordService(repo, cache, validator.New(), zap.NewNop())

	resp, err := svc.Create(context.Background(), dto.RecordRequest{
		ACE360ID:         7001,
		Status:           "Approved for EPA",
		ApprovedForEPA:   "2026-01-05",
		ProjectDeadline:  "2026-03-02",
		FirstAttemptDate: "2026-03-09",
		GradeDate:        "2026-03-20",
		OverallGrade:     "Pass",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7001), resp.ACE360ID)
	assert.Equal(t, "2026-03-30", resp.EPAWindowClosure)
	require.NotNil(t, resp.VarianceDays)
	assert.Equal(t, 7, *resp.VarianceDays)
	assert.Equal(t, "Yes", resp.WithinEPAWindow)
	assert.Equal(t, 1, cache.calls)
}

func TestRecordServiceCreateDuplicate(t *testing.T) {
	repo := &mockRecordRepo{records: []models.ApprenticeRecord{{ID: "rec-1", ACE360ID: 7001}}}
	svc := NewRecordService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), dto.RecordRequest{ACE360ID: 7001})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)
}

func TestRecordServiceCreateValidation(t *testing.T) {
	svc := NewRecordService(&mockRecordRepo{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), dto.RecordRequest{ACE360ID: 7001, Status: "Graduated"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.RecordRequest{ACE360ID: 7001, GradeDate: "20/03/2026"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordServiceListWindowFilter(t *testing.T) {
	approved := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	inWindow := approved.AddDate(0, 0, 30)
	late := approved.AddDate(0, 0, 120)
	repo := &mockRecordRepo{records: []models.ApprenticeRecord{
		{ID: "rec-1", ACE360ID: 1, ApprovedForEPA: &approved, GradeDate: &inWindow},
		{ID: "rec-2", ACE360ID: 2, ApprovedForEPA: &approved, GradeDate: &late},
		{ID: "rec-3", ACE360ID: 3},
	}}
	svc := NewRecordService(repo, nil, validator.New(), zap.NewNop())

	responses, pagination, err := svc.List(context.Background(), models.RecordFilter{Window: "Yes"})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "rec-1", responses[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)

	responses, _, err = svc.List(context.Background(), models.RecordFilter{Window: "No"})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "rec-2", responses[0].ID)

	_, _, err = svc.List(context.Background(), models.RecordFilter{Window: "maybe"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordServiceUpdateNotFound(t *testing.T) {
	svc := NewRecordService(&mockRecordRepo{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "missing", dto.RecordRequest{ACE360ID: 7001})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecordServiceDelete(t *testing.T) {
	repo := &mockRecordRepo{records: []models.ApprenticeRecord{{ID: "rec-1", ACE360ID: 7001}}}
	cache := &mockInvalidator{}
	svc := NewRecordService(repo, cache, validator.New(), zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "rec-1"))
	assert.Empty(t, repo.records)
	assert.Equal(t, 1, cache.calls)

	err := svc.Delete(context.Background(), "rec-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
