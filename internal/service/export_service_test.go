package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apprentix/epa-tracker-api/internal/models"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
)

func exportFixtureRecords() []models.ApprenticeRecord {
	status := "EPA Passed"
	grade := models.GradePass
	return []models.ApprenticeRecord{
		{
			ID:               "rec-1",
			ACE360ID:         7001,
			Status:           &status,
			ApprovedForEPA:   datePtr(2026, 1, 5),
			ProjectDeadline:  datePtr(2026, 3, 2),
			FirstAttemptDate: datePtr(2026, 3, 9),
			GradeDate:        datePtr(2026, 3, 20),
			OverallGrade:     &grade,
		},
		{ID: "rec-2", ACE360ID: 7002},
	}
}

func TestBuildExportDataset(t *testing.T) {
	dataset := buildExportDataset(exportFixtureRecords())

	require.Equal(t, exportHeaders, dataset.Headers)
	require.Len(t, dataset.Rows, 2)

	first := dataset.Rows[0]
	assert.Equal(t, "7001", first["ACE360 ID"])
	assert.Equal(t, "EPA Passed", first["Status"])
	assert.Equal(t, "2026-01-05", first["EPA Ready Date"])
	assert.Equal(t, "7", first["Variance (Days)"])
	assert.Equal(t, "Yes", first["Within EPA Window"])

	second := dataset.Rows[1]
	assert.Equal(t, "7002", second["ACE360 ID"])
	assert.Empty(t, second["Variance (Days)"])
	assert.Empty(t, second["Within EPA Window"])
}

func TestExportServiceCSV(t *testing.T) {
	repo := &mockRecordRepo{records: exportFixtureRecords()}
	svc := NewExportService(repo, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }

	file, err := svc.Export(context.Background(), FormatCSV, models.RecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, "apprentice_records_2026-09-01.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(exportHeaders, ","), lines[0])
	assert.Contains(t, lines[1], "7001")
}

func TestExportServiceXLSXAndPDF(t *testing.T) {
	repo := &mockRecordRepo{records: exportFixtureRecords()}
	svc := NewExportService(repo, zap.NewNop())

	xlsxFile, err := svc.Export(context.Background(), FormatXLSX, models.RecordFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, xlsxFile.Content)
	assert.True(t, strings.HasSuffix(xlsxFile.Filename, ".xlsx"))

	pdfFile, err := svc.Export(context.Background(), FormatPDF, models.RecordFilter{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdfFile.Content), "%PDF"))
}

func TestExportServiceWindowFilter(t *testing.T) {
	repo := &mockRecordRepo{records: exportFixtureRecords()}
	svc := NewExportService(repo, zap.NewNop())

	file, err := svc.Export(context.Background(), FormatCSV, models.RecordFilter{Window: "Yes"})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "7001")
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&mockRecordRepo{}, zap.NewNop())

	_, err := svc.Export(context.Background(), "docx", models.RecordFilter{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
