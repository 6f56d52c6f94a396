package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/apprentix/epa-tracker-api/internal/models"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
)

const importCSV = `ACE360 ID,Status,Gateway Submitted Date,EPA Ready Date,Project Start Date,Project Deadline,First Attempt Booking Date,Second Attempt Booking Date,Overall Grade,Grade Date
7001,Approved for EPA,2026-01-05,2026-01-09,2026-01-12,2026-03-02,2026-03-09,,Pass,2026-03-20
,In Training,,,,,,,,
7002,Made Up Status,not-a-date,2026-01-09,,,,,Gold,
7003,EPA Passed,,,,,,,Distinction,2026-04-01
`

func TestImportServiceCSV(t *testing.T) {
	repo := &mockRecordRepo{records: []models.ApprenticeRecord{{ID: "rec-1", ACE360ID: 7003}}}
	cache := &mockInvalidator{}
	svc := NewImportService(repo, cache, zap.NewNop())

	summary, err := svc.Import(context.Background(), "records.csv", strings.NewReader(importCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported) // 7001 and 7002
	assert.Equal(t, 2, summary.Skipped)  // missing id and existing 7003
	assert.Equal(t, 1, cache.calls)

	require.Len(t, repo.records, 3)

	var imported *models.ApprenticeRecord
	for i := range repo.records {
		if repo.records[i].ACE360ID == 7001 {
			imported = &repo.records[i]
		}
	}
	require.NotNil(t, imported)
	require.NotNil(t, imported.Status)
	assert.Equal(t, "Approved for EPA", *imported.Status)
	require.NotNil(t, imported.GatewaySubmitted)
	assert.Equal(t, "2026-01-05", imported.GatewaySubmitted.Format("2006-01-02"))
	assert.Nil(t, imported.SecondAttemptDate)
	require.NotNil(t, imported.OverallGrade)
	assert.Equal(t, models.GradePass, *imported.OverallGrade)

	// unparseable cells load as unset fields
	var sparse *models.ApprenticeRecord
	for i := range repo.records {
		if repo.records[i].ACE360ID == 7002 {
			sparse = &repo.records[i]
		}
	}
	require.NotNil(t, sparse)
	assert.Nil(t, sparse.Status)
	assert.Nil(t, sparse.GatewaySubmitted)
	assert.Nil(t, sparse.OverallGrade)
	require.NotNil(t, sparse.ApprovedForEPA)
}

func TestImportServiceXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"ACE360 ID", "Status", "Overall Grade"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"7010", "In Training", ""}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"7011", "EPA Passed", "Merit"}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	repo := &mockRecordRepo{}
	svc := NewImportService(repo, nil, zap.NewNop())

	summary, err := svc.Import(context.Background(), "records.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 0, summary.Skipped)
	require.Len(t, repo.records, 2)
}

func TestImportServiceRejectsUnknownExtension(t *testing.T) {
	svc := NewImportService(&mockRecordRepo{}, nil, zap.NewNop())

	_, err := svc.Import(context.Background(), "records.txt", strings.NewReader("data"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestImportServiceRequiresIDColumn(t *testing.T) {
	svc := NewImportService(&mockRecordRepo{}, nil, zap.NewNop())

	_, err := svc.Import(context.Background(), "records.csv", strings.NewReader("Status,Overall Grade\nIn Training,Pass\n"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
