package service

import (
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/apprentix/epa-tracker-api/internal/dto"
	"github.com/apprentix/epa-tracker-api/internal/models"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
)

// importColumns maps spreadsheet headers onto record fields. Unknown columns
// are ignored so exports with extra columns still load.
var importDateColumns = map[string]func(*models.ApprenticeRecord, *time.Time){
	"Gateway Submitted Date":      func(r *models.ApprenticeRecord, t *time.Time) { r.GatewaySubmitted = t },
	"EPA Ready Date":              func(r *models.ApprenticeRecord, t *time.Time) { r.ApprovedForEPA = t },
	"Project Start Date":          func(r *models.ApprenticeRecord, t *time.Time) { r.ProjectStartDate = t },
	"Project Deadline":            func(r *models.ApprenticeRecord, t *time.Time) { r.ProjectDeadline = t },
	"First Attempt Booking Date":  func(r *models.ApprenticeRecord, t *time.Time) { r.FirstAttemptDate = t },
	"Second Attempt Booking Date": func(r *models.ApprenticeRecord, t *time.Time) { r.SecondAttemptDate = t },
	"Grade Date":                  func(r *models.ApprenticeRecord, t *time.Time) { r.GradeDate = t },
}

var importDateLayouts = []string{
	dto.DateLayout,
	"02/01/2006",
	"2006-01-02 15:04:05",
}

// ImportService loads apprentice records in bulk from CSV or XLSX uploads.
type ImportService struct {
	repo   recordRepository
	cache  dashboardInvalidator
	logger *zap.Logger
}

// NewImportService constructs an ImportService instance. The cache may be nil
// when dashboard caching is disabled.
func NewImportService(repo recordRepository, cache dashboardInvalidator, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{repo: repo, cache: cache, logger: logger}
}

// Import parses the upload and inserts every importable row. Rows without a
// usable ACE360 ID and rows whose ACE360 ID already exists are counted as
// skipped; unparseable cell values load as unset fields.
func (s *ImportService) Import(ctx context.Context, filename string, file io.Reader) (*dto.ImportSummary, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSVRows(file)
	case ".xlsx":
		rows, err = readXLSXRows(file)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "upload must be a .csv or .xlsx file")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to parse upload")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "upload contains no header row")
	}

	columns := map[string]int{}
	for i, header := range rows[0] {
		columns[strings.TrimSpace(header)] = i
	}
	if _, ok := columns["ACE360 ID"]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "upload is missing the ACE360 ID column")
	}

	summary := &dto.ImportSummary{}
	for _, row := range rows[1:] {
		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		ace360ID, err := strconv.ParseInt(cell("ACE360 ID"), 10, 64)
		if err != nil {
			summary.Skipped++
			continue
		}

		exists, err := s.repo.ExistsByACE360ID(ctx, ace360ID, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check ace360 id")
		}
		if exists {
			summary.Skipped++
			continue
		}

		record := &models.ApprenticeRecord{ACE360ID: ace360ID}
		if status := cell("Status"); models.ValidStatus(status) {
			record.Status = &status
		}
		if grade := cell("Overall Grade"); models.ValidGrade(grade) {
			record.OverallGrade = &grade
		}
		for name, assign := range importDateColumns {
			assign(record, parseImportDate(cell(name)))
		}

		if err := s.repo.Create(ctx, record); err != nil {
			s.logger.Warn("failed to import row", zap.Int64("ace360Id", ace360ID), zap.Error(err))
			summary.Skipped++
			continue
		}
		summary.Imported++
	}

	if summary.Imported > 0 && s.cache != nil {
		s.cache.InvalidateDashboard(ctx)
	}
	s.logger.Info("import completed",
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped))
	return summary, nil
}

func readCSVRows(file io.Reader) ([][]string, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func readXLSXRows(file io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}

// parseImportDate tries the accepted layouts and returns nil for anything it
// cannot read.
func parseImportDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range importDateLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return &parsed
		}
	}
	return nil
}
