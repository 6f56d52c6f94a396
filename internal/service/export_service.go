package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/apprentix/epa-tracker-api/internal/dto"
	"github.com/apprentix/epa-tracker-api/internal/models"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
	"github.com/apprentix/epa-tracker-api/pkg/export"
)

// Export formats supported by the records download endpoints.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// exportHeaders fixes the column set and order for every export format.
var exportHeaders = []string{
	"ACE360 ID",
	"Status",
	"Gateway Submitted",
	"EPA Ready Date",
	"Project Start Date",
	"Project Deadline",
	"First Attempt",
	"Second Attempt",
	"Variance (Days)",
	"Overall Grade",
	"Grade Date",
	"Within EPA Window",
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders record listings as downloadable files.
type ExportService struct {
	repo   recordRepository
	csv    *export.CSVExporter
	xlsx   *export.XLSXExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService instance.
func NewExportService(repo recordRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		xlsx:   export.NewXLSXExporter("Apprentice Records"),
		pdf:    export.NewPDFExporter(),
		logger: logger,
		now:    time.Now,
	}
}

// Export renders every record matching the filter in the requested format.
func (s *ExportService) Export(ctx context.Context, format string, filter models.RecordFilter) (*ExportFile, error) {
	if filter.Window != "" && filter.Window != "Yes" && filter.Window != "No" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "window filter must be Yes or No")
	}

	records, err := s.repo.ListUnpaged(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load records")
	}
	if filter.Window != "" {
		matched := make([]models.ApprenticeRecord, 0, len(records))
		for _, r := range records {
			if within := r.WithinEPAWindow(); within != nil && *within == filter.Window {
				matched = append(matched, r)
			}
		}
		records = matched
	}

	dataset := buildExportDataset(records)
	stamp := s.now().UTC().Format("2006-01-02")

	switch format {
	case FormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("apprentice_records_%s.csv", stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case FormatXLSX:
		content, err := s.xlsx.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render xlsx")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("apprentice_records_%s.xlsx", stamp),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     content,
		}, nil
	case FormatPDF:
		content, err := s.pdf.Render(dataset, "Apprentice Records")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("apprentice_records_%s.pdf", stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func buildExportDataset(records []models.ApprenticeRecord) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for i := range records {
		r := &records[i]
		row := map[string]string{
			"ACE360 ID":          strconv.FormatInt(r.ACE360ID, 10),
			"Status":             exportString(r.Status),
			"Gateway Submitted":  exportDate(r.GatewaySubmitted),
			"EPA Ready Date":     exportDate(r.ApprovedForEPA),
			"Project Start Date": exportDate(r.ProjectStartDate),
			"Project Deadline":   exportDate(r.ProjectDeadline),
			"First Attempt":      exportDate(r.FirstAttemptDate),
			"Second Attempt":     exportDate(r.SecondAttemptDate),
			"Overall Grade":      exportString(r.OverallGrade),
			"Grade Date":         exportDate(r.GradeDate),
			"Within EPA Window":  exportString(r.WithinEPAWindow()),
		}
		if variance := r.VarianceDays(); variance != nil {
			row["Variance (Days)"] = strconv.Itoa(*variance)
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}

func exportDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dto.DateLayout)
}

func exportString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
