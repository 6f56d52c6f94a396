package dto

import (
	"time"

	"github.com/apprentix/epa-tracker-api/internal/models"
)

// DateLayout is the wire format for all calendar dates.
const DateLayout = "2006-01-02"

// RecordRequest carries record create/update payloads. Dates travel as
// YYYY-MM-DD strings; empty strings mean unset.
type RecordRequest struct {
	ACE360ID          int64  `json:"ace360_id" validate:"required"`
	Status            string `json:"status"`
	GatewaySubmitted  string `json:"gateway_submitted"`
	ApprovedForEPA    string `json:"approved_for_epa"`
	ProjectStartDate  string `json:"project_start_date"`
	ProjectDeadline   string `json:"project_deadline_date"`
	FirstAttemptDate  string `json:"first_attempt_date"`
	SecondAttemptDate string `json:"second_attempt_date"`
	OverallGrade      string `json:"overall_grade"`
	GradeDate         string `json:"grade_date"`
}

// RecordResponse is the outward shape of a record, derived metrics included.
type RecordResponse struct {
	ID                string `json:"id"`
	ACE360ID          int64  `json:"ace360_id"`
	Status            string `json:"status,omitempty"`
	GatewaySubmitted  string `json:"gateway_submitted,omitempty"`
	ApprovedForEPA    string `json:"approved_for_epa,omitempty"`
	ProjectStartDate  string `json:"project_start_date,omitempty"`
	ProjectDeadline   string `json:"project_deadline_date,omitempty"`
	FirstAttemptDate  string `json:"first_attempt_date,omitempty"`
	SecondAttemptDate string `json:"second_attempt_date,omitempty"`
	OverallGrade      string `json:"overall_grade,omitempty"`
	GradeDate         string `json:"grade_date,omitempty"`
	VarianceDays      *int   `json:"variance_days,omitempty"`
	EPAWindowClosure  string `json:"epa_window_closure,omitempty"`
	WithinEPAWindow   string `json:"within_epa_window,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// NewRecordResponse maps an entity onto the response shape.
func NewRecordResponse(r *models.ApprenticeRecord) RecordResponse {
	resp := RecordResponse{
		ID:                r.ID,
		ACE360ID:          r.ACE360ID,
		Status:            derefString(r.Status),
		GatewaySubmitted:  formatDate(r.GatewaySubmitted),
		ApprovedForEPA:    formatDate(r.ApprovedForEPA),
		ProjectStartDate:  formatDate(r.ProjectStartDate),
		ProjectDeadline:   formatDate(r.ProjectDeadline),
		FirstAttemptDate:  formatDate(r.FirstAttemptDate),
		SecondAttemptDate: formatDate(r.SecondAttemptDate),
		OverallGrade:      derefString(r.OverallGrade),
		GradeDate:         formatDate(r.GradeDate),
		VarianceDays:      r.VarianceDays(),
		EPAWindowClosure:  formatDate(r.EPAWindowClosure()),
		WithinEPAWindow:   derefString(r.WithinEPAWindow()),
		CreatedAt:         r.CreatedAt.UTC().Format(time.RFC3339),
	}
	return resp
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
