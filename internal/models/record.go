package models

import "time"

// EPAWindowDays is the fixed evaluation window: grading must complete within
// 12 weeks of EPA approval.
const EPAWindowDays = 84

// GatewayTurnaroundDays is the business-day budget for approving a submitted
// gateway.
const GatewayTurnaroundDays = 5

// Statuses an apprentice record may carry, in programme order.
var RecordStatuses = []string{
	"In Training",
	"Gateway in Progress",
	"Gateway Evidence Complete",
	"Gateway Submitted",
	"Denied EPA",
	"Approved for EPA",
	"EPA in Progress",
	"EPA Evidence Complete",
	"EPA Failed",
	"EPA Passed",
}

// Overall grades awarded at end-point assessment.
const (
	GradeDistinction = "Distinction"
	GradeMerit       = "Merit"
	GradePass        = "Pass"
	GradeFail        = "Fail"
)

// OverallGrades lists the valid grade values.
var OverallGrades = []string{GradeDistinction, GradeMerit, GradePass, GradeFail}

// ValidStatus reports whether s is one of the known record statuses.
func ValidStatus(s string) bool {
	for _, v := range RecordStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ValidGrade reports whether g is one of the known overall grades.
func ValidGrade(g string) bool {
	for _, v := range OverallGrades {
		if v == g {
			return true
		}
	}
	return false
}

// ApprenticeRecord tracks one apprentice through gateway and end-point
// assessment. All date fields are optional; derived scheduling metrics are
// computed from them and never stored.
type ApprenticeRecord struct {
	ID                string     `db:"id" json:"id"`
	ACE360ID          int64      `db:"ace360_id" json:"ace360_id"`
	Status            *string    `db:"status" json:"status,omitempty"`
	GatewaySubmitted  *time.Time `db:"gateway_submitted" json:"gateway_submitted,omitempty"`
	ApprovedForEPA    *time.Time `db:"approved_for_epa" json:"approved_for_epa,omitempty"`
	ProjectStartDate  *time.Time `db:"project_start_date" json:"project_start_date,omitempty"`
	ProjectDeadline   *time.Time `db:"project_deadline_date" json:"project_deadline_date,omitempty"`
	FirstAttemptDate  *time.Time `db:"first_attempt_date" json:"first_attempt_date,omitempty"`
	SecondAttemptDate *time.Time `db:"second_attempt_date" json:"second_attempt_date,omitempty"`
	OverallGrade      *string    `db:"overall_grade" json:"overall_grade,omitempty"`
	GradeDate         *time.Time `db:"grade_date" json:"grade_date,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// VarianceDays returns the signed day count between the first attempt and the
// project deadline, or nil when either date is unset.
func (r *ApprenticeRecord) VarianceDays() *int {
	if r.FirstAttemptDate == nil || r.ProjectDeadline == nil {
		return nil
	}
	days := daysBetween(*r.ProjectDeadline, *r.FirstAttemptDate)
	return &days
}

// EPAWindowClosure returns the date the evaluation window closes, or nil when
// the record has no EPA approval date.
func (r *ApprenticeRecord) EPAWindowClosure() *time.Time {
	if r.ApprovedForEPA == nil {
		return nil
	}
	closure := r.ApprovedForEPA.AddDate(0, 0, EPAWindowDays)
	return &closure
}

// WithinEPAWindow reports "Yes" when grading completed within the window,
// "No" when it overran, and nil when either date is unset.
func (r *ApprenticeRecord) WithinEPAWindow() *string {
	if r.GradeDate == nil || r.ApprovedForEPA == nil {
		return nil
	}
	answer := "No"
	if daysBetween(*r.ApprovedForEPA, *r.GradeDate) <= EPAWindowDays {
		answer = "Yes"
	}
	return &answer
}

// daysBetween returns the signed number of calendar days from a to b,
// ignoring the time-of-day component.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// DateRange bounds one date column in a record listing.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// RecordFilter captures listing criteria. The Window filter operates on the
// derived WithinEPAWindow value and is applied after the database query.
type RecordFilter struct {
	Status        string
	Grade         string
	Window        string
	Gateway       DateRange
	Approved      DateRange
	ProjectStart  DateRange
	Deadline      DateRange
	FirstAttempt  DateRange
	SecondAttempt DateRange
	GradeDate     DateRange
	Page          int
	PageSize      int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
