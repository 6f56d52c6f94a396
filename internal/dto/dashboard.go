package dto

// GradeDistribution holds the percentage share per overall grade among
// graded records.
type GradeDistribution struct {
	Distinction float64 `json:"distinction"`
	Merit       float64 `json:"merit"`
	Pass        float64 `json:"pass"`
	Fail        float64 `json:"fail"`
}

// DashboardMetrics is the aggregate view recomputed over the full record
// set. Every percentage is rounded to one decimal place; empty denominators
// yield zero.
type DashboardMetrics struct {
	TotalLearners           int               `json:"total_learners"`
	GradeDistribution       GradeDistribution `json:"grade_distribution"`
	PassRate                float64           `json:"pass_rate"`
	WithinWindowPct         float64           `json:"within_window_pct"`
	BeyondWindowPct         float64           `json:"beyond_window_pct"`
	FirstAttemptInWindowPct float64           `json:"first_attempt_in_window_pct"`
	AvgDaysWithinWindow     float64           `json:"avg_days_within_window"`
	GatewayApprovalPct      float64           `json:"gateway_approval_pct"`
}

// ImportSummary reports the outcome of a bulk upload.
type ImportSummary struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// PendingRegistration is the admin view of a registration awaiting decision.
type PendingRegistration struct {
	ID             string `json:"id"`
	Forename       string `json:"forename"`
	Surname        string `json:"surname"`
	Email          string `json:"email"`
	JobTitle       string `json:"job_title"`
	RegisteredDate string `json:"registered_date"`
}
