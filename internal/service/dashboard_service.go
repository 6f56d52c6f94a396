package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/apprentix/epa-tracker-api/internal/dto"
	"github.com/apprentix/epa-tracker-api/internal/models"
	appErrors "github.com/apprentix/epa-tracker-api/pkg/errors"
)

type dashboardRecordRepository interface {
	ListUnpaged(ctx context.Context, filter models.RecordFilter) ([]models.ApprenticeRecord, error)
}

// DashboardService aggregates record metrics for the dashboard view.
type DashboardService struct {
	repo     dashboardRecordRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs a DashboardService instance. The cache may
// be nil, in which case every call recomputes.
func NewDashboardService(repo dashboardRecordRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Metrics returns the aggregate dashboard payload, recomputed over the full
// record set or served from cache.
func (s *DashboardService) Metrics(ctx context.Context) (*dto.DashboardMetrics, error) {
	var cached dto.DashboardMetrics
	if hit, err := s.cache.Get(ctx, DashboardCacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	records, err := s.repo.ListUnpaged(ctx, models.RecordFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load records")
	}

	metrics := computeDashboardMetrics(records)
	if err := s.cache.Set(ctx, DashboardCacheKey, metrics, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache dashboard metrics", zap.Error(err))
	}
	return metrics, nil
}

func computeDashboardMetrics(records []models.ApprenticeRecord) *dto.DashboardMetrics {
	metrics := &dto.DashboardMetrics{TotalLearners: len(records)}

	var graded, passed int
	var distinction, merit, pass, fail int
	var windowDefined, withinWindow int
	var windowDaysTotal int
	var firstAttemptDefined, firstAttemptInWindow int
	var gatewayDefined, gatewayOnTime int

	for i := range records {
		r := &records[i]

		if r.OverallGrade != nil {
			graded++
			switch *r.OverallGrade {
			case models.GradeDistinction:
				distinction++
				passed++
			case models.GradeMerit:
				merit++
				passed++
			case models.GradePass:
				pass++
				passed++
			case models.GradeFail:
				fail++
			}
		}

		if within := r.WithinEPAWindow(); within != nil {
			windowDefined++
			if *within == "Yes" {
				withinWindow++
				windowDaysTotal += daysApart(*r.ApprovedForEPA, *r.GradeDate)
			}
		}

		if r.FirstAttemptDate != nil && r.ApprovedForEPA != nil {
			firstAttemptDefined++
			if daysApart(*r.ApprovedForEPA, *r.FirstAttemptDate) <= models.EPAWindowDays {
				firstAttemptInWindow++
			}
		}

		if r.GatewaySubmitted != nil && r.ApprovedForEPA != nil {
			gatewayDefined++
			if countBusinessDays(*r.GatewaySubmitted, *r.ApprovedForEPA) <= models.GatewayTurnaroundDays {
				gatewayOnTime++
			}
		}
	}

	metrics.GradeDistribution = dto.GradeDistribution{
		Distinction: percentage(distinction, graded),
		Merit:       percentage(merit, graded),
		Pass:        percentage(pass, graded),
		Fail:        percentage(fail, graded),
	}
	metrics.PassRate = percentage(passed, graded)
	metrics.WithinWindowPct = percentage(withinWindow, windowDefined)
	metrics.BeyondWindowPct = percentage(windowDefined-withinWindow, windowDefined)
	metrics.FirstAttemptInWindowPct = percentage(firstAttemptInWindow, firstAttemptDefined)
	metrics.GatewayApprovalPct = percentage(gatewayOnTime, gatewayDefined)

	// averaged only over records that finished inside the window
	if withinWindow > 0 {
		mean := float64(windowDaysTotal) / float64(withinWindow)
		metrics.AvgDaysWithinWindow = round1(mean / float64(models.EPAWindowDays) * 100)
	}

	return metrics
}

// percentage returns count/total as a percentage rounded to one decimal
// place, or 0 when the denominator is empty.
func percentage(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round1(float64(count) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// countBusinessDays counts weekdays from start to end inclusive, returning 0
// when end precedes start.
func countBusinessDays(start, end time.Time) int {
	start = midnight(start)
	end = midnight(end)
	if end.Before(start) {
		return 0
	}
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

func daysApart(a, b time.Time) int {
	return int(midnight(b).Sub(midnight(a)).Hours() / 24)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
