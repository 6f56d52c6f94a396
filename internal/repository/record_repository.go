package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/apprentix/epa-tracker-api/internal/models"
)

const recordColumns = `id, ace360_id, status, gateway_submitted, approved_for_epa, project_start_date,
       project_deadline_date, first_attempt_date, second_attempt_date, overall_grade, grade_date,
       created_at, updated_at`

// RecordRepository persists apprentice records.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs the repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create inserts a new apprentice record.
func (r *RecordRepository) Create(ctx context.Context, record *models.ApprenticeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO apprentice_records
	(id, ace360_id, status, gateway_submitted, approved_for_epa, project_start_date, project_deadline_date,
	 first_attempt_date, second_attempt_date, overall_grade, grade_date, created_at, updated_at)
	VALUES (:id, :ace360_id, :status, :gateway_submitted, :approved_for_epa, :project_start_date, :project_deadline_date,
	 :first_attempt_date, :second_attempt_date, :overall_grade, :grade_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// FindByID fetches a single record by identifier.
func (r *RecordRepository) FindByID(ctx context.Context, id string) (*models.ApprenticeRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM apprentice_records WHERE id = $1`, recordColumns)
	var record models.ApprenticeRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// ExistsByACE360ID reports whether a record with the given ACE360 identifier
// exists, optionally excluding one record id.
func (r *RecordRepository) ExistsByACE360ID(ctx context.Context, ace360ID int64, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM apprentice_records WHERE ace360_id = $1)`
	args := []interface{}{ace360ID}
	if excludeID != "" {
		query = `SELECT EXISTS(SELECT 1 FROM apprentice_records WHERE ace360_id = $1 AND id <> $2)`
		args = append(args, excludeID)
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("check ace360 id: %w", err)
	}
	return exists, nil
}

// List returns the filtered page of records (newest first) and the total
// count of matches.
func (r *RecordRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.ApprenticeRecord, int, error) {
	conditions, args := buildRecordConditions(filter)
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM apprentice_records" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf(`SELECT %s FROM apprentice_records%s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		recordColumns, where, pageSize, (page-1)*pageSize)

	var records []models.ApprenticeRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	return records, total, nil
}

// ListUnpaged returns every record matching the filter, newest first. Used
// for exports, dashboard aggregation, and derived-field filtering.
func (r *RecordRepository) ListUnpaged(ctx context.Context, filter models.RecordFilter) ([]models.ApprenticeRecord, error) {
	conditions, args := buildRecordConditions(filter)
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := fmt.Sprintf(`SELECT %s FROM apprentice_records%s ORDER BY created_at DESC, id DESC`, recordColumns, where)

	var records []models.ApprenticeRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Update replaces the mutable columns of a record.
func (r *RecordRepository) Update(ctx context.Context, record *models.ApprenticeRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE apprentice_records SET
	 ace360_id = :ace360_id, status = :status, gateway_submitted = :gateway_submitted,
	 approved_for_epa = :approved_for_epa, project_start_date = :project_start_date,
	 project_deadline_date = :project_deadline_date, first_attempt_date = :first_attempt_date,
	 second_attempt_date = :second_attempt_date, overall_grade = :overall_grade,
	 grade_date = :grade_date, updated_at = :updated_at
	 WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check record update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a record permanently.
func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM apprentice_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check record delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func buildRecordConditions(filter models.RecordFilter) ([]string, []interface{}) {
	conditions := make([]string, 0, 8)
	args := make([]interface{}, 0, 16)

	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Grade != "" {
		args = append(args, filter.Grade)
		conditions = append(conditions, fmt.Sprintf("overall_grade = $%d", len(args)))
	}

	ranges := []struct {
		column string
		rng    models.DateRange
	}{
		{"gateway_submitted", filter.Gateway},
		{"approved_for_epa", filter.Approved},
		{"project_start_date", filter.ProjectStart},
		{"project_deadline_date", filter.Deadline},
		{"first_attempt_date", filter.FirstAttempt},
		{"second_attempt_date", filter.SecondAttempt},
		{"grade_date", filter.GradeDate},
	}
	for _, item := range ranges {
		if item.rng.From != nil {
			args = append(args, *item.rng.From)
			conditions = append(conditions, fmt.Sprintf("%s >= $%d", item.column, len(args)))
		}
		if item.rng.To != nil {
			args = append(args, *item.rng.To)
			conditions = append(conditions, fmt.Sprintf("%s <= $%d", item.column, len(args)))
		}
	}
	return conditions, args
}
