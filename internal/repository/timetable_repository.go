package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable/internal/models"
)

const timetableRunColumns = `id, school_id, term_id, version, status, exam_term, period_minutes, meta, created_at, updated_at`

// TimetableRepository persists versioned school timetables.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// DB exposes the handle used to open transactions.
func (r *TimetableRepository) DB() *sqlx.DB {
	return r.db
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a run assigning the next version for the school-term tuple.
func (r *TimetableRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error {
	if run == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if run.SchoolID == "" || run.TermID == "" {
		return fmt.Errorf("school_id and term_id are required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.TimetableStatusDraft
	}
	if len(run.Meta) == 0 {
		run.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_runs WHERE school_id = $1 AND term_id = $2`
	if err := sqlx.GetContext(ctx, target, &run.Version, nextVersionQuery, run.SchoolID, run.TermID); err != nil {
		return fmt.Errorf("compute next timetable version: %w", err)
	}

	const insertQuery = `
INSERT INTO timetable_runs (id, school_id, term_id, version, status, exam_term, period_minutes, meta, created_at, updated_at)
VALUES (:id, :school_id, :term_id, :version, :status, :exam_term, :period_minutes, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, run); err != nil {
		return fmt.Errorf("insert timetable run: %w", err)
	}
	return nil
}

// ListBySchoolTerm returns all versions for the school-term tuple, newest first.
func (r *TimetableRepository) ListBySchoolTerm(ctx context.Context, schoolID, termID string) ([]models.TimetableRun, error) {
	const query = `SELECT ` + timetableRunColumns + `
FROM timetable_runs WHERE school_id = $1 AND term_id = $2 ORDER BY version DESC`
	var runs []models.TimetableRun
	if err := r.db.SelectContext(ctx, &runs, query, schoolID, termID); err != nil {
		return nil, fmt.Errorf("list timetable runs: %w", err)
	}
	return runs, nil
}

// FindByID loads a run by its identifier.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.TimetableRun, error) {
	const query = `SELECT ` + timetableRunColumns + ` FROM timetable_runs WHERE id = $1`
	var run models.TimetableRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// Delete removes a stored draft; published and archived versions are kept.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetable_runs WHERE id = $1 AND status = $2`
	result, err := r.db.ExecContext(ctx, query, id, models.TimetableStatusDraft)
	if err != nil {
		return fmt.Errorf("delete timetable run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable run rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus updates the status of a run.
func (r *TimetableRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error {
	const query = `UPDATE timetable_runs SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update timetable status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ArchivePublished moves every other published version of the school-term
// tuple to ARCHIVED.
func (r *TimetableRepository) ArchivePublished(ctx context.Context, exec sqlx.ExtContext, schoolID, termID, exceptID string) error {
	const query = `UPDATE timetable_runs SET status = $1, updated_at = $2
WHERE school_id = $3 AND term_id = $4 AND status = $5 AND id <> $6`
	if _, err := r.exec(exec).ExecContext(ctx, query, models.TimetableStatusArchived, time.Now().UTC(), schoolID, termID, models.TimetableStatusPublished, exceptID); err != nil {
		return fmt.Errorf("archive published timetables: %w", err)
	}
	return nil
}
