package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable/internal/models"
)

// TimetableBlockRepository manages the blocks of saved timetables.
type TimetableBlockRepository struct {
	db *sqlx.DB
}

// NewTimetableBlockRepository builds repository.
func NewTimetableBlockRepository(db *sqlx.DB) *TimetableBlockRepository {
	return &TimetableBlockRepository{db: db}
}

func (r *TimetableBlockRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch stores blocks for a run.
func (r *TimetableBlockRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.TimetableBlock) error {
	if len(blocks) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO timetable_blocks (id, run_id, class_id, day_of_week, position, kind, start_time, duration_minutes, subject_id, teacher_id, label, pinned, created_at)
VALUES (:id, :run_id, :class_id, :day_of_week, :position, :kind, :start_time, :duration_minutes, :subject_id, :teacher_id, :label, :pinned, :created_at)`

	for i := range blocks {
		block := &blocks[i]
		if block.ID == "" {
			block.ID = uuid.NewString()
		}
		if block.CreatedAt.IsZero() {
			block.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, block); err != nil {
			return fmt.Errorf("insert timetable block: %w", err)
		}
	}
	return nil
}

// ListByRun returns blocks ordered by class, day and position.
func (r *TimetableBlockRepository) ListByRun(ctx context.Context, runID string) ([]models.TimetableBlock, error) {
	const query = `SELECT id, run_id, class_id, day_of_week, position, kind, start_time, duration_minutes, subject_id, teacher_id, label, pinned, created_at
FROM timetable_blocks WHERE run_id = $1 ORDER BY class_id ASC, day_of_week ASC, position ASC`
	var blocks []models.TimetableBlock
	if err := r.db.SelectContext(ctx, &blocks, query, runID); err != nil {
		return nil, fmt.Errorf("list timetable blocks: %w", err)
	}
	return blocks, nil
}
