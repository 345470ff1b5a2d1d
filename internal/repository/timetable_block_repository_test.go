package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable/internal/models"
)

func TestTimetableBlockRepositoryInsertBatch(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableBlockRepository(db)

	subject, teacher := "math", "t-1"
	blocks := []models.TimetableBlock{
		{RunID: "run-1", ClassID: "10A", DayOfWeek: 1, Position: 0, Kind: "subject", StartTime: "09:00", DurationMinutes: 40, SubjectID: &subject, TeacherID: &teacher},
		{RunID: "run-1", ClassID: "10A", DayOfWeek: 1, Position: 1, Kind: "free_time", StartTime: "09:40", DurationMinutes: 40},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_blocks")).
		WithArgs(sqlmock.AnyArg(), "run-1", "10A", 1, 0, "subject", "09:00", 40, "math", "t-1", nil, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_blocks")).
		WithArgs(sqlmock.AnyArg(), "run-1", "10A", 1, 1, "free_time", "09:40", 40, nil, nil, nil, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.InsertBatch(context.Background(), nil, blocks))
	assert.NotEmpty(t, blocks[0].ID)
	assert.False(t, blocks[1].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableBlockRepositoryInsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableBlockRepository(db)

	require.NoError(t, repo.InsertBatch(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableBlockRepositoryListByRun(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableBlockRepository(db)

	rows := sqlmock.NewRows([]string{"id", "run_id", "class_id", "day_of_week", "position", "kind", "start_time", "duration_minutes", "subject_id", "teacher_id", "label", "pinned", "created_at"}).
		AddRow("b-1", "run-1", "10A", 1, 0, "subject", "09:00", 40, "math", "t-1", nil, false, time.Now()).
		AddRow("b-2", "run-1", "10A", 1, 1, "break", "10:20", 20, nil, nil, "Morning break", false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_blocks WHERE run_id = $1 ORDER BY class_id ASC, day_of_week ASC, position ASC")).
		WithArgs("run-1").
		WillReturnRows(rows)

	blocks, err := repo.ListByRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.NotNil(t, blocks[0].SubjectID)
	assert.Equal(t, "math", *blocks[0].SubjectID)
	assert.Nil(t, blocks[1].TeacherID)
	require.NotNil(t, blocks[1].Label)
	assert.Equal(t, "Morning break", *blocks[1].Label)
	assert.NoError(t, mock.ExpectationsWereMet())
}
