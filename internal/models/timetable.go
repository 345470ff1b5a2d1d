package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableStatus represents lifecycle phases for saved timetables.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "DRAFT"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
	TimetableStatusArchived  TimetableStatus = "ARCHIVED"
)

// TimetableRun is a saved, versioned school timetable for a school-term pair.
type TimetableRun struct {
	ID            string          `db:"id" json:"id"`
	SchoolID      string          `db:"school_id" json:"school_id"`
	TermID        string          `db:"term_id" json:"term_id"`
	Version       int             `db:"version" json:"version"`
	Status        TimetableStatus `db:"status" json:"status"`
	ExamTerm      bool            `db:"exam_term" json:"exam_term"`
	PeriodMinutes int             `db:"period_minutes" json:"period_minutes"`
	Meta          types.JSONText  `db:"meta" json:"meta"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// TimetableBlock is one stored block of a class day.
type TimetableBlock struct {
	ID              string    `db:"id" json:"id"`
	RunID           string    `db:"run_id" json:"run_id"`
	ClassID         string    `db:"class_id" json:"class_id"`
	DayOfWeek       int       `db:"day_of_week" json:"day_of_week"`
	Position        int       `db:"position" json:"position"`
	Kind            string    `db:"kind" json:"kind"`
	StartTime       string    `db:"start_time" json:"start_time"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	SubjectID       *string   `db:"subject_id" json:"subject_id,omitempty"`
	TeacherID       *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Label           *string   `db:"label" json:"label,omitempty"`
	Pinned          bool      `db:"pinned" json:"pinned"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
