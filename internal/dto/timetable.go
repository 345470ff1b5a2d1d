package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable/internal/timetable"
)

// SubjectLoadPayload carries the academic load facts of a subject.
type SubjectLoadPayload struct {
	SubjectID      string  `json:"subjectId" validate:"required"`
	AnnualHours    float64 `json:"annualHours"`
	Credits        float64 `json:"credits"`
	PracticalHours float64 `json:"practicalHours"`
	IsExamSubject  bool    `json:"isExamSubject"`
}

// IntervalPayload is a half-open "HH:MM" range.
type IntervalPayload struct {
	Start string `json:"start" validate:"required,hhmm"`
	End   string `json:"end" validate:"required,hhmm"`
}

// DayAnchorsPayload describes the bell times of one day. A missing lunch break
// means the day has none.
type DayAnchorsPayload struct {
	Start          string           `json:"start" validate:"required,hhmm"`
	End            string           `json:"end" validate:"required,hhmm"`
	MorningBreak   IntervalPayload  `json:"morningBreak"`
	LunchBreak     *IntervalPayload `json:"lunchBreak,omitempty" validate:"omitempty"`
	AfternoonBreak *IntervalPayload `json:"afternoonBreak,omitempty" validate:"omitempty"`
}

// DayConfigPayload binds anchors to a weekday (1=Monday .. 7=Sunday).
type DayConfigPayload struct {
	Weekday int `json:"weekday" validate:"required,min=1,max=7"`
	DayAnchorsPayload
}

// ClassConfigPayload is the explicit week of one class.
type ClassConfigPayload struct {
	ClassID string             `json:"classId" validate:"required"`
	Days    []DayConfigPayload `json:"days" validate:"required,min=1,dive"`
}

// ClassOverridePayload replaces school days for a group of classes.
type ClassOverridePayload struct {
	AppliesTo []string           `json:"appliesTo" validate:"required,min=1,dive,required"`
	Days      []DayConfigPayload `json:"days" validate:"required,min=1,dive"`
}

// SchoolConfigPayload is the default week shared by classes without an
// explicit configuration.
type SchoolConfigPayload struct {
	Days      []DayConfigPayload     `json:"days" validate:"required,min=1,dive"`
	Overrides []ClassOverridePayload `json:"overrides" validate:"omitempty,dive"`
}

// ForbiddenWindowPayload blocks scheduling; an empty class id applies school-wide.
type ForbiddenWindowPayload struct {
	ClassID string `json:"classId"`
	Weekday int    `json:"weekday" validate:"required,min=1,max=7"`
	Start   string `json:"start" validate:"required,hhmm"`
	End     string `json:"end" validate:"required,hhmm"`
	Label   string `json:"label"`
}

// AssignmentPayload binds a teacher to a subject within a class.
type AssignmentPayload struct {
	TeacherID string `json:"teacherId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
	ClassID   string `json:"classId" validate:"required"`
}

// GenerateTimetableRequest instructs the engine to build the week of every
// class of a school. When neither School nor Classes is given the default
// school week is used.
type GenerateTimetableRequest struct {
	SchoolID      string                   `json:"schoolId" validate:"required"`
	TermID        string                   `json:"termId" validate:"required"`
	ExamTerm      bool                     `json:"examTerm"`
	PeriodMinutes int                      `json:"periodMinutes" validate:"omitempty,min=10,max=120"`
	Subjects      []SubjectLoadPayload     `json:"subjects" validate:"required,min=1,dive"`
	School        *SchoolConfigPayload     `json:"school,omitempty" validate:"omitempty"`
	Classes       []ClassConfigPayload     `json:"classes" validate:"omitempty,dive"`
	Forbidden     []ForbiddenWindowPayload `json:"forbidden" validate:"omitempty,dive"`
	Assignments   []AssignmentPayload      `json:"assignments" validate:"required,min=1,dive"`
}

// ClassifySubjectsRequest asks for weekly period counts only.
type ClassifySubjectsRequest struct {
	ExamTerm bool                 `json:"examTerm"`
	Subjects []SubjectLoadPayload `json:"subjects" validate:"required,min=1,dive"`
}

// ClassifySubjectsResponse lists subjects annotated with weekly periods.
type ClassifySubjectsResponse struct {
	Subjects []timetable.ClassifiedSubject `json:"subjects"`
}

// TimetableRunSummary aggregates the outcome of a run.
type TimetableRunSummary struct {
	Classes            int `json:"classes"`
	ScheduledPeriods   int `json:"scheduledPeriods"`
	ShortPeriods       int `json:"shortPeriods"`
	ValidationFailures int `json:"validationFailures"`
}

// TimetableRunResponse is a generated, not yet saved run.
type TimetableRunResponse struct {
	RunID         string                        `json:"runId"`
	SchoolID      string                        `json:"schoolId"`
	TermID        string                        `json:"termId"`
	ExamTerm      bool                          `json:"examTerm"`
	PeriodMinutes int                           `json:"periodMinutes"`
	Subjects      []timetable.ClassifiedSubject `json:"subjects"`
	Schedules     []timetable.WeeklySchedule    `json:"schedules"`
	Diagnostics   timetable.Diagnostics         `json:"diagnostics"`
	Summary       TimetableRunSummary           `json:"summary"`
	CreatedAt     time.Time                     `json:"createdAt"`
	ExpiresAt     time.Time                     `json:"expiresAt"`
}

// RebalanceTimetableRequest changes the anchors of one class day in a run.
// Pinned lists "HH:MM" starts of subject periods to keep in place.
type RebalanceTimetableRequest struct {
	ClassID   string                   `json:"classId" validate:"required"`
	Weekday   int                      `json:"weekday" validate:"required,min=1,max=7"`
	Day       DayAnchorsPayload        `json:"day"`
	Forbidden []ForbiddenWindowPayload `json:"forbidden" validate:"omitempty,dive"`
	Pinned    []string                 `json:"pinned" validate:"omitempty,dive,hhmm"`
}

// RebalanceTimetableResponse returns the rebuilt day.
type RebalanceTimetableResponse struct {
	RunID      string                            `json:"runId"`
	ClassID    string                            `json:"classId"`
	Day        timetable.DaySchedule             `json:"day"`
	Shortfalls []*timetable.UnderAllocationError `json:"shortfalls"`
}

// SaveTimetableRequest persists a generated run as a draft version.
type SaveTimetableRequest struct {
	Meta map[string]any `json:"meta"`
}

// SavedTimetableResponse describes a stored version.
type SavedTimetableResponse struct {
	ID       string `json:"id"`
	Version  int    `json:"version"`
	Status   string `json:"status"`
	Blocks   int    `json:"blocks"`
	SchoolID string `json:"schoolId"`
	TermID   string `json:"termId"`
}

// TimetableQuery filters saved versions by school and term.
type TimetableQuery struct {
	SchoolID string `form:"schoolId" json:"schoolId" validate:"required"`
	TermID   string `form:"termId" json:"termId" validate:"required"`
}

// ExportTimetableQuery selects the class and output format of an export.
type ExportTimetableQuery struct {
	ClassID string `form:"classId" json:"classId" validate:"required"`
	Format  string `form:"format" json:"format" validate:"omitempty,max=8"`
}

// DefaultConfigQuery picks a five or six day week.
type DefaultConfigQuery struct {
	Days int `form:"days" json:"days" validate:"omitempty,oneof=5 6"`
}

// ArchiveLink points at the archived PDF of one class of a published version.
type ArchiveLink struct {
	ClassID   string     `json:"classId"`
	Ready     bool       `json:"ready"`
	URL       string     `json:"url,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
