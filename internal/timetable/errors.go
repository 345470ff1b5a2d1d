package timetable

import "fmt"

// ValidationError reports malformed time configuration. It is fatal for the
// affected class: no allocation runs for it.
type ValidationError struct {
	ClassID string  `json:"classId,omitempty"`
	Weekday Weekday `json:"weekday,omitempty"`
	Field   string  `json:"field"`
	Reason  string  `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	prefix := e.Field
	if e.Weekday != 0 {
		prefix = e.Weekday.String() + " " + prefix
	}
	if e.ClassID != "" {
		prefix = "class " + e.ClassID + ": " + prefix
	}
	return fmt.Sprintf("%s: %s", prefix, e.Reason)
}

func invalid(classID string, day Weekday, field, format string, args ...any) *ValidationError {
	return &ValidationError{ClassID: classID, Weekday: day, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ShortfallReason explains why periods could not be placed.
type ShortfallReason string

const (
	// ReasonCapacity means the class week ran out of usable slots.
	ReasonCapacity ShortfallReason = "capacity"
	// ReasonTeacherConflict means free class slots remained but the teacher
	// was committed elsewhere at every one of them.
	ReasonTeacherConflict ShortfallReason = "teacher_conflict"
)

// UnderAllocationError reports a subject that received fewer periods than it
// needs. It is non-fatal; the partial schedule is still produced.
type UnderAllocationError struct {
	ClassID      string          `json:"classId"`
	SubjectID    string          `json:"subjectId"`
	TeacherID    string          `json:"teacherId"`
	PeriodsShort int             `json:"periodsShort"`
	Reason       ShortfallReason `json:"reason"`
}

func (e *UnderAllocationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("class %s: subject %s is %d period(s) short (%s)", e.ClassID, e.SubjectID, e.PeriodsShort, e.Reason)
}

// IsTeacherConflict reports whether the shortfall is caused only by teacher
// contention.
func (e *UnderAllocationError) IsTeacherConflict() bool {
	return e != nil && e.Reason == ReasonTeacherConflict
}
