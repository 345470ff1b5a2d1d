package timetable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rebalanceFixture(t *testing.T) RunResult {
	t.Helper()
	school := DefaultSchoolWeek(5)
	result := Run(RunInput{
		School: &school,
		Subjects: []SubjectLoad{
			{SubjectID: "math", AnnualHours: 110, Credits: 65},
			{SubjectID: "bio", AnnualHours: 20},
			{SubjectID: "english", AnnualHours: 50},
		},
		Assignments: []TeacherAssignment{
			{ClassID: "10A", SubjectID: "math", TeacherID: "T1"},
			{ClassID: "10A", SubjectID: "bio", TeacherID: "T2"},
			{ClassID: "10B", SubjectID: "english", TeacherID: "T3"},
		},
	})
	require.True(t, result.Diagnostics.Empty())
	return result
}

func reservationsOf(cal *TeacherCalendar, teacherID string) []Reservation {
	var out []Reservation
	for _, r := range cal.Reservations() {
		if r.TeacherID == teacherID {
			out = append(out, r)
		}
	}
	return out
}

func TestRebalanceMovedBreak(t *testing.T) {
	result := rebalanceFixture(t)
	week, _ := result.Schedule("10A")
	other, _ := result.Schedule("10B")
	otherReservations := reservationsOf(result.Calendar, "T3")

	monday, _ := week.Day(Monday)
	subjects := monday.SubjectBlocks()
	require.Len(t, subjects, 3)
	assert.Equal(t, span("10:40", "11:20"), subjects[2].TimeInterval)

	cfg := DefaultDay()
	cfg.MorningBreak = span("10:00", "10:20")
	out, err := NewRebalancer(result.Calendar).Rebalance(RebalanceRequest{Schedule: week, Weekday: Monday, Config: cfg})
	require.NoError(t, err)

	require.NoError(t, out.Day.Validate())
	assert.Empty(t, out.Shortfalls)
	placed := out.Day.SubjectBlocks()
	require.Len(t, placed, 3)
	assert.Equal(t, "math", placed[0].SubjectID)
	assert.Equal(t, span("09:00", "09:40"), placed[0].TimeInterval)
	assert.Equal(t, "math", placed[1].SubjectID)
	assert.Equal(t, span("10:20", "11:00"), placed[1].TimeInterval)
	assert.Equal(t, "bio", placed[2].SubjectID)
	assert.Equal(t, span("11:00", "11:40"), placed[2].TimeInterval)

	for _, day := range week.Days {
		if day.Weekday == Monday {
			continue
		}
		after, ok := out.Schedule.Day(day.Weekday)
		require.True(t, ok)
		assert.Equal(t, day, after, "%s must not change", day.Weekday)
	}
	assert.Equal(t, week.CountSubject("math"), out.Schedule.CountSubject("math"))
	assert.Equal(t, otherReservations, reservationsOf(result.Calendar, "T3"))
	assert.Equal(t, other, result.Schedules[1])

	assert.False(t, result.Calendar.IsFree("T1", Monday, span("10:20", "11:00")))
	assert.True(t, result.Calendar.IsFree("T1", Monday, span("09:40", "10:00")))
}

func TestRebalanceKeepsPinnedBlocks(t *testing.T) {
	result := rebalanceFixture(t)
	week, _ := result.Schedule("10A")

	windows := []ForbiddenWindow{{ClassID: "10A", Weekday: Monday, TimeInterval: span("14:00", "15:20")}}
	out, err := NewRebalancer(result.Calendar).Rebalance(RebalanceRequest{
		Schedule:  week,
		Weekday:   Monday,
		Config:    DefaultDay(),
		Forbidden: windows,
		Pinned:    []Clock{MustClock("09:40")},
	})
	require.NoError(t, err)
	require.NoError(t, out.Day.Validate())

	placed := out.Day.SubjectBlocks()
	require.Len(t, placed, 3)
	assert.Equal(t, "bio", placed[0].SubjectID)
	assert.Equal(t, span("09:00", "09:40"), placed[0].TimeInterval)
	assert.True(t, placed[1].Pinned)
	assert.Equal(t, span("09:40", "10:20"), placed[1].TimeInterval)
	assert.Equal(t, "math", placed[2].SubjectID)
	assert.Equal(t, span("10:40", "11:20"), placed[2].TimeInterval)

	var gaps int
	for _, block := range out.Day.Blocks {
		if block.Kind == KindForbiddenGap {
			gaps++
		}
	}
	assert.Equal(t, 1, gaps)
}

func TestRebalanceRejectsDisplacedPin(t *testing.T) {
	result := rebalanceFixture(t)
	week, _ := result.Schedule("10A")
	before := result.Calendar.Len()

	cfg := DefaultDay()
	cfg.MorningBreak = span("10:00", "10:20")
	_, err := NewRebalancer(result.Calendar).Rebalance(RebalanceRequest{
		Schedule: week,
		Weekday:  Monday,
		Config:   cfg,
		Pinned:   []Clock{MustClock("09:40")},
	})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "pinned", verr.Field)
	assert.Equal(t, before, result.Calendar.Len())
	assert.False(t, result.Calendar.IsFree("T1", Monday, span("09:00", "09:40")))
}

func TestRebalanceUnknownDay(t *testing.T) {
	result := rebalanceFixture(t)
	week, _ := result.Schedule("10A")

	_, err := NewRebalancer(result.Calendar).Rebalance(RebalanceRequest{Schedule: week, Weekday: Saturday, Config: DefaultDay()})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "weekday", verr.Field)
}

func TestRebalanceReportsLostCapacity(t *testing.T) {
	result := rebalanceFixture(t)
	week, _ := result.Schedule("10A")

	cfg := DayTimeConfig{Start: MustClock("09:00"), End: MustClock("10:20"), MorningBreak: span("09:40", "10:00")}
	out, err := NewRebalancer(result.Calendar).Rebalance(RebalanceRequest{Schedule: week, Weekday: Monday, Config: cfg})
	require.NoError(t, err)
	require.NoError(t, out.Day.Validate())

	assert.Len(t, out.Day.SubjectBlocks(), 1)
	require.Len(t, out.Shortfalls, 2)
	var short int
	for _, s := range out.Shortfalls {
		short += s.PeriodsShort
		assert.Equal(t, ReasonCapacity, s.Reason)
	}
	assert.Equal(t, 2, short)
}
