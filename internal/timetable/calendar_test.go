package timetable

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeacherCalendarReserve(t *testing.T) {
	cal := NewTeacherCalendar()

	require.True(t, cal.Reserve("T1", Monday, span("08:00", "08:40"), "10A"))
	assert.False(t, cal.Reserve("T1", Monday, span("08:00", "08:40"), "10B"), "same slot")
	assert.False(t, cal.Reserve("T1", Monday, span("08:20", "09:00"), "10B"), "overlapping bell times")
	assert.True(t, cal.Reserve("T1", Monday, span("08:40", "09:20"), "10B"), "adjacent slot")
	assert.True(t, cal.Reserve("T1", Tuesday, span("08:00", "08:40"), "10B"), "other weekday")
	assert.True(t, cal.Reserve("T2", Monday, span("08:00", "08:40"), "10B"), "other teacher")

	class, busy := cal.OccupiedBy("T1", Monday, span("08:30", "08:35"))
	assert.True(t, busy)
	assert.Equal(t, "10A", class)
	assert.Equal(t, 4, cal.Len())
}

func TestTeacherCalendarRelease(t *testing.T) {
	cal := NewTeacherCalendar()
	slot := span("08:00", "08:40")
	require.True(t, cal.Reserve("T1", Monday, slot, "10A"))

	assert.False(t, cal.Release("T1", Monday, slot, "10B"))
	assert.True(t, cal.Release("T1", Monday, slot, "10A"))
	assert.True(t, cal.IsFree("T1", Monday, slot))
	assert.Zero(t, cal.Len())
}

func TestTeacherCalendarReservationsOrdered(t *testing.T) {
	cal := NewTeacherCalendar()
	cal.Reserve("T2", Monday, span("08:00", "08:40"), "10A")
	cal.Reserve("T1", Tuesday, span("08:00", "08:40"), "10A")
	cal.Reserve("T1", Monday, span("09:00", "09:40"), "10A")
	cal.Reserve("T1", Monday, span("08:00", "08:40"), "10B")

	got := cal.Reservations()
	require.Len(t, got, 4)
	assert.Equal(t, Reservation{TeacherID: "T1", Weekday: Monday, Interval: span("08:00", "08:40"), ClassID: "10B"}, got[0])
	assert.Equal(t, MustClock("09:00"), got[1].Interval.Start)
	assert.Equal(t, Tuesday, got[2].Weekday)
	assert.Equal(t, "T2", got[3].TeacherID)
}

func TestTeacherCalendarConcurrentReserve(t *testing.T) {
	cal := NewTeacherCalendar()
	slot := span("08:00", "08:40")

	var (
		wg      sync.WaitGroup
		granted int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if cal.Reserve("T1", Monday, slot, string(rune('A'+i%26))) {
				atomic.AddInt32(&granted, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), granted)
	assert.Equal(t, 1, cal.Len())
}

func TestCalendarFromSchedules(t *testing.T) {
	subject := func(start, end, teacher string) Block {
		return Block{Kind: KindSubject, TimeInterval: span(start, end), SubjectID: "math", TeacherID: teacher}
	}
	weeks := []WeeklySchedule{
		{ClassID: "10A", Days: []DaySchedule{{Weekday: Monday, Blocks: []Block{subject("08:00", "08:40", "T1")}}}},
		{ClassID: "10B", Days: []DaySchedule{{Weekday: Monday, Blocks: []Block{subject("08:40", "09:20", "T1")}}}},
	}
	cal, err := CalendarFromSchedules(weeks)
	require.NoError(t, err)
	assert.Equal(t, 2, cal.Len())

	weeks = append(weeks, WeeklySchedule{ClassID: "10C", Days: []DaySchedule{{Weekday: Monday, Blocks: []Block{subject("08:20", "09:00", "T1")}}}})
	_, err = CalendarFromSchedules(weeks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "double-booked")
}
