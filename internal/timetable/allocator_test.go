package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func morningOnlyGrid(t *testing.T, day Weekday) DayGrid {
	t.Helper()
	grid, err := BuildDayGrid("10A", day, DayTimeConfig{
		Start:        MustClock("08:00"),
		End:          MustClock("12:00"),
		MorningBreak: span("10:00", "10:20"),
	}, nil, 40)
	require.NoError(t, err)
	return grid
}

func TestAllocatorSingleDayScenario(t *testing.T) {
	grid := morningOnlyGrid(t, Monday)
	cal := NewTeacherCalendar()

	alloc := NewAllocator(cal).Allocate("10A", []DayGrid{grid}, []ClassSubject{{SubjectID: "math", TeacherID: "T", WeeklyPeriods: 4}})
	day := AssembleDay(grid, alloc.Placed[Monday])
	require.NoError(t, day.Validate())

	want := []Block{
		{Kind: KindSubject, TimeInterval: span("08:00", "08:40"), SubjectID: "math", TeacherID: "T", Order: 0},
		{Kind: KindSubject, TimeInterval: span("08:40", "09:20"), SubjectID: "math", TeacherID: "T", Order: 1},
		{Kind: KindSubject, TimeInterval: span("09:20", "10:00"), SubjectID: "math", TeacherID: "T", Order: 2},
		{Kind: KindBreak, TimeInterval: span("10:00", "10:20"), Label: "Morning break", Order: 3},
		{Kind: KindFreeTime, TimeInterval: span("10:20", "12:00"), Label: "Free time", Order: 4},
	}
	assert.Equal(t, want, day.Blocks)

	require.Len(t, alloc.Shortfalls, 1)
	assert.Equal(t, "math", alloc.Shortfalls[0].SubjectID)
	assert.Equal(t, 1, alloc.Shortfalls[0].PeriodsShort)
	assert.Equal(t, ReasonCapacity, alloc.Shortfalls[0].Reason)
	assert.Equal(t, 3, cal.Len())
}

func TestAllocatorCarriesToNextDay(t *testing.T) {
	grids := []DayGrid{morningOnlyGrid(t, Monday), morningOnlyGrid(t, Tuesday)}

	alloc := NewAllocator(nil).Allocate("10A", grids, []ClassSubject{{SubjectID: "math", TeacherID: "T", WeeklyPeriods: 7}})

	// Monday targets 4 but only 3 are contiguous; Tuesday takes 3 of its 4.
	// The wrap then opens a second run on Monday after the break.
	assert.Empty(t, alloc.Shortfalls)
	require.Len(t, alloc.Placed[Monday], 4)
	assert.Len(t, alloc.Placed[Tuesday], 3)
	assert.Equal(t, span("10:20", "11:00"), alloc.Placed[Monday][3].TimeInterval)
}

func TestAllocatorUsesSlotsAfterBreaksBeforeReportingShortfall(t *testing.T) {
	grids := []DayGrid{morningOnlyGrid(t, Monday), morningOnlyGrid(t, Tuesday)}
	require.Equal(t, 10, grids[0].SlotCount()+grids[1].SlotCount())
	cal := NewTeacherCalendar()

	alloc := NewAllocator(cal).Allocate("10A", grids, []ClassSubject{{SubjectID: "math", TeacherID: "T", WeeklyPeriods: 8}})

	assert.Empty(t, alloc.Shortfalls)
	assert.Len(t, alloc.Placed[Monday], 5)
	assert.Len(t, alloc.Placed[Tuesday], 3)
	assert.Equal(t, 8, cal.Len())
	for _, grid := range grids {
		day := AssembleDay(grid, alloc.Placed[grid.Weekday])
		assert.NoError(t, day.Validate())
	}
}

func TestAllocatorFillsFullWeekWithoutShortfall(t *testing.T) {
	school := DefaultSchoolWeek(5).Resolve("10A")
	grids, errs := BuildWeekGrid(school, nil, 40)
	require.Empty(t, errs)
	slots := 0
	for _, grid := range grids {
		slots += grid.SlotCount()
	}

	subjects := []ClassSubject{
		{SubjectID: "s1", TeacherID: "T1", WeeklyPeriods: 8},
		{SubjectID: "s2", TeacherID: "T2", WeeklyPeriods: 8},
		{SubjectID: "s3", TeacherID: "T3", WeeklyPeriods: 8},
		{SubjectID: "s4", TeacherID: "T4", WeeklyPeriods: 8},
		{SubjectID: "s5", TeacherID: "T5", WeeklyPeriods: 6},
		{SubjectID: "s6", TeacherID: "T6", WeeklyPeriods: 6},
	}
	needed := 0
	for _, subject := range subjects {
		needed += subject.WeeklyPeriods
	}
	require.LessOrEqual(t, needed, slots)

	alloc := NewAllocator(nil).Allocate("10A", grids, subjects)

	assert.Empty(t, alloc.Shortfalls)
	placed := 0
	for _, blocks := range alloc.Placed {
		placed += len(blocks)
	}
	assert.Equal(t, needed, placed)
}

func TestAllocatorSpreadsRemainderToEarliestDays(t *testing.T) {
	school := DefaultSchoolWeek(5).Resolve("10A")
	grids, errs := BuildWeekGrid(school, nil, 40)
	require.Empty(t, errs)

	alloc := NewAllocator(nil).Allocate("10A", grids, []ClassSubject{{SubjectID: "math", TeacherID: "T", WeeklyPeriods: 8}})

	require.Empty(t, alloc.Shortfalls)
	perDay := []int{}
	for _, grid := range grids {
		perDay = append(perDay, len(alloc.Placed[grid.Weekday]))
	}
	assert.Equal(t, []int{2, 2, 2, 1, 1}, perDay)
}

func TestAllocatorOrdersSubjectsByLoad(t *testing.T) {
	grid := morningOnlyGrid(t, Monday)

	alloc := NewAllocator(nil).Allocate("10A", []DayGrid{grid}, []ClassSubject{
		{SubjectID: "art", TeacherID: "T2", WeeklyPeriods: 1},
		{SubjectID: "math", TeacherID: "T1", WeeklyPeriods: 3},
		{SubjectID: "bio", TeacherID: "T3", WeeklyPeriods: 1},
	})

	require.Empty(t, alloc.Shortfalls)
	var order []string
	for _, block := range alloc.Placed[Monday] {
		order = append(order, block.SubjectID)
	}
	assert.Equal(t, []string{"math", "math", "math", "art", "bio"}, order)
}

func TestAllocatorTeacherConflict(t *testing.T) {
	cfg := DayTimeConfig{Start: MustClock("08:00"), End: MustClock("09:40"), MorningBreak: span("09:20", "09:40")}
	gridA, err := BuildDayGrid("10A", Monday, cfg, nil, 40)
	require.NoError(t, err)
	gridB, err := BuildDayGrid("10B", Monday, cfg, nil, 40)
	require.NoError(t, err)

	cal := NewTeacherCalendar()
	allocator := NewAllocator(cal)
	first := allocator.Allocate("10A", []DayGrid{gridA}, []ClassSubject{{SubjectID: "math", TeacherID: "T", WeeklyPeriods: 2}})
	second := allocator.Allocate("10B", []DayGrid{gridB}, []ClassSubject{{SubjectID: "physics", TeacherID: "T", WeeklyPeriods: 2}})

	assert.Empty(t, first.Shortfalls)
	require.Len(t, second.Shortfalls, 1)
	assert.Equal(t, 2, second.Shortfalls[0].PeriodsShort)
	assert.True(t, second.Shortfalls[0].IsTeacherConflict())
	assert.Empty(t, second.Placed[Monday])
}

func TestAllocatorTeacherConflictAcrossWeek(t *testing.T) {
	cfg := DayTimeConfig{Start: MustClock("08:00"), End: MustClock("09:40"), MorningBreak: span("09:20", "09:40")}
	var gridsA, gridsB []DayGrid
	for _, day := range []Weekday{Monday, Tuesday} {
		gridA, err := BuildDayGrid("10A", day, cfg, nil, 40)
		require.NoError(t, err)
		gridB, err := BuildDayGrid("10B", day, cfg, nil, 40)
		require.NoError(t, err)
		gridsA = append(gridsA, gridA)
		gridsB = append(gridsB, gridB)
	}

	allocator := NewAllocator(NewTeacherCalendar())
	first := allocator.Allocate("10A", gridsA, []ClassSubject{{SubjectID: "math", TeacherID: "T", WeeklyPeriods: 4}})
	second := allocator.Allocate("10B", gridsB, []ClassSubject{
		{SubjectID: "physics", TeacherID: "T", WeeklyPeriods: 2},
		{SubjectID: "art", TeacherID: "U", WeeklyPeriods: 1},
	})

	assert.Empty(t, first.Shortfalls)
	require.Len(t, second.Shortfalls, 1)
	assert.Equal(t, "physics", second.Shortfalls[0].SubjectID)
	assert.Equal(t, 2, second.Shortfalls[0].PeriodsShort)
	assert.Equal(t, ReasonTeacherConflict, second.Shortfalls[0].Reason)
}

func TestAllocatorStaggeredBellTimesNeverDoubleBook(t *testing.T) {
	gridA, err := BuildDayGrid("10A", Monday, DayTimeConfig{
		Start: MustClock("08:00"), End: MustClock("10:00"), MorningBreak: span("09:20", "09:40"),
	}, nil, 40)
	require.NoError(t, err)
	gridB, err := BuildDayGrid("10B", Monday, DayTimeConfig{
		Start: MustClock("08:20"), End: MustClock("10:20"), MorningBreak: span("09:40", "10:00"),
	}, nil, 40)
	require.NoError(t, err)

	allocator := NewAllocator(NewTeacherCalendar())
	allocator.Allocate("10A", []DayGrid{gridA}, []ClassSubject{{SubjectID: "math", TeacherID: "T", WeeklyPeriods: 2}})
	second := allocator.Allocate("10B", []DayGrid{gridB}, []ClassSubject{{SubjectID: "math", TeacherID: "T", WeeklyPeriods: 2}})

	require.Len(t, second.Shortfalls, 1)
	assert.Equal(t, ReasonTeacherConflict, second.Shortfalls[0].Reason)
}

func TestAllocatorZeroCapacityDayCarriesForward(t *testing.T) {
	empty, err := BuildDayGrid("10A", Monday, DayTimeConfig{
		Start: MustClock("08:00"), End: MustClock("08:30"), MorningBreak: span("08:00", "08:30"),
	}, nil, 40)
	require.NoError(t, err)
	require.Zero(t, empty.SlotCount())

	alloc := NewAllocator(nil).Allocate("10A", []DayGrid{empty, morningOnlyGrid(t, Tuesday)}, []ClassSubject{{SubjectID: "math", TeacherID: "T", WeeklyPeriods: 2}})

	assert.Empty(t, alloc.Shortfalls)
	assert.Empty(t, alloc.Placed[Monday])
	assert.Len(t, alloc.Placed[Tuesday], 2)
}
