package timetable

import "sort"

// ClassSubject is one subject to place in a class, with the teacher assigned
// to it and its required weekly periods.
type ClassSubject struct {
	SubjectID     string `json:"subjectId"`
	TeacherID     string `json:"teacherId"`
	WeeklyPeriods int    `json:"weeklyPeriods"`
}

// Allocation is the allocator's output for one class: subject blocks per
// weekday plus any shortfalls.
type Allocation struct {
	ClassID    string
	Placed     map[Weekday][]Block
	Shortfalls []*UnderAllocationError
}

// Allocator places subject periods into class grids, reserving teachers in a
// shared TeacherCalendar.
type Allocator struct {
	calendar *TeacherCalendar
	// splitRuns lets a day hold more than one run of a subject. Only
	// rebalancing sets it, since a single day has nowhere to carry to.
	splitRuns bool
}

// NewAllocator binds an allocator to the run's calendar.
func NewAllocator(calendar *TeacherCalendar) *Allocator {
	if calendar == nil {
		calendar = NewTeacherCalendar()
	}
	return &Allocator{calendar: calendar}
}

type classState struct {
	classID string
	grids   []DayGrid
	used    [][]bool
	placed  [][]Block
	limit   int
}

// dayRun is the contiguous slot range a subject occupies on one day.
type dayRun struct {
	first, last int
	present     bool
}

type placement struct {
	subject  ClassSubject
	runs     []dayRun
	tried    [][]bool
	attempts int
}

// Allocate places every subject of the class. Subjects go in descending
// weekly-period order (ties by subject id). Each subject's periods are spread
// evenly across the grid's weekdays with the remainder on the earliest days;
// on a day the periods form one contiguous run, and whatever does not fit
// carries to the next weekday, wrapping once. The wrap first extends existing
// runs, then takes any free slot of the week. A single-day grid splits its
// run only for rebalancing. Exhausting the week yields an UnderAllocationError, never a failure.
func (a *Allocator) Allocate(classID string, grids []DayGrid, subjects []ClassSubject) Allocation {
	st := &classState{
		classID: classID,
		grids:   grids,
		used:    make([][]bool, len(grids)),
		placed:  make([][]Block, len(grids)),
	}
	for i, grid := range grids {
		st.used[i] = make([]bool, len(grid.Slots))
		st.limit += len(grid.Slots)
	}

	alloc := Allocation{ClassID: classID, Placed: make(map[Weekday][]Block, len(grids))}
	for _, subject := range orderSubjects(subjects) {
		short := a.placeSubject(st, subject)
		if short == 0 {
			continue
		}
		alloc.Shortfalls = append(alloc.Shortfalls, &UnderAllocationError{
			ClassID:      classID,
			SubjectID:    subject.SubjectID,
			TeacherID:    subject.TeacherID,
			PeriodsShort: short,
			Reason:       a.shortfallReason(st, subject),
		})
	}

	for i, grid := range grids {
		blocks := st.placed[i]
		sort.Slice(blocks, func(x, y int) bool { return blocks[x].Start < blocks[y].Start })
		alloc.Placed[grid.Weekday] = blocks
	}
	return alloc
}

func orderSubjects(subjects []ClassSubject) []ClassSubject {
	ordered := make([]ClassSubject, len(subjects))
	copy(ordered, subjects)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].WeeklyPeriods != ordered[j].WeeklyPeriods {
			return ordered[i].WeeklyPeriods > ordered[j].WeeklyPeriods
		}
		return ordered[i].SubjectID < ordered[j].SubjectID
	})
	return ordered
}

// placeSubject returns the number of periods it could not place.
func (a *Allocator) placeSubject(st *classState, subject ClassSubject) int {
	k := subject.WeeklyPeriods
	n := len(st.grids)
	if k <= 0 {
		return 0
	}
	if n == 0 {
		return k
	}

	p := &placement{
		subject: subject,
		runs:    make([]dayRun, n),
		tried:   make([][]bool, n),
	}
	for i, grid := range st.grids {
		p.tried[i] = make([]bool, len(grid.Slots))
	}

	base, remainder := k/n, k%n
	carry := 0
	for i := 0; i < n; i++ {
		need := base + carry
		if i < remainder {
			need++
		}
		carry = need - a.fillDay(st, p, i, need, a.splitRuns)
	}
	for i := 0; i < n && carry > 0; i++ {
		carry -= a.fillDay(st, p, i, carry, a.splitRuns)
	}
	if n > 1 {
		for i := 0; i < n && carry > 0; i++ {
			carry -= a.fillDay(st, p, i, carry, true)
		}
	}
	return carry
}

// fillDay places up to need periods on day i and returns how many it placed.
// With split set, a day whose run cannot grow starts another run at its
// earliest untried free slot.
func (a *Allocator) fillDay(st *classState, p *placement, i, need int, split bool) int {
	if need <= 0 {
		return 0
	}
	run := &p.runs[i]
	slots := st.grids[i].Slots
	placed := 0
	for placed < need {
		if run.present {
			if next := run.last + 1; next < len(slots) && adjacent(slots, run.last, next) && a.tryReserve(st, p, i, next) {
				run.last = next
				placed++
				continue
			}
			if prev := run.first - 1; prev >= 0 && adjacent(slots, prev, run.first) && a.tryReserve(st, p, i, prev) {
				run.first = prev
				placed++
				continue
			}
			if !split {
				break
			}
		}
		start := a.probe(st, p, i)
		if start < 0 {
			break
		}
		*run = dayRun{first: start, last: start, present: true}
		placed++
	}
	return placed
}

// probe reserves the earliest untried free slot of day i.
func (a *Allocator) probe(st *classState, p *placement, i int) int {
	for s := range st.grids[i].Slots {
		if p.attempts >= st.limit {
			return -1
		}
		if a.tryReserve(st, p, i, s) {
			return s
		}
	}
	return -1
}

func adjacent(slots []TimeInterval, earlier, later int) bool {
	return slots[earlier].End() == slots[later].Start
}

// tryReserve attempts slot s of day i once per subject. The attempt budget is
// the class's weekly slot count.
func (a *Allocator) tryReserve(st *classState, p *placement, i, s int) bool {
	if st.used[i][s] || p.tried[i][s] || p.attempts >= st.limit {
		return false
	}
	p.attempts++
	p.tried[i][s] = true

	grid := st.grids[i]
	slot := grid.Slots[s]
	if !a.calendar.Reserve(p.subject.TeacherID, grid.Weekday, slot, st.classID) {
		return false
	}
	st.used[i][s] = true
	st.placed[i] = append(st.placed[i], Block{
		Kind:         KindSubject,
		TimeInterval: slot,
		SubjectID:    p.subject.SubjectID,
		TeacherID:    p.subject.TeacherID,
	})
	return true
}

// shortfallReason is teacher_conflict only when free class slots remain and
// the teacher is busy at every one of them. Free slots the teacher could still
// take remain only on a single-day grid that may not split, and count as
// capacity.
func (a *Allocator) shortfallReason(st *classState, subject ClassSubject) ShortfallReason {
	free := 0
	for i, grid := range st.grids {
		for s, slot := range grid.Slots {
			if st.used[i][s] {
				continue
			}
			free++
			if a.calendar.IsFree(subject.TeacherID, grid.Weekday, slot) {
				return ReasonCapacity
			}
		}
	}
	if free == 0 {
		return ReasonCapacity
	}
	return ReasonTeacherConflict
}
