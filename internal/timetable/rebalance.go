package timetable

import "sort"

// RebalanceRequest describes a changed anchor on one class day.
type RebalanceRequest struct {
	Schedule  WeeklySchedule
	Weekday   Weekday
	Config    DayTimeConfig
	Forbidden []ForbiddenWindow
	// Pinned lists start times of subject blocks the caller wants held in
	// place in addition to blocks already flagged Pinned.
	Pinned       []Clock
	PeriodLength int
}

// RebalanceResult carries the rebuilt day and the week it was spliced into.
type RebalanceResult struct {
	Day        DaySchedule             `json:"day"`
	Schedule   WeeklySchedule          `json:"schedule"`
	Shortfalls []*UnderAllocationError `json:"shortfalls"`
}

// Rebalancer re-places one class day against a run's calendar.
type Rebalancer struct {
	calendar *TeacherCalendar
}

// NewRebalancer binds a rebalancer to the calendar the schedule was built
// with. A nil calendar starts empty, which only suits single-class use.
func NewRebalancer(calendar *TeacherCalendar) *Rebalancer {
	if calendar == nil {
		calendar = NewTeacherCalendar()
	}
	return &Rebalancer{calendar: calendar}
}

// Rebalance evicts every non-pinned subject block of the day, rebuilds the
// day's grid from the new anchors and places the evicted periods again on
// that day only. Other days and other classes are never touched. Validation
// happens before any reservation is released.
func (r *Rebalancer) Rebalance(req RebalanceRequest) (RebalanceResult, error) {
	classID := req.Schedule.ClassID
	periodLength := req.PeriodLength
	if periodLength == 0 {
		periodLength = DefaultPeriodLength
	}

	current, ok := req.Schedule.Day(req.Weekday)
	if !ok {
		return RebalanceResult{}, invalid(classID, req.Weekday, "weekday", "class has no schedule on this day")
	}
	grid, err := BuildDayGrid(classID, req.Weekday, req.Config, req.Forbidden, periodLength)
	if err != nil {
		return RebalanceResult{}, err
	}

	pinnedAt := make(map[Clock]bool, len(req.Pinned))
	for _, start := range req.Pinned {
		pinnedAt[start] = true
	}
	var pinned, evicted []Block
	for _, block := range current.SubjectBlocks() {
		if block.Pinned || pinnedAt[block.Start] {
			block.Pinned = true
			pinned = append(pinned, block)
			continue
		}
		evicted = append(evicted, block)
	}
	if err := checkPinned(classID, grid, pinned); err != nil {
		return RebalanceResult{}, err
	}

	for _, block := range evicted {
		r.calendar.Release(block.TeacherID, req.Weekday, block.TimeInterval, classID)
	}

	grid.Slots = freeSlots(grid.Slots, pinned)
	allocator := &Allocator{calendar: r.calendar, splitRuns: true}
	alloc := allocator.Allocate(classID, []DayGrid{grid}, demand(evicted))

	placed := make([]Block, 0, len(pinned)+len(evicted))
	placed = append(placed, pinned...)
	placed = append(placed, alloc.Placed[req.Weekday]...)
	day := AssembleDay(grid, placed)

	return RebalanceResult{
		Day:        day,
		Schedule:   req.Schedule.WithDay(day),
		Shortfalls: alloc.Shortfalls,
	}, nil
}

// checkPinned rejects pinned blocks the new anchors no longer leave room for.
func checkPinned(classID string, grid DayGrid, pinned []Block) error {
	for _, block := range pinned {
		if !block.Within(grid.Start, grid.End) {
			return invalid(classID, grid.Weekday, "pinned", "%s block %s lies outside day bounds %s-%s", block.SubjectID, block.TimeInterval, grid.Start, grid.End)
		}
		for _, fixed := range grid.Fixed {
			if fixed.Overlaps(block.TimeInterval) {
				return invalid(classID, grid.Weekday, "pinned", "%s block %s overlaps %s", block.SubjectID, block.TimeInterval, fixed.Kind)
			}
		}
	}
	return nil
}

func freeSlots(slots []TimeInterval, pinned []Block) []TimeInterval {
	out := make([]TimeInterval, 0, len(slots))
	for _, slot := range slots {
		taken := false
		for _, block := range pinned {
			if block.Overlaps(slot) {
				taken = true
				break
			}
		}
		if !taken {
			out = append(out, slot)
		}
	}
	return out
}

// demand counts the evicted periods per subject.
func demand(evicted []Block) []ClassSubject {
	type key struct{ subject, teacher string }
	counts := make(map[key]int)
	for _, block := range evicted {
		counts[key{block.SubjectID, block.TeacherID}]++
	}
	out := make([]ClassSubject, 0, len(counts))
	for k, n := range counts {
		out = append(out, ClassSubject{SubjectID: k.subject, TeacherID: k.teacher, WeeklyPeriods: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubjectID != out[j].SubjectID {
			return out[i].SubjectID < out[j].SubjectID
		}
		return out[i].TeacherID < out[j].TeacherID
	})
	return out
}
