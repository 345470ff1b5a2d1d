package timetable

import "sort"

// DefaultPeriodLength is the school-wide period length in minutes.
const DefaultPeriodLength = 40

const (
	labelMorningBreak   = "Morning break"
	labelLunch          = "Lunch"
	labelAfternoonBreak = "Afternoon break"
	labelForbidden      = "Unavailable"
)

// DayGrid is the placeable capacity of one class day.
type DayGrid struct {
	Weekday Weekday
	Start   Clock
	End     Clock
	// Fixed holds breaks, lunch and forbidden gaps ordered by start.
	Fixed []Block
	// Slots are period-length positions ordered chronologically. Residual
	// capacity shorter than one period is not offered.
	Slots []TimeInterval
}

// SlotCount returns the number of placeable slots.
func (g DayGrid) SlotCount() int {
	return len(g.Slots)
}

type anchor struct {
	field string
	block Block
}

// BuildDayGrid validates the anchors of one class day and cuts the remaining
// capacity into slots.
func BuildDayGrid(classID string, day Weekday, cfg DayTimeConfig, windows []ForbiddenWindow, periodLength int) (DayGrid, error) {
	if periodLength <= 0 {
		return DayGrid{}, invalid(classID, day, "period_length", "must be positive, got %d", periodLength)
	}
	if !day.Valid() {
		return DayGrid{}, invalid(classID, day, "weekday", "must be between 1 and 7")
	}
	if cfg.Start >= cfg.End {
		return DayGrid{}, invalid(classID, day, "end_time", "end %s must be after start %s", cfg.End, cfg.Start)
	}

	breaks := []anchor{
		{field: "morning_break", block: Block{Kind: KindBreak, TimeInterval: cfg.MorningBreak, Label: labelMorningBreak}},
	}
	// A zero lunch interval means the day (typically a half day) has none.
	if cfg.LunchBreak != (TimeInterval{}) {
		breaks = append(breaks, anchor{field: "lunch_break", block: Block{Kind: KindLunch, TimeInterval: cfg.LunchBreak, Label: labelLunch}})
	}
	if cfg.AfternoonBreak != nil {
		breaks = append(breaks, anchor{field: "afternoon_break", block: Block{Kind: KindBreak, TimeInterval: *cfg.AfternoonBreak, Label: labelAfternoonBreak}})
	}

	fixed := make([]Block, 0, len(breaks)+len(windows))
	fields := make([]string, 0, cap(fixed))
	for _, b := range breaks {
		if b.block.Duration <= 0 {
			return DayGrid{}, invalid(classID, day, b.field, "duration must be positive")
		}
		if !b.block.Within(cfg.Start, cfg.End) {
			return DayGrid{}, invalid(classID, day, b.field, "%s lies outside day bounds %s-%s", b.block.TimeInterval, cfg.Start, cfg.End)
		}
		for i, existing := range fixed {
			if existing.Overlaps(b.block.TimeInterval) {
				return DayGrid{}, invalid(classID, day, b.field, "overlaps %s", fields[i])
			}
		}
		fixed = append(fixed, b.block)
		fields = append(fields, b.field)
	}

	for _, window := range windows {
		if !window.AppliesTo(classID, day) {
			continue
		}
		if window.Duration <= 0 {
			return DayGrid{}, invalid(classID, day, "forbidden_window", "duration must be positive")
		}
		if !window.Within(cfg.Start, cfg.End) {
			return DayGrid{}, invalid(classID, day, "forbidden_window", "%s lies outside day bounds %s-%s", window.TimeInterval, cfg.Start, cfg.End)
		}
		for i, existing := range fixed {
			if existing.Overlaps(window.TimeInterval) {
				return DayGrid{}, invalid(classID, day, "forbidden_window", "%s overlaps %s", window.TimeInterval, fields[i])
			}
		}
		label := window.Label
		if label == "" {
			label = labelForbidden
		}
		fixed = append(fixed, Block{Kind: KindForbiddenGap, TimeInterval: window.TimeInterval, Label: label})
		fields = append(fields, "forbidden_window")
	}

	sort.Slice(fixed, func(i, j int) bool { return fixed[i].Start < fixed[j].Start })

	return DayGrid{
		Weekday: day,
		Start:   cfg.Start,
		End:     cfg.End,
		Fixed:   fixed,
		Slots:   cutSlots(cfg.Start, cfg.End, fixed, periodLength),
	}, nil
}

// cutSlots subtracts the fixed blocks from [start, end) and divides each
// capacity interval into period-length slots from its beginning.
func cutSlots(start, end Clock, fixed []Block, periodLength int) []TimeInterval {
	var slots []TimeInterval
	cursor := start
	emit := func(until Clock) {
		for cursor+Clock(periodLength) <= until {
			slots = append(slots, TimeInterval{Start: cursor, Duration: periodLength})
			cursor += Clock(periodLength)
		}
	}
	for _, block := range fixed {
		emit(block.Start)
		if block.End() > cursor {
			cursor = block.End()
		}
	}
	emit(end)
	return slots
}

// CapacityIntervals returns the contiguous time of the day not consumed by a
// fixed block.
func (g DayGrid) CapacityIntervals() []TimeInterval {
	var out []TimeInterval
	cursor := g.Start
	for _, block := range g.Fixed {
		if block.Start > cursor {
			out = append(out, NewInterval(cursor, block.Start))
		}
		if block.End() > cursor {
			cursor = block.End()
		}
	}
	if g.End > cursor {
		out = append(out, NewInterval(cursor, g.End))
	}
	return out
}

// BuildWeekGrid builds the grid of every configured weekday of a class. Any
// validation failure is returned and the grids must not be used.
func BuildWeekGrid(cfg ClassTimeConfig, windows []ForbiddenWindow, periodLength int) ([]DayGrid, []*ValidationError) {
	var (
		grids []DayGrid
		errs  []*ValidationError
	)
	if len(cfg.Days) == 0 {
		return nil, []*ValidationError{invalid(cfg.ClassID, 0, "days", "class has no configured school days")}
	}
	for _, day := range cfg.Weekdays() {
		grid, err := BuildDayGrid(cfg.ClassID, day, cfg.Days[day], windows, periodLength)
		if err != nil {
			errs = append(errs, err.(*ValidationError))
			continue
		}
		grids = append(grids, grid)
	}
	for _, window := range windows {
		if window.ClassID != "" && window.ClassID != cfg.ClassID {
			continue
		}
		if _, ok := cfg.Days[window.Weekday]; !ok && window.ClassID == cfg.ClassID {
			errs = append(errs, invalid(cfg.ClassID, window.Weekday, "forbidden_window", "weekday is not a school day for this class"))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return grids, nil
}
