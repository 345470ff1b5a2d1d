package timetable

import "sort"

const labelFreeTime = "Free time"

// FillFreeTime orders the day's blocks and replaces every gap in
// [Start, End) with a free_time block spanning it exactly. Blocks are
// renumbered in order.
func FillFreeTime(day DaySchedule) DaySchedule {
	placed := make([]Block, 0, len(day.Blocks))
	for _, block := range day.Blocks {
		if block.Kind == KindFreeTime || block.Duration <= 0 {
			continue
		}
		placed = append(placed, block)
	}
	sort.SliceStable(placed, func(i, j int) bool { return placed[i].Start < placed[j].Start })

	out := make([]Block, 0, len(placed)*2+1)
	cursor := day.Start
	for _, block := range placed {
		if block.Start > cursor {
			out = append(out, freeTime(cursor, block.Start))
		}
		out = append(out, block)
		if block.End() > cursor {
			cursor = block.End()
		}
	}
	if cursor < day.End {
		out = append(out, freeTime(cursor, day.End))
	}
	for i := range out {
		out[i].Order = i
	}
	day.Blocks = out
	return day
}

func freeTime(start, end Clock) Block {
	return Block{Kind: KindFreeTime, TimeInterval: NewInterval(start, end), Label: labelFreeTime}
}

// AssembleDay merges a grid's fixed blocks with placed subject blocks and
// fills the remaining gaps.
func AssembleDay(grid DayGrid, placed []Block) DaySchedule {
	blocks := make([]Block, 0, len(grid.Fixed)+len(placed))
	blocks = append(blocks, grid.Fixed...)
	blocks = append(blocks, placed...)
	return FillFreeTime(DaySchedule{
		Weekday: grid.Weekday,
		Start:   grid.Start,
		End:     grid.End,
		Blocks:  blocks,
	})
}
