package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/timetable"
	"github.com/noah-isme/sma-timetable/pkg/export"
)

const exportTimeColumn = "Time"

func toInterval(p dto.IntervalPayload) (timetable.TimeInterval, error) {
	start, err := timetable.ParseClock(p.Start)
	if err != nil {
		return timetable.TimeInterval{}, err
	}
	end, err := timetable.ParseClock(p.End)
	if err != nil {
		return timetable.TimeInterval{}, err
	}
	return timetable.NewInterval(start, end), nil
}

func toDayConfig(p dto.DayAnchorsPayload) (timetable.DayTimeConfig, error) {
	var cfg timetable.DayTimeConfig
	var err error
	if cfg.Start, err = timetable.ParseClock(p.Start); err != nil {
		return cfg, err
	}
	if cfg.End, err = timetable.ParseClock(p.End); err != nil {
		return cfg, err
	}
	if cfg.MorningBreak, err = toInterval(p.MorningBreak); err != nil {
		return cfg, fmt.Errorf("morning break: %w", err)
	}
	if p.LunchBreak != nil {
		if cfg.LunchBreak, err = toInterval(*p.LunchBreak); err != nil {
			return cfg, fmt.Errorf("lunch break: %w", err)
		}
	}
	if p.AfternoonBreak != nil {
		afternoon, err := toInterval(*p.AfternoonBreak)
		if err != nil {
			return cfg, fmt.Errorf("afternoon break: %w", err)
		}
		cfg.AfternoonBreak = &afternoon
	}
	return cfg, nil
}

func toWeek(days []dto.DayConfigPayload) (map[timetable.Weekday]timetable.DayTimeConfig, error) {
	week := make(map[timetable.Weekday]timetable.DayTimeConfig, len(days))
	for _, day := range days {
		weekday := timetable.Weekday(day.Weekday)
		if !weekday.Valid() {
			return nil, fmt.Errorf("weekday %d out of range", day.Weekday)
		}
		if _, dup := week[weekday]; dup {
			return nil, fmt.Errorf("%s configured twice", weekday)
		}
		cfg, err := toDayConfig(day.DayAnchorsPayload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", weekday, err)
		}
		week[weekday] = cfg
	}
	return week, nil
}

func toSchoolConfig(p dto.SchoolConfigPayload) (*timetable.SchoolTimeConfig, error) {
	days, err := toWeek(p.Days)
	if err != nil {
		return nil, err
	}
	school := &timetable.SchoolTimeConfig{Days: days}
	for i, override := range p.Overrides {
		overrideDays, err := toWeek(override.Days)
		if err != nil {
			return nil, fmt.Errorf("override %d: %w", i, err)
		}
		school.Overrides = append(school.Overrides, timetable.ClassOverride{AppliesTo: override.AppliesTo, Days: overrideDays})
	}
	return school, nil
}

func toForbidden(windows []dto.ForbiddenWindowPayload) ([]timetable.ForbiddenWindow, error) {
	out := make([]timetable.ForbiddenWindow, 0, len(windows))
	for _, w := range windows {
		interval, err := toInterval(dto.IntervalPayload{Start: w.Start, End: w.End})
		if err != nil {
			return nil, err
		}
		out = append(out, timetable.ForbiddenWindow{
			ClassID:      w.ClassID,
			Weekday:      timetable.Weekday(w.Weekday),
			TimeInterval: interval,
			Label:        w.Label,
		})
	}
	return out, nil
}

func toSubjectLoads(subjects []dto.SubjectLoadPayload) []timetable.SubjectLoad {
	out := make([]timetable.SubjectLoad, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, timetable.SubjectLoad{
			SubjectID:      s.SubjectID,
			AnnualHours:    s.AnnualHours,
			Credits:        s.Credits,
			PracticalHours: s.PracticalHours,
			IsExamSubject:  s.IsExamSubject,
		})
	}
	return out
}

// toRunInput converts a validated request. Without any time configuration
// the default school week of schoolDays days applies.
func toRunInput(req dto.GenerateTimetableRequest, periodMinutes, schoolDays int) (timetable.RunInput, error) {
	in := timetable.RunInput{
		Subjects:     toSubjectLoads(req.Subjects),
		ExamTerm:     req.ExamTerm,
		PeriodLength: periodMinutes,
	}
	if req.School != nil {
		school, err := toSchoolConfig(*req.School)
		if err != nil {
			return in, fmt.Errorf("school: %w", err)
		}
		in.School = school
	}
	for _, class := range req.Classes {
		days, err := toWeek(class.Days)
		if err != nil {
			return in, fmt.Errorf("class %s: %w", class.ClassID, err)
		}
		in.Classes = append(in.Classes, timetable.ClassTimeConfig{ClassID: class.ClassID, Days: days})
	}
	if in.School == nil && len(in.Classes) == 0 {
		school := timetable.DefaultSchoolWeek(schoolDays)
		in.School = &school
	}
	forbidden, err := toForbidden(req.Forbidden)
	if err != nil {
		return in, fmt.Errorf("forbidden: %w", err)
	}
	in.Forbidden = forbidden
	for _, a := range req.Assignments {
		in.Assignments = append(in.Assignments, timetable.TeacherAssignment{TeacherID: a.TeacherID, SubjectID: a.SubjectID, ClassID: a.ClassID})
	}
	return in, nil
}

func summarize(run timetableRun) dto.TimetableRunSummary {
	summary := dto.TimetableRunSummary{
		Classes:            len(run.Schedules),
		ShortPeriods:       run.Diagnostics.ShortPeriods(),
		ValidationFailures: len(run.Diagnostics.Validation),
	}
	for _, week := range run.Schedules {
		for _, day := range week.Days {
			summary.ScheduledPeriods += len(day.SubjectBlocks())
		}
	}
	return summary
}

func shortByReason(diag timetable.Diagnostics) map[string]int {
	out := make(map[string]int)
	for _, short := range diag.UnderAllocation {
		out[string(short.Reason)] += short.PeriodsShort
	}
	return out
}

func toRunResponse(run timetableRun, ttl time.Duration) *dto.TimetableRunResponse {
	return &dto.TimetableRunResponse{
		RunID:         run.ID,
		SchoolID:      run.SchoolID,
		TermID:        run.TermID,
		ExamTerm:      run.ExamTerm,
		PeriodMinutes: run.PeriodMinutes,
		Subjects:      run.Subjects,
		Schedules:     run.Schedules,
		Diagnostics:   run.Diagnostics,
		Summary:       summarize(run),
		CreatedAt:     run.CreatedAt,
		ExpiresAt:     run.CreatedAt.Add(ttl),
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// toBlockModels flattens every class week into storable rows.
func toBlockModels(runID string, schedules []timetable.WeeklySchedule) []models.TimetableBlock {
	var out []models.TimetableBlock
	for _, week := range schedules {
		for _, day := range week.Days {
			for position, block := range day.Blocks {
				out = append(out, models.TimetableBlock{
					RunID:           runID,
					ClassID:         week.ClassID,
					DayOfWeek:       int(day.Weekday),
					Position:        position,
					Kind:            string(block.Kind),
					StartTime:       block.Start.String(),
					DurationMinutes: block.Duration,
					SubjectID:       optionalString(block.SubjectID),
					TeacherID:       optionalString(block.TeacherID),
					Label:           optionalString(block.Label),
					Pinned:          block.Pinned,
				})
			}
		}
	}
	return out
}

func blockCaption(block timetable.Block) string {
	switch {
	case block.Kind == timetable.KindSubject:
		caption := fmt.Sprintf("%s (%s)", block.SubjectID, block.TeacherID)
		if block.Pinned {
			caption += " *"
		}
		return caption
	case block.Label != "":
		return block.Label
	default:
		return string(block.Kind)
	}
}

// weekDataset lays a class week out as a grid: one column per weekday and one
// row per interval between consecutive block boundaries of any day, so days
// with different bell times still line up.
func weekDataset(week timetable.WeeklySchedule) export.Dataset {
	headers := []string{exportTimeColumn}
	seen := make(map[timetable.Clock]bool)
	var bounds []timetable.Clock
	mark := func(c timetable.Clock) {
		if !seen[c] {
			seen[c] = true
			bounds = append(bounds, c)
		}
	}
	for _, day := range week.Days {
		headers = append(headers, day.Weekday.String())
		for _, block := range day.Blocks {
			mark(block.Start)
			mark(block.End())
		}
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })

	data := export.Dataset{Headers: headers}
	for i := 0; i+1 < len(bounds); i++ {
		row := map[string]string{exportTimeColumn: timetable.NewInterval(bounds[i], bounds[i+1]).String()}
		for _, day := range week.Days {
			for _, block := range day.Blocks {
				if block.Start <= bounds[i] && bounds[i] < block.End() {
					row[day.Weekday.String()] = blockCaption(block)
					break
				}
			}
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}
