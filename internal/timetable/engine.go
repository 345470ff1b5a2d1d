package timetable

import "sort"

// RunInput is everything one scheduling run needs. The engine performs no I/O;
// callers resolve these records from storage beforehand.
type RunInput struct {
	Subjects []SubjectLoad
	// School supplies the week of any class that has assignments but no entry
	// in Classes.
	School       *SchoolTimeConfig
	Classes      []ClassTimeConfig
	Forbidden    []ForbiddenWindow
	Assignments  []TeacherAssignment
	ExamTerm     bool
	PeriodLength int
}

// Diagnostics collects the non-schedule outcome of a run.
type Diagnostics struct {
	Validation      []*ValidationError      `json:"validation"`
	UnderAllocation []*UnderAllocationError `json:"underAllocation"`
}

// Empty reports whether the run finished without any diagnostic.
func (d Diagnostics) Empty() bool {
	return len(d.Validation) == 0 && len(d.UnderAllocation) == 0
}

// ShortPeriods sums the periods that could not be placed.
func (d Diagnostics) ShortPeriods() int {
	total := 0
	for _, short := range d.UnderAllocation {
		total += short.PeriodsShort
	}
	return total
}

// RunResult is the terminal output of a run; the caller owns it.
type RunResult struct {
	Subjects    []ClassifiedSubject `json:"subjects"`
	Schedules   []WeeklySchedule    `json:"schedules"`
	Diagnostics Diagnostics         `json:"diagnostics"`
	// Calendar is the run's teacher occupancy, kept for follow-up rebalancing.
	Calendar *TeacherCalendar `json:"-"`
}

// Schedule returns the week of the given class.
func (r RunResult) Schedule(classID string) (WeeklySchedule, bool) {
	for _, week := range r.Schedules {
		if week.ClassID == classID {
			return week, true
		}
	}
	return WeeklySchedule{}, false
}

// Run executes the whole pipeline for every class of a school: classify loads,
// build grids, allocate against one fresh TeacherCalendar, fill free time.
// Classes are processed in class id order so identical input always yields
// identical output.
func Run(in RunInput) RunResult {
	periodLength := in.PeriodLength
	if periodLength == 0 {
		periodLength = DefaultPeriodLength
	}

	result := RunResult{
		Subjects: ClassifySubjects(in.Subjects, in.ExamTerm),
		Calendar: NewTeacherCalendar(),
	}
	weekly := make(map[string]int, len(result.Subjects))
	for _, subject := range result.Subjects {
		weekly[subject.SubjectID] = subject.WeeklyPeriods
	}

	configs, errs := collectClassConfigs(in)
	result.Diagnostics.Validation = append(result.Diagnostics.Validation, errs...)
	subjectsByClass, errs := groupAssignments(in.Assignments, weekly)
	result.Diagnostics.Validation = append(result.Diagnostics.Validation, errs...)

	rejected := make(map[string]bool)
	for _, err := range result.Diagnostics.Validation {
		rejected[err.ClassID] = true
	}
	for _, classID := range sortedKeys(subjectsByClass) {
		if _, ok := configs[classID]; ok || rejected[classID] {
			continue
		}
		result.Diagnostics.Validation = append(result.Diagnostics.Validation,
			invalid(classID, 0, "time_config", "class has teacher assignments but no time configuration"))
		rejected[classID] = true
	}

	allocator := NewAllocator(result.Calendar)
	for _, classID := range sortedKeys(configs) {
		if rejected[classID] {
			continue
		}
		grids, gridErrs := BuildWeekGrid(configs[classID], in.Forbidden, periodLength)
		if len(gridErrs) > 0 {
			result.Diagnostics.Validation = append(result.Diagnostics.Validation, gridErrs...)
			continue
		}
		alloc := allocator.Allocate(classID, grids, subjectsByClass[classID])
		result.Diagnostics.UnderAllocation = append(result.Diagnostics.UnderAllocation, alloc.Shortfalls...)

		week := WeeklySchedule{ClassID: classID, Days: make([]DaySchedule, 0, len(grids))}
		for _, grid := range grids {
			week.Days = append(week.Days, AssembleDay(grid, alloc.Placed[grid.Weekday]))
		}
		result.Schedules = append(result.Schedules, week)
	}
	return result
}

func collectClassConfigs(in RunInput) (map[string]ClassTimeConfig, []*ValidationError) {
	configs := make(map[string]ClassTimeConfig, len(in.Classes))
	var errs []*ValidationError
	for _, cfg := range in.Classes {
		if cfg.ClassID == "" {
			errs = append(errs, invalid("", 0, "class_id", "time configuration without class id"))
			continue
		}
		if _, dup := configs[cfg.ClassID]; dup {
			errs = append(errs, invalid(cfg.ClassID, 0, "class_id", "duplicate time configuration"))
			continue
		}
		configs[cfg.ClassID] = cfg
	}
	if in.School != nil {
		for _, assignment := range in.Assignments {
			if assignment.ClassID == "" {
				continue
			}
			if _, ok := configs[assignment.ClassID]; !ok {
				configs[assignment.ClassID] = in.School.Resolve(assignment.ClassID)
			}
		}
	}
	return configs, errs
}

// groupAssignments turns assignments into per-class subject lists. A subject
// may have only one teacher per class.
func groupAssignments(assignments []TeacherAssignment, weekly map[string]int) (map[string][]ClassSubject, []*ValidationError) {
	teacherOf := make(map[string]map[string]string)
	var errs []*ValidationError
	for _, a := range assignments {
		switch {
		case a.ClassID == "":
			errs = append(errs, invalid("", 0, "teacher_assignment", "assignment of subject %s has no class", a.SubjectID))
			continue
		case a.TeacherID == "":
			errs = append(errs, invalid(a.ClassID, 0, "teacher_assignment", "subject %s has no teacher", a.SubjectID))
			continue
		}
		if _, ok := weekly[a.SubjectID]; !ok {
			errs = append(errs, invalid(a.ClassID, 0, "teacher_assignment", "subject %s has no load record", a.SubjectID))
			continue
		}
		if teacherOf[a.ClassID] == nil {
			teacherOf[a.ClassID] = make(map[string]string)
		}
		if existing, ok := teacherOf[a.ClassID][a.SubjectID]; ok {
			if existing != a.TeacherID {
				errs = append(errs, invalid(a.ClassID, 0, "teacher_assignment", "subject %s assigned to both %s and %s", a.SubjectID, existing, a.TeacherID))
			}
			continue
		}
		teacherOf[a.ClassID][a.SubjectID] = a.TeacherID
	}

	out := make(map[string][]ClassSubject, len(teacherOf))
	for classID, subjects := range teacherOf {
		for subjectID, teacherID := range subjects {
			out[classID] = append(out[classID], ClassSubject{
				SubjectID:     subjectID,
				TeacherID:     teacherID,
				WeeklyPeriods: weekly[subjectID],
			})
		}
	}
	return out, errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
