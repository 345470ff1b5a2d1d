package timetable

// ClassOverride replaces the school week on the listed weekdays for a group
// of classes (for example a trade or sector with its own bell times).
type ClassOverride struct {
	AppliesTo []string                  `json:"appliesTo"`
	Days      map[Weekday]DayTimeConfig `json:"days"`
}

func (o ClassOverride) applies(classID string) bool {
	for _, id := range o.AppliesTo {
		if id == classID {
			return true
		}
	}
	return false
}

// SchoolTimeConfig is the school's default week plus class overrides.
type SchoolTimeConfig struct {
	Days      map[Weekday]DayTimeConfig `json:"days"`
	Overrides []ClassOverride           `json:"overrides,omitempty"`
}

// Resolve returns the week of a class: the default week with every matching
// override applied in order, later overrides winning.
func (s SchoolTimeConfig) Resolve(classID string) ClassTimeConfig {
	days := make(map[Weekday]DayTimeConfig, len(s.Days))
	for day, cfg := range s.Days {
		days[day] = cfg
	}
	for _, override := range s.Overrides {
		if !override.applies(classID) {
			continue
		}
		for day, cfg := range override.Days {
			days[day] = cfg
		}
	}
	return ClassTimeConfig{ClassID: classID, Days: days}
}

// DefaultDay is the standard day layout: 09:00-17:00 with a morning break,
// lunch and an afternoon break.
func DefaultDay() DayTimeConfig {
	afternoon := NewInterval(MustClock("15:20"), MustClock("15:40"))
	return DayTimeConfig{
		Start:          MustClock("09:00"),
		End:            MustClock("17:00"),
		MorningBreak:   NewInterval(MustClock("10:20"), MustClock("10:40")),
		LunchBreak:     NewInterval(MustClock("13:00"), MustClock("14:00")),
		AfternoonBreak: &afternoon,
	}
}

// DefaultSchoolWeek returns a Monday-first week of DefaultDay. Any value other
// than 6 yields a five-day week.
func DefaultSchoolWeek(days int) SchoolTimeConfig {
	if days != 6 {
		days = 5
	}
	week := make(map[Weekday]DayTimeConfig, days)
	for d := Monday; d < Monday+Weekday(days); d++ {
		week[d] = DefaultDay()
	}
	return SchoolTimeConfig{Days: week}
}
