package timetable

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Weekday indexes a school day, 1=Monday through 7=Sunday.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = map[Weekday]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
	Sunday:    "SUNDAY",
}

// Valid reports whether the weekday is within 1..7.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DAY(%d)", int(d))
}

// ParseWeekday resolves names such as "monday" or "MONDAY".
func ParseWeekday(name string) (Weekday, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for day, candidate := range weekdayNames {
		if candidate == name {
			return day, true
		}
	}
	return 0, false
}

// Clock is a time of day expressed in minutes from midnight.
type Clock int

var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// IsValidHHMM reports whether raw is a 24-hour "HH:MM" value.
func IsValidHHMM(raw string) bool {
	return hhmmPattern.MatchString(raw)
}

// ParseClock parses a 24-hour "HH:MM" value.
func ParseClock(raw string) (Clock, error) {
	raw = strings.TrimSpace(raw)
	if !IsValidHHMM(raw) {
		return 0, fmt.Errorf("time %q must be HH:MM 24-hour format", raw)
	}
	hours, _ := strconv.Atoi(raw[:2])
	minutes, _ := strconv.Atoi(raw[3:])
	return Clock(hours*60 + minutes), nil
}

// MustClock is ParseClock for literals; it panics on malformed input.
func MustClock(raw string) Clock {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText renders the clock as "HH:MM".
func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts "HH:MM".
func (c *Clock) UnmarshalText(text []byte) error {
	parsed, err := ParseClock(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// TimeInterval is a half-open range [Start, Start+Duration) in minutes.
type TimeInterval struct {
	Start    Clock `json:"start"`
	Duration int   `json:"duration"`
}

// NewInterval builds the interval [start, end).
func NewInterval(start, end Clock) TimeInterval {
	return TimeInterval{Start: start, Duration: int(end - start)}
}

// End returns the exclusive end of the interval.
func (t TimeInterval) End() Clock {
	return t.Start + Clock(t.Duration)
}

// Overlaps reports whether the two intervals share at least one minute.
func (t TimeInterval) Overlaps(other TimeInterval) bool {
	return t.Start < other.End() && other.Start < t.End()
}

// Within reports whether t lies inside [start, end).
func (t TimeInterval) Within(start, end Clock) bool {
	return t.Start >= start && t.End() <= end
}

func (t TimeInterval) String() string {
	return t.Start.String() + "-" + t.End().String()
}

// BlockKind classifies a block in a day.
type BlockKind string

const (
	KindSubject      BlockKind = "subject"
	KindBreak        BlockKind = "break"
	KindLunch        BlockKind = "lunch"
	KindForbiddenGap BlockKind = "forbidden_gap"
	KindFreeTime     BlockKind = "free_time"
)

// Block is one contiguous piece of a class day.
type Block struct {
	Kind BlockKind `json:"kind"`
	TimeInterval
	SubjectID string `json:"subjectId,omitempty"`
	TeacherID string `json:"teacherId,omitempty"`
	Label     string `json:"label,omitempty"`
	Pinned    bool   `json:"pinned,omitempty"`
	Order     int    `json:"order"`
}

// Fixed reports whether a rebalance must leave the block in place.
func (b Block) Fixed() bool {
	switch b.Kind {
	case KindBreak, KindLunch, KindForbiddenGap:
		return true
	case KindSubject:
		return b.Pinned
	default:
		return false
	}
}

// DaySchedule is the ordered, gap-free block sequence of one class day.
type DaySchedule struct {
	Weekday Weekday `json:"weekday"`
	Start   Clock   `json:"start"`
	End     Clock   `json:"end"`
	Blocks  []Block `json:"blocks"`
}

// Validate checks that blocks cover [Start, End) exactly once.
func (d DaySchedule) Validate() error {
	cursor := d.Start
	for i, block := range d.Blocks {
		if block.Duration <= 0 {
			return fmt.Errorf("%s block %d has non-positive duration", d.Weekday, i)
		}
		if block.Start != cursor {
			if block.Start > cursor {
				return fmt.Errorf("%s gap between %s and %s", d.Weekday, cursor, block.Start)
			}
			return fmt.Errorf("%s block %d at %s overlaps previous block ending %s", d.Weekday, i, block.Start, cursor)
		}
		if block.Kind == KindSubject && (block.SubjectID == "" || block.TeacherID == "") {
			return fmt.Errorf("%s subject block at %s lacks subject or teacher", d.Weekday, block.Start)
		}
		cursor = block.End()
	}
	if cursor != d.End {
		return fmt.Errorf("%s coverage ends at %s, expected %s", d.Weekday, cursor, d.End)
	}
	return nil
}

// SubjectBlocks returns the subject blocks of the day in order.
func (d DaySchedule) SubjectBlocks() []Block {
	var out []Block
	for _, block := range d.Blocks {
		if block.Kind == KindSubject {
			out = append(out, block)
		}
	}
	return out
}

func (d DaySchedule) clone() DaySchedule {
	blocks := make([]Block, len(d.Blocks))
	copy(blocks, d.Blocks)
	d.Blocks = blocks
	return d
}

// WeeklySchedule holds one class's days ordered by weekday.
type WeeklySchedule struct {
	ClassID string        `json:"classId"`
	Days    []DaySchedule `json:"days"`
}

// Day returns the schedule of the given weekday.
func (w WeeklySchedule) Day(day Weekday) (DaySchedule, bool) {
	for _, d := range w.Days {
		if d.Weekday == day {
			return d, true
		}
	}
	return DaySchedule{}, false
}

// WithDay returns a copy of the week with the given day replaced or added.
func (w WeeklySchedule) WithDay(day DaySchedule) WeeklySchedule {
	out := w.Clone()
	for i := range out.Days {
		if out.Days[i].Weekday == day.Weekday {
			out.Days[i] = day.clone()
			return out
		}
	}
	out.Days = append(out.Days, day.clone())
	sort.Slice(out.Days, func(i, j int) bool { return out.Days[i].Weekday < out.Days[j].Weekday })
	return out
}

// Clone deep-copies the week.
func (w WeeklySchedule) Clone() WeeklySchedule {
	days := make([]DaySchedule, len(w.Days))
	for i, d := range w.Days {
		days[i] = d.clone()
	}
	return WeeklySchedule{ClassID: w.ClassID, Days: days}
}

// CountSubject returns how many periods of subjectID the week holds.
func (w WeeklySchedule) CountSubject(subjectID string) int {
	count := 0
	for _, d := range w.Days {
		for _, block := range d.Blocks {
			if block.Kind == KindSubject && block.SubjectID == subjectID {
				count++
			}
		}
	}
	return count
}

// SubjectLoad holds the academic load facts of one subject.
type SubjectLoad struct {
	SubjectID      string  `json:"subjectId"`
	AnnualHours    float64 `json:"annualHours"`
	Credits        float64 `json:"credits"`
	PracticalHours float64 `json:"practicalHours"`
	IsExamSubject  bool    `json:"isExamSubject"`
}

// TeacherAssignment binds a teacher to a subject within a class.
type TeacherAssignment struct {
	TeacherID string `json:"teacherId"`
	SubjectID string `json:"subjectId"`
	ClassID   string `json:"classId"`
}

// DayTimeConfig describes the anchors of a class day.
type DayTimeConfig struct {
	Start          Clock         `json:"start"`
	End            Clock         `json:"end"`
	MorningBreak   TimeInterval  `json:"morningBreak"`
	LunchBreak     TimeInterval  `json:"lunchBreak"`
	AfternoonBreak *TimeInterval `json:"afternoonBreak,omitempty"`
}

// ClassTimeConfig maps each school weekday of a class to its anchors.
type ClassTimeConfig struct {
	ClassID string                    `json:"classId"`
	Days    map[Weekday]DayTimeConfig `json:"days"`
}

// Weekdays returns the configured weekdays in week order.
func (c ClassTimeConfig) Weekdays() []Weekday {
	days := make([]Weekday, 0, len(c.Days))
	for day := range c.Days {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// ForbiddenWindow blocks scheduling for one class, or the whole school when
// ClassID is empty.
type ForbiddenWindow struct {
	ClassID string  `json:"classId,omitempty"`
	Weekday Weekday `json:"weekday"`
	TimeInterval
	Label string `json:"label,omitempty"`
}

// AppliesTo reports whether the window constrains the class on the weekday.
func (f ForbiddenWindow) AppliesTo(classID string, day Weekday) bool {
	if f.Weekday != day {
		return false
	}
	return f.ClassID == "" || f.ClassID == classID
}
