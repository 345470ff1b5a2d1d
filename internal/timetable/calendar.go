package timetable

import (
	"fmt"
	"sort"
	"sync"
)

// Reservation records that a teacher is committed to a class for an interval.
type Reservation struct {
	TeacherID string       `json:"teacherId"`
	Weekday   Weekday      `json:"weekday"`
	Interval  TimeInterval `json:"interval"`
	ClassID   string       `json:"classId"`
}

type teacherDay struct {
	teacherID string
	day       Weekday
}

type teacherLedger struct {
	mu      sync.Mutex
	entries []Reservation
}

func (l *teacherLedger) conflict(slot TimeInterval) (Reservation, bool) {
	for _, entry := range l.entries {
		if entry.Interval.Overlaps(slot) {
			return entry, true
		}
	}
	return Reservation{}, false
}

// TeacherCalendar is the run-scoped occupancy map shared by every class of a
// scheduling run. Reservations are checked against any overlapping interval,
// so classes with different bell times still cannot double-book a teacher.
// Check-then-insert is atomic per (teacher, weekday).
type TeacherCalendar struct {
	mu      sync.Mutex
	ledgers map[teacherDay]*teacherLedger
}

// NewTeacherCalendar returns an empty calendar.
func NewTeacherCalendar() *TeacherCalendar {
	return &TeacherCalendar{ledgers: make(map[teacherDay]*teacherLedger)}
}

func (c *TeacherCalendar) ledger(teacherID string, day Weekday) *teacherLedger {
	key := teacherDay{teacherID: teacherID, day: day}
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.ledgers[key]
	if !ok {
		l = &teacherLedger{}
		c.ledgers[key] = l
	}
	return l
}

// Reserve commits the teacher to classID for slot. It returns false when the
// teacher already holds an overlapping reservation.
func (c *TeacherCalendar) Reserve(teacherID string, day Weekday, slot TimeInterval, classID string) bool {
	l := c.ledger(teacherID, day)
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.conflict(slot); busy {
		return false
	}
	l.entries = append(l.entries, Reservation{TeacherID: teacherID, Weekday: day, Interval: slot, ClassID: classID})
	return true
}

// Release drops the exact reservation made for classID. Only rebalancing
// releases; a full run never does.
func (c *TeacherCalendar) Release(teacherID string, day Weekday, slot TimeInterval, classID string) bool {
	l := c.ledger(teacherID, day)
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, entry := range l.entries {
		if entry.Interval == slot && entry.ClassID == classID {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// IsFree reports whether the teacher has no reservation overlapping slot.
func (c *TeacherCalendar) IsFree(teacherID string, day Weekday, slot TimeInterval) bool {
	_, busy := c.OccupiedBy(teacherID, day, slot)
	return !busy
}

// OccupiedBy returns the class holding the teacher during slot, if any.
func (c *TeacherCalendar) OccupiedBy(teacherID string, day Weekday, slot TimeInterval) (string, bool) {
	l := c.ledger(teacherID, day)
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, busy := l.conflict(slot)
	return entry.ClassID, busy
}

// Reservations returns every reservation ordered by teacher, weekday, start.
func (c *TeacherCalendar) Reservations() []Reservation {
	c.mu.Lock()
	ledgers := make([]*teacherLedger, 0, len(c.ledgers))
	for _, l := range c.ledgers {
		ledgers = append(ledgers, l)
	}
	c.mu.Unlock()

	var out []Reservation
	for _, l := range ledgers {
		l.mu.Lock()
		out = append(out, l.entries...)
		l.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TeacherID != b.TeacherID {
			return a.TeacherID < b.TeacherID
		}
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		return a.Interval.Start < b.Interval.Start
	})
	return out
}

// Len returns the number of reservations held.
func (c *TeacherCalendar) Len() int {
	return len(c.Reservations())
}

// CalendarFromSchedules rebuilds the calendar implied by the subject blocks of
// stored schedules. It fails if the schedules double-book a teacher.
func CalendarFromSchedules(schedules []WeeklySchedule) (*TeacherCalendar, error) {
	cal := NewTeacherCalendar()
	for _, week := range schedules {
		for _, day := range week.Days {
			for _, block := range day.Blocks {
				if block.Kind != KindSubject {
					continue
				}
				if !cal.Reserve(block.TeacherID, day.Weekday, block.TimeInterval, week.ClassID) {
					other, _ := cal.OccupiedBy(block.TeacherID, day.Weekday, block.TimeInterval)
					return nil, fmt.Errorf("teacher %s double-booked on %s at %s (classes %s and %s)",
						block.TeacherID, day.Weekday, block.TimeInterval, other, week.ClassID)
				}
			}
		}
	}
	return cal, nil
}
