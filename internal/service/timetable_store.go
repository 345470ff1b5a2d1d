package service

import (
	"sync"
	"time"

	"github.com/noah-isme/sma-timetable/internal/timetable"
)

// timetableRun is a generated run kept between requests until it is saved or
// expires.
type timetableRun struct {
	ID            string                        `json:"id"`
	SchoolID      string                        `json:"schoolId"`
	TermID        string                        `json:"termId"`
	ExamTerm      bool                          `json:"examTerm"`
	PeriodMinutes int                           `json:"periodMinutes"`
	Subjects      []timetable.ClassifiedSubject `json:"subjects"`
	Schedules     []timetable.WeeklySchedule    `json:"schedules"`
	Forbidden     []timetable.ForbiddenWindow   `json:"forbidden"`
	Diagnostics   timetable.Diagnostics         `json:"diagnostics"`
	SavedID       string                        `json:"savedId,omitempty"`
	CreatedAt     time.Time                     `json:"createdAt"`
}

func (r *timetableRun) scheduleIndex(classID string) int {
	for i, week := range r.Schedules {
		if week.ClassID == classID {
			return i
		}
	}
	return -1
}

type runEntry struct {
	createdAt time.Time

	mu  sync.Mutex
	run timetableRun
}

// runStore keeps runs in process for ttl. Mutations of one run are serialized
// through its entry lock; different runs proceed independently.
type runStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]*runEntry
	now   func() time.Time
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{
		ttl:   ttl,
		items: make(map[string]*runEntry),
		now:   time.Now,
	}
}

func (s *runStore) Save(run timetableRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[run.ID] = &runEntry{createdAt: run.CreatedAt, run: run}
}

// Restore inserts run unless a live entry with its id exists, and returns
// whichever run the store holds afterwards.
func (s *runStore) Restore(run timetableRun) timetableRun {
	if existing, ok := s.Get(run.ID); ok {
		return existing
	}
	s.mu.Lock()
	entry, ok := s.items[run.ID]
	if !ok || s.expired(entry) {
		entry = &runEntry{createdAt: run.CreatedAt, run: run}
		s.items[run.ID] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.run
}

func (s *runStore) expired(entry *runEntry) bool {
	return s.now().Sub(entry.createdAt) > s.ttl
}

func (s *runStore) entry(id string) (*runEntry, bool) {
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.expired(entry) {
		s.Delete(id)
		return nil, false
	}
	return entry, true
}

func (s *runStore) Get(id string) (timetableRun, bool) {
	entry, ok := s.entry(id)
	if !ok {
		return timetableRun{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.run, true
}

// Update applies fn to the stored run while holding its lock. The run is left
// untouched when fn fails.
func (s *runStore) Update(id string, fn func(run *timetableRun) error) (timetableRun, bool, error) {
	entry, ok := s.entry(id)
	if !ok {
		return timetableRun{}, false, nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	next := entry.run
	next.Schedules = append([]timetable.WeeklySchedule(nil), entry.run.Schedules...)
	next.Diagnostics.UnderAllocation = append([]*timetable.UnderAllocationError(nil), entry.run.Diagnostics.UnderAllocation...)
	if err := fn(&next); err != nil {
		return entry.run, true, err
	}
	entry.run = next
	return next, true, nil
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
