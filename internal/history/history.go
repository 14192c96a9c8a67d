// Package history keeps the gallery of images generated during the life of
// the process. It is owned by the caller that renders it; image requests
// never reach into it.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Entry struct {
	ID     string    `json:"id"`
	Image  []byte    `json:"-"`
	Label  string    `json:"label"`
	Prompt string    `json:"prompt"`
	Style  string    `json:"style"`
	Time   time.Time `json:"time"`
}

// Store holds entries newest first. The zero value is unbounded and ready
// to use.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
	now     func() time.Time
}

// New returns a store that keeps at most max entries, or all of them when
// max is zero.
func New(max int) *Store {
	return &Store{max: max}
}

// Add records e as the newest entry, assigning an ID and time when unset.
func (s *Store) Add(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		now := time.Now
		if s.now != nil {
			now = s.now
		}
		e.Time = now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]Entry{e}, s.entries...)
	if s.max > 0 && len(s.entries) > s.max {
		s.entries = s.entries[:s.max]
	}
	return e
}

// List returns a snapshot, newest first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Find(s.entries, func(e Entry) bool { return e.ID == id })
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops every entry at once.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
