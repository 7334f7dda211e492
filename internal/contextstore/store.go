// Package contextstore keeps a bounded, in-memory window of recent
// turns per user. It is a hot-path structure: reads and writes happen
// on every chat turn, so per-user locking keeps users from contending
// with each other.
package contextstore

import (
	"sync"
	"time"
)

// Entry is one completed turn as seen by downstream consumers such as
// the response selector and the history API.
type Entry struct {
	Message   string    `json:"message"`
	Intent    string    `json:"intent"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

type userWindow struct {
	mu          sync.Mutex
	entries     []Entry
	lastTouched time.Time
}

// Store holds one bounded FIFO window per user. The registry lock only
// guards the map; each window has its own mutex.
type Store struct {
	mu         sync.RWMutex
	windows    map[string]*userWindow
	maxEntries int
	now        func() time.Time
}

func New(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = 10
	}
	return &Store{
		windows:    make(map[string]*userWindow),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (s *Store) window(userID string) *userWindow {
	s.mu.RLock()
	w, ok := s.windows[userID]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok = s.windows[userID]; ok {
		return w
	}
	w = &userWindow{}
	s.windows[userID] = w
	return w
}

// Update appends one turn to the user's window, evicting the oldest
// entry once the window is full.
func (s *Store) Update(userID, message, intent, response string) {
	w := s.window(userID)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries = append(w.entries, Entry{
		Message:   message,
		Intent:    intent,
		Response:  response,
		Timestamp: s.now(),
	})
	if len(w.entries) > s.maxEntries {
		w.entries = w.entries[len(w.entries)-s.maxEntries:]
	}
	w.lastTouched = s.now()
}

// Get returns the user's window oldest-first. The slice is a copy;
// callers may hold it across turns.
func (s *Store) Get(userID string) []Entry {
	s.mu.RLock()
	w, ok := s.windows[userID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Last returns the most recent entry for a user, if any.
func (s *Store) Last(userID string) (Entry, bool) {
	entries := s.Get(userID)
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[len(entries)-1], true
}

// Clear drops a user's window entirely.
func (s *Store) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, userID)
}

// Users returns the number of tracked users.
func (s *Store) Users() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.windows)
}
