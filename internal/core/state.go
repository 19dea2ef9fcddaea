package core

import (
	"sync"
	"time"
)

// StateStore keeps the last table state per session and view so a table
// reopens where the user left it.
type StateStore interface {
	Get(key string) (TableQuery, bool)
	Set(key string, q TableQuery)
	Subscribe(key string) (<-chan TableQuery, func())
}

// StateKey builds the store key of one session's view.
func StateKey(sessionID, viewKey string) string {
	return sessionID + "/" + viewKey
}

type stateEntry struct {
	query     TableQuery
	updatedAt time.Time
	listeners []chan TableQuery
}

// MemoryStateStore is an in-process StateStore. When full, the least
// recently updated entry without listeners is evicted.
type MemoryStateStore struct {
	mu         sync.Mutex
	entries    map[string]*stateEntry
	maxEntries int
	now        func() time.Time
}

// NewMemoryStateStore creates a store holding at most maxEntries keys.
// A maxEntries <= 0 means unbounded.
func NewMemoryStateStore(maxEntries int) *MemoryStateStore {
	return &MemoryStateStore{
		entries:    make(map[string]*stateEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *MemoryStateStore) Get(key string) (TableQuery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || e.updatedAt.IsZero() {
		return TableQuery{}, false
	}
	return e.query, true
}

// Set stores q and notifies subscribers. Slow subscribers miss updates
// rather than block the writer.
func (m *MemoryStateStore) Set(key string, q TableQuery) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.evictLocked()
		e = &stateEntry{}
		m.entries[key] = e
	}
	e.query = q
	e.updatedAt = m.now()

	for _, ch := range e.listeners {
		select {
		case ch <- q:
		default:
		}
	}
}

// Subscribe returns a channel receiving every Set on key and a cancel
// function that closes it.
func (m *MemoryStateStore) Subscribe(key string) (<-chan TableQuery, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.evictLocked()
		e = &stateEntry{}
		m.entries[key] = e
	}
	ch := make(chan TableQuery, 10)
	e.listeners = append(e.listeners, ch)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if e, ok := m.entries[key]; ok {
				for i, l := range e.listeners {
					if l == ch {
						e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
						break
					}
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Len returns the number of stored keys.
func (m *MemoryStateStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStateStore) evictLocked() {
	if m.maxEntries <= 0 || len(m.entries) < m.maxEntries {
		return
	}
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range m.entries {
		if len(e.listeners) > 0 {
			continue
		}
		if oldestKey == "" || e.updatedAt.Before(oldest) {
			oldestKey, oldest = k, e.updatedAt
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
	}
}
