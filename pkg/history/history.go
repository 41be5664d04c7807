// Package history abstracts where the current location lives. Browsers keep
// it in the address bar; servers and tests keep it in memory.
package history

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// State is the opaque per-entry state stored alongside an href.
type State map[string]any

// Location is one history entry.
type Location struct {
	Href  string
	State State

	// Key identifies the entry. Scroll restoration keys off it.
	Key string
}

// Action describes how the current entry changed.
type Action int

const (
	Push Action = iota
	Replace
	Pop
)

func (a Action) String() string {
	switch a {
	case Replace:
		return "REPLACE"
	case Pop:
		return "POP"
	default:
		return "PUSH"
	}
}

// Listener is called after the current entry changes.
type Listener func(loc Location, action Action)

// History is the location store the router reads and writes.
type History interface {
	Location() Location
	Push(href string, state State)
	Replace(href string, state State)
	Back()
	Forward()
	Subscribe(fn Listener) (unsubscribe func())
}

// Memory is an in-process History.
type Memory struct {
	mu        sync.Mutex
	entries   []Location
	index     int
	listeners map[int]Listener
	nextID    int
}

var _ History = (*Memory)(nil)

// NewMemory creates a memory history. With no initial hrefs it starts at
// "/". The last initial href is current.
func NewMemory(initial ...string) *Memory {
	if len(initial) == 0 {
		initial = []string{"/"}
	}
	m := &Memory{listeners: make(map[int]Listener)}
	for _, href := range initial {
		m.entries = append(m.entries, newLocation(href, nil))
	}
	m.index = len(m.entries) - 1
	return m
}

func newLocation(href string, state State) Location {
	if href == "" {
		href = "/"
	}
	return Location{Href: href, State: state, Key: uuid.NewString()[:8]}
}

// Location returns the current entry.
func (m *Memory) Location() Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index]
}

// Push drops any forward entries and appends a new current entry.
func (m *Memory) Push(href string, state State) {
	m.mu.Lock()
	m.entries = append(m.entries[:m.index+1], newLocation(href, state))
	m.index = len(m.entries) - 1
	loc := m.entries[m.index]
	m.mu.Unlock()
	m.notify(loc, Push)
}

// Replace overwrites the current entry.
func (m *Memory) Replace(href string, state State) {
	m.mu.Lock()
	m.entries[m.index] = newLocation(href, state)
	loc := m.entries[m.index]
	m.mu.Unlock()
	m.notify(loc, Replace)
}

// Back moves one entry back. It is a no-op at the first entry.
func (m *Memory) Back() {
	m.Go(-1)
}

// Forward moves one entry forward. It is a no-op at the last entry.
func (m *Memory) Forward() {
	m.Go(1)
}

// Go moves delta entries, clamped to the stack bounds.
func (m *Memory) Go(delta int) {
	m.mu.Lock()
	next := m.index + delta
	if next < 0 {
		next = 0
	}
	if next > len(m.entries)-1 {
		next = len(m.entries) - 1
	}
	if next == m.index {
		m.mu.Unlock()
		return
	}
	m.index = next
	loc := m.entries[m.index]
	m.mu.Unlock()
	m.notify(loc, Pop)
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// CanGoBack reports whether Back would move.
func (m *Memory) CanGoBack() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index > 0
}

// Subscribe registers fn and returns a func that removes it.
func (m *Memory) Subscribe(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Memory) notify(loc Location, action Action) {
	m.mu.Lock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(loc, action)
	}
}
