package arena

import "sync"

// Manager is the process-wide registry of live arenas, keyed by arena id. It
// is the only shared mutable map in the system and is injected into the
// connection handlers rather than accessed as a global.
type Manager struct {
	mu     sync.Mutex
	arenas map[string]*Arena
}

func NewManager() *Manager {
	return &Manager{arenas: make(map[string]*Arena)}
}

// GetOrCreate returns the arena for the given id, constructing it through
// create on first reference. Two players connecting at the same time race on
// this call; the mutex guarantees they both end up in the same arena.
func (m *Manager) GetOrCreate(id string, create func(id string) *Arena) (*Arena, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.arenas[id]; ok {
		return a, false
	}
	a := create(id)
	m.arenas[id] = a
	return a, true
}

func (m *Manager) Get(id string) (*Arena, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.arenas[id]
	return a, ok
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.arenas, id)
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.arenas)
}
