package services

import (
	"sync"
	"time"
)

// AllowList tracks which users may connect to which entity (arena, reception).
// Grants can carry a TTL; expired grants behave as absent. This is the
// in-process stand-in for the external access-validation collaborator: a
// multi-instance deployment would back it with a shared store instead.
type AllowList struct {
	mu     sync.Mutex
	grants map[string]map[int]time.Time
}

func NewAllowList() *AllowList {
	return &AllowList{grants: make(map[string]map[int]time.Time)}
}

// Allow grants access. A zero ttl means the grant does not expire on its own.
func (l *AllowList) Allow(entityID string, userID int, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.grants[entityID]; !ok {
		l.grants[entityID] = make(map[int]time.Time)
	}
	var deadline time.Time
	if ttl > 0 {
		deadline = time.Now().Add(ttl)
	}
	l.grants[entityID][userID] = deadline
}

func (l *AllowList) IsAllowed(entityID string, userID int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	deadline, ok := l.grants[entityID][userID]
	if !ok {
		return false
	}
	if !deadline.IsZero() && time.Now().After(deadline) {
		delete(l.grants[entityID], userID)
		return false
	}
	return true
}

func (l *AllowList) Revoke(entityID string, userID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if users, ok := l.grants[entityID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(l.grants, entityID)
		}
	}
}

func (l *AllowList) RevokeAll(entityID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.grants, entityID)
}

// Sweep drops expired grants. Run periodically from the scheduler goroutine.
func (l *AllowList) Sweep() {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for entityID, users := range l.grants {
		for userID, deadline := range users {
			if !deadline.IsZero() && now.After(deadline) {
				delete(users, userID)
			}
		}
		if len(users) == 0 {
			delete(l.grants, entityID)
		}
	}
}
