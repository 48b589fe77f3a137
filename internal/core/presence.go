package core

import (
	"sync"
	"time"
)

// Presence status values.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// PresenceEntry records a user's status and last-seen timestamp.
type PresenceEntry struct {
	UserID   int64
	Status   string
	LastSeen time.Time
}

// PresenceTable is an in-memory, process-lifetime map of user presence.
// Entries exist from first connect and survive disconnect (flipped to
// offline); they are never removed.
type PresenceTable struct {
	mu      sync.RWMutex
	entries map[string]PresenceEntry // keyed by username
}

// NewPresenceTable constructs an empty presence table.
func NewPresenceTable() *PresenceTable {
	return &PresenceTable{entries: make(map[string]PresenceEntry)}
}

// SetOnline marks the user online with the current timestamp.
func (p *PresenceTable) SetOnline(userID int64, username string) {
	p.set(userID, username, StatusOnline)
}

// SetOffline marks the user offline with the current timestamp.
func (p *PresenceTable) SetOffline(userID int64, username string) {
	p.set(userID, username, StatusOffline)
}

func (p *PresenceTable) set(userID int64, username, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[username] = PresenceEntry{
		UserID:   userID,
		Status:   status,
		LastSeen: time.Now(),
	}
}

// Snapshot returns a copy of the full presence table keyed by username.
func (p *PresenceTable) Snapshot() map[string]PresenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := make(map[string]PresenceEntry, len(p.entries))
	for username, entry := range p.entries {
		snapshot[username] = entry
	}
	return snapshot
}
